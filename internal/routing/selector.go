package routing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/models"
)

// Selector picks one manager from the eligible pool, or walks the other
// offices by distance when the pool is empty. Candidate lists are processed
// in the order the caller supplied them; ties never reorder that input.
type Selector struct {
	Geo geo.Index
}

// Select finishes the decision started in exp. On success the chosen
// manager's workload is incremented once; the counter is peeked and advanced
// once on the round-robin path only. Spam and unassigned outcomes mutate
// nothing.
func (s *Selector) Select(
	ticket models.Ticket,
	cls models.Classification,
	office *models.Office,
	pool []*models.Manager,
	allManagers []*models.Manager,
	allOffices []models.Office,
	counter Counter,
	exp models.Explanation,
) models.Decision {
	d := models.Decision{Classification: cls, Explanation: exp}
	if d.Explanation.FiltersApplied == nil {
		d.Explanation.FiltersApplied = []string{}
	}

	if isSpam(cls) {
		d.Outcome = models.OutcomeSpamRejected
		d.Explanation.Strategy = models.StrategySpamFilter
		d.Explanation.Reason = "Spam ticket, no manager assigned"
		return d
	}

	if office == nil {
		d.Outcome = models.OutcomeUnassigned
		d.Explanation.Strategy = models.StrategyUnassigned
		d.Explanation.Reason = "No office available to route the ticket"
		return d
	}

	if len(pool) > 0 {
		sorted := sortByWorkload(pool)
		shortlist := sorted[:min(2, len(sorted))]

		c := counter.Peek()
		idx := int(c % int64(len(shortlist)))
		if idx < 0 {
			idx += len(shortlist)
		}
		chosen := shortlist[idx]

		d.Explanation.Top2 = candidateLoads(shortlist)
		d.Explanation.CounterValue = &c
		d.Explanation.Strategy = models.StrategyRoundRobin
		d.Explanation.Reason = fmt.Sprintf("Selected %s (workload: %d) via round-robin (counter=%d)",
			chosen.FullName, chosen.Workload(), c)

		counter.Advance()
		chosen.IncrementWorkload()

		d.Outcome = models.OutcomeAssignedLocalRR
		d.Manager = chosen
		d.Office = office
		return d
	}

	return s.fallback(ticket, cls, office, allManagers, allOffices, d)
}

type officeDistance struct {
	office *models.Office
	km     float64
}

func (s *Selector) fallback(
	ticket models.Ticket,
	cls models.Classification,
	origin *models.Office,
	allManagers []*models.Manager,
	allOffices []models.Office,
	d models.Decision,
) models.Decision {
	d.Explanation.OfficesTried = []string{origin.Name}

	from, hasOrigin := s.Geo.CoordinatesOf(*origin)
	ordered := make([]officeDistance, 0, len(allOffices))
	for i := range allOffices {
		if allOffices[i].ID == origin.ID {
			continue
		}
		km := math.Inf(1)
		if hasOrigin {
			km = s.Geo.DistanceToOffice(from, allOffices[i])
		}
		ordered = append(ordered, officeDistance{office: &allOffices[i], km: km})
	}
	// Unresolvable offices carry +Inf and keep their relative order at the end.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].km < ordered[j].km
	})

	for _, od := range ordered {
		d.Explanation.OfficesTried = append(d.Explanation.OfficesTried, od.office.Name)

		eligible, _ := FilterEligible(managersAt(allManagers, od.office.ID), ticket, cls)
		if len(eligible) == 0 {
			continue
		}
		sorted := sortByWorkload(eligible)
		chosen := sorted[0]

		d.Explanation.Top2 = candidateLoads(sorted[:min(2, len(sorted))])
		d.Explanation.Strategy = models.StrategyNearestQualified
		d.Explanation.FallbackOffice = od.office.Name
		if !math.IsInf(od.km, 1) {
			km := math.Round(od.km*10) / 10
			d.Explanation.FallbackDistanceKm = &km
		}
		d.Explanation.Reason = fmt.Sprintf("No qualified manager in %s; selected %s (workload: %d) in nearest qualified office %s",
			origin.Name, chosen.FullName, chosen.Workload(), od.office.Name)

		chosen.IncrementWorkload()

		d.Outcome = models.OutcomeAssignedFallbackOffice
		d.Manager = chosen
		d.Office = od.office
		return d
	}

	d.Outcome = models.OutcomeUnassigned
	d.Office = origin
	d.Explanation.Strategy = models.StrategyUnassigned
	d.Explanation.Reason = fmt.Sprintf("No qualified manager found after applying filters in %s or %d other offices",
		origin.Name, len(ordered))
	return d
}

func isSpam(cls models.Classification) bool {
	return strings.EqualFold(strings.TrimSpace(cls.Type), models.TypeSpam)
}

// sortByWorkload returns a copy ordered by ascending workload; equal
// workloads keep their input order.
func sortByWorkload(managers []*models.Manager) []*models.Manager {
	out := append([]*models.Manager(nil), managers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Workload() < out[j].Workload()
	})
	return out
}

func candidateLoads(managers []*models.Manager) []models.CandidateLoad {
	out := make([]models.CandidateLoad, 0, len(managers))
	for _, m := range managers {
		out = append(out, models.CandidateLoad{
			ManagerID: m.ID,
			FullName:  m.FullName,
			Workload:  m.Workload(),
		})
	}
	return out
}
