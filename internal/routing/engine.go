// Package routing decides which manager handles a support ticket.
//
// The engine is pure computation over the offices, managers and counter the
// caller hands it. It routes one ticket per call: locate the office, filter
// its managers by hard rules, then pick by workload with a round-robin
// tie-break or fall back to the nearest office that has a qualified manager.
// Callers must serialize Assign calls that share managers or a counter.
package routing

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/models"
)

const (
	MinPriority = 1
	MaxPriority = 10
)

type Options struct {
	Aliases       *AliasTable
	Geo           geo.Index
	DefaultOffice string
	Logger        zerolog.Logger
}

type Engine struct {
	Locator  *Locator
	Selector *Selector
	Logger   zerolog.Logger
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		Locator: &Locator{
			Geo:           opts.Geo,
			Regions:       NewRegionResolver(opts.Aliases),
			DefaultOffice: opts.DefaultOffice,
		},
		Selector: &Selector{Geo: opts.Geo},
		Logger:   opts.Logger,
	}
}

// Assign routes one ticket. It always returns a decision with a complete
// explanation; it never fails. The chosen manager (a pointer from managers)
// has its workload incremented and counter is advanced on round-robin picks.
func (e *Engine) Assign(
	ticket models.Ticket,
	cls models.Classification,
	offices []models.Office,
	managers []*models.Manager,
	counter Counter,
) models.Decision {
	cls, overridden := EffectiveClassification(ticket, cls)
	exp := models.Explanation{
		FiltersApplied:     []string{},
		PriorityOverridden: overridden,
	}

	var d models.Decision
	if isSpam(cls) {
		d = e.Selector.Select(ticket, cls, nil, nil, managers, offices, counter, exp)
		e.logDecision(ticket, d)
		return d
	}

	loc := e.Locator.Locate(ticket, cls, offices)
	if loc.Office != nil {
		exp.ResolvedOffice = loc.Office.Name
	}
	exp.LocationRule = loc.Rule
	exp.DistanceKm = roundKm(loc.DistanceKm)
	exp.CustomerCoordinates = loc.CustomerCoordinates
	exp.OfficeCoordinates = loc.OfficeCoordinates

	var pool []*models.Manager
	for _, id := range loc.Targets {
		pool = append(pool, managersAt(managers, id)...)
	}
	exp.CandidatesInitial = len(pool)

	eligible, applied := FilterEligible(pool, ticket, cls)
	exp.FiltersApplied = applied
	exp.CandidatesAfterFilters = len(eligible)

	d = e.Selector.Select(ticket, cls, loc.Office, eligible, managers, offices, counter, exp)
	e.logDecision(ticket, d)
	return d
}

// EffectiveClassification clamps priority into [1,10] and forces 10 for VIP
// and Priority segments. The second result reports the segment override.
func EffectiveClassification(ticket models.Ticket, cls models.Classification) (models.Classification, bool) {
	if cls.Priority < MinPriority {
		cls.Priority = MinPriority
	}
	if cls.Priority > MaxPriority {
		cls.Priority = MaxPriority
	}
	if ticket.IsPremium() && cls.Priority != MaxPriority {
		cls.Priority = MaxPriority
		return cls, true
	}
	return cls, false
}

func (e *Engine) logDecision(ticket models.Ticket, d models.Decision) {
	ev := e.Logger.Debug()
	if d.Outcome == models.OutcomeUnassigned {
		ev = e.Logger.Warn()
	}
	ev = ev.Str("ticket_id", ticket.ID).
		Str("segment", ticket.Segment).
		Str("outcome", string(d.Outcome)).
		Str("strategy", string(d.Explanation.Strategy)).
		Strs("filters", d.Explanation.FiltersApplied)
	if d.Office != nil {
		ev = ev.Str("office", d.Office.Name)
	}
	if d.Manager != nil {
		ev = ev.Str("manager_id", d.Manager.ID)
	}
	ev.Msg("ticket routed")
}

func roundKm(km *float64) *float64 {
	if km == nil {
		return nil
	}
	r := math.Round(*km*10) / 10
	return &r
}
