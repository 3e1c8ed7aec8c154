package service

import (
	"context"
	"math"
	"strings"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// Stats summarises routing quality over a set of assignment records.
type Stats struct {
	Total            int                    `json:"total"`
	Assigned         int                    `json:"assigned"`
	Unassigned       int                    `json:"unassigned"`
	Spam             int                    `json:"spam"`
	ByOutcome        map[models.Outcome]int `json:"by_outcome"`
	VIPTotal         int                    `json:"vip_total"`
	VIPCorrect       int                    `json:"vip_correct"`
	VIPCompliance    float64                `json:"vip_compliance"`
	LangTotal        int                    `json:"lang_total"`
	LangCorrect      int                    `json:"lang_correct"`
	LangCompliance   float64                `json:"lang_compliance"`
	LoadStdDev       float64                `json:"load_std"`
	ManagerWorkloads map[string]int         `json:"manager_workloads"`
}

// ComputeStats checks every record against the current manager set.
// Compliance is 100 when no ticket falls under the rule. The load deviation
// is the sample standard deviation of the chosen manager's workload taken
// once per assigned record.
func ComputeStats(records []models.AssignmentRecord, managers []*models.Manager) Stats {
	st := Stats{
		ByOutcome:        map[models.Outcome]int{},
		ManagerWorkloads: map[string]int{},
		VIPCompliance:    100,
		LangCompliance:   100,
	}
	byID := make(map[string]*models.Manager, len(managers))
	for _, m := range managers {
		byID[m.ID] = m
	}

	var loads []float64
	for _, r := range records {
		st.Total++
		outcome := models.Outcome(r.Outcome)
		st.ByOutcome[outcome]++

		var m *models.Manager
		if r.ManagerID != nil {
			m = byID[*r.ManagerID]
		}
		switch {
		case outcome == models.OutcomeSpamRejected:
			st.Spam++
		case r.ManagerID != nil:
			st.Assigned++
		default:
			st.Unassigned++
		}
		if m != nil {
			loads = append(loads, float64(m.Workload()))
			st.ManagerWorkloads[m.FullName] = m.Workload()
		}

		if (models.Ticket{Segment: r.Segment}).IsPremium() {
			st.VIPTotal++
			if m != nil && m.HasSkill(models.SkillVIP) {
				st.VIPCorrect++
			}
		}
		lang := strings.ToUpper(strings.TrimSpace(r.Language))
		if lang == models.LanguageKZ || lang == models.LanguageENG {
			st.LangTotal++
			if m != nil && m.HasSkill(lang) {
				st.LangCorrect++
			}
		}
	}

	if st.VIPTotal > 0 {
		st.VIPCompliance = round(100*float64(st.VIPCorrect)/float64(st.VIPTotal), 1)
	}
	if st.LangTotal > 0 {
		st.LangCompliance = round(100*float64(st.LangCorrect)/float64(st.LangTotal), 1)
	}
	st.LoadStdDev = round(sampleStdDev(loads), 2)
	return st
}

const statsPageSize = 500

// LoadStats pages through every assignment record and computes Stats against
// the current managers.
func LoadStats(ctx context.Context, store Store) (Stats, error) {
	managers, err := store.ListManagers(ctx)
	if err != nil {
		return Stats{}, err
	}
	var records []models.AssignmentRecord
	for offset := 0; ; offset += statsPageSize {
		page, err := store.ListAssignments(ctx, AssignmentFilter{Limit: statsPageSize, Offset: offset})
		if err != nil {
			return Stats{}, err
		}
		records = append(records, page...)
		if len(page) < statsPageSize {
			break
		}
	}
	return ComputeStats(records, managers), nil
}

func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
