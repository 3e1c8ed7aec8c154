package routing

import (
	"github.com/rs/zerolog"

	"github.com/freedom_case_2/fire-router/internal/models"
)

func testOffices() []models.Office {
	return []models.Office{
		{ID: "o-ast", Name: "Астана"},
		{ID: "o-alm", Name: "Алматы"},
		{ID: "o-kar", Name: "Караганда"},
		{ID: "o-shy", Name: "Шымкент"},
	}
}

func testEngine() *Engine {
	return NewEngine(Options{Logger: zerolog.Nop()})
}

func manager(id, office, position string, workload int, skills ...string) *models.Manager {
	return models.NewManager(id, "Manager "+id, position, office, skills, workload)
}

func managerIDs(ms []*models.Manager) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func workloads(ms []*models.Manager) map[string]int {
	out := make(map[string]int, len(ms))
	for _, m := range ms {
		out[m.ID] = m.Workload()
	}
	return out
}
