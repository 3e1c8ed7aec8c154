package routing

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/models"
)

func ruConsultation() models.Classification {
	return models.Classification{
		Type:      models.TypeConsultation,
		Sentiment: "Neutral",
		Priority:  5,
		Language:  models.LanguageRU,
	}
}

func TestEngineSpam(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{manager("a1", "o-alm", models.PositionSpecialist, 3)}
	counter := NewMemoryCounter(7)

	cls := ruConsultation()
	cls.Type = models.TypeSpam
	d := e.Assign(models.Ticket{ID: "t1", City: "Алматы"}, cls, testOffices(), managers, counter)

	require.Equal(t, models.OutcomeSpamRejected, d.Outcome)
	require.Nil(t, d.Manager)
	require.Nil(t, d.Office)
	require.Equal(t, models.StrategySpamFilter, d.Explanation.Strategy)
	require.Equal(t, []string{}, d.Explanation.FiltersApplied)
	require.NotEmpty(t, d.Explanation.Reason)
	require.Equal(t, int64(7), counter.Peek())
	require.Equal(t, 3, managers[0].Workload())
}

func TestEngineCityScenario(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{
		manager("s1", "o-ast", models.PositionSpecialist, 0),
		manager("a1", "o-alm", models.PositionSpecialist, 5),
		manager("a2", "o-alm", models.PositionSpecialist, 1),
		manager("a3", "o-alm", models.PositionLeadSpecialist, 3),
	}
	counter := NewMemoryCounter(0)

	d := e.Assign(models.Ticket{ID: "t1", City: "Алматы", Segment: models.SegmentMass},
		ruConsultation(), testOffices(), managers, counter)

	require.Equal(t, models.OutcomeAssignedLocalRR, d.Outcome)
	require.Equal(t, "Алматы", d.Office.Name)
	require.Equal(t, "a2", d.Manager.ID)

	exp := d.Explanation
	require.Equal(t, "Алматы", exp.ResolvedOffice)
	require.Equal(t, models.RuleCityNameMatch, exp.LocationRule)
	require.Equal(t, 0.0, *exp.DistanceKm)
	require.Equal(t, []string{}, exp.FiltersApplied)
	require.Equal(t, 3, exp.CandidatesInitial)
	require.Equal(t, 3, exp.CandidatesAfterFilters)
	require.Equal(t, []models.CandidateLoad{
		{ManagerID: "a2", FullName: "Manager a2", Workload: 1},
		{ManagerID: "a3", FullName: "Manager a3", Workload: 3},
	}, exp.Top2)
	require.Equal(t, models.StrategyRoundRobin, exp.Strategy)
	require.Equal(t, int64(0), *exp.CounterValue)
	require.Equal(t, "Selected Manager a2 (workload: 1) via round-robin (counter=0)", exp.Reason)

	require.Equal(t, int64(1), counter.Peek())
	require.Equal(t, map[string]int{"s1": 0, "a1": 5, "a2": 2, "a3": 3}, workloads(managers))
}

func TestEngineDefaultOfficeScenario(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{manager("s1", "o-ast", models.PositionSpecialist, 0)}

	d := e.Assign(models.Ticket{ID: "t1"}, ruConsultation(), testOffices(), managers, NewMemoryCounter(0))

	require.Equal(t, models.RuleNoLocationDefault, d.Explanation.LocationRule)
	require.Equal(t, "Астана", d.Explanation.ResolvedOffice)
	require.Equal(t, "s1", d.Manager.ID)
}

func TestEngineRoundRobinAlternates(t *testing.T) {
	e := testEngine()
	counter := NewMemoryCounter(0)

	var chosen []string
	for i := 0; i < 4; i++ {
		managers := []*models.Manager{
			manager("A", "o-alm", models.PositionSpecialist, 2),
			manager("B", "o-alm", models.PositionSpecialist, 2),
		}
		d := e.Assign(models.Ticket{ID: "t", City: "Алматы"}, ruConsultation(), testOffices(), managers, counter)
		require.Equal(t, int64(i), *d.Explanation.CounterValue)
		chosen = append(chosen, d.Manager.ID)
	}
	require.Equal(t, []string{"A", "B", "A", "B"}, chosen)
	require.Equal(t, int64(4), counter.Peek())
}

func TestEngineSingleCandidate(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{manager("A", "o-alm", models.PositionSpecialist, 0)}
	counter := NewMemoryCounter(5)

	d := e.Assign(models.Ticket{ID: "t", City: "Алматы"}, ruConsultation(), testOffices(), managers, counter)
	require.Equal(t, "A", d.Manager.ID)
	require.Len(t, d.Explanation.Top2, 1)
	require.Equal(t, int64(6), counter.Peek())
}

func TestEngineVIPFallbackScenario(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{
		manager("k1", "o-kar", models.PositionSeniorSpecialist, 0, "KZ"),
		manager("l1", "o-alm", models.PositionSpecialist, 0, "VIP"),
		manager("s1", "o-ast", models.PositionSpecialist, 7, "VIP"),
		manager("s2", "o-ast", models.PositionSpecialist, 3, "VIP"),
	}
	counter := NewMemoryCounter(4)

	d := e.Assign(models.Ticket{ID: "t1", City: "Караганда", Segment: models.SegmentVIP},
		ruConsultation(), testOffices(), managers, counter)

	require.Equal(t, models.OutcomeAssignedFallbackOffice, d.Outcome)
	require.Equal(t, "s2", d.Manager.ID)
	require.Equal(t, "Астана", d.Office.Name)
	require.Equal(t, 10, d.Classification.Priority)

	exp := d.Explanation
	require.True(t, exp.PriorityOverridden)
	require.Equal(t, "Караганда", exp.ResolvedOffice)
	require.Equal(t, []string{FilterVIPSkill}, exp.FiltersApplied)
	require.Equal(t, 1, exp.CandidatesInitial)
	require.Equal(t, 0, exp.CandidatesAfterFilters)
	require.Equal(t, models.StrategyNearestQualified, exp.Strategy)
	require.Equal(t, "Астана", exp.FallbackOffice)
	require.NotNil(t, exp.FallbackDistanceKm)
	require.InDelta(t, 190, *exp.FallbackDistanceKm, 30)
	require.Equal(t, []string{"Караганда", "Астана"}, exp.OfficesTried)
	require.Nil(t, exp.CounterValue)

	require.Equal(t, int64(4), counter.Peek())
	require.Equal(t, map[string]int{"k1": 0, "l1": 0, "s1": 7, "s2": 4}, workloads(managers))
}

func TestEngineFallbackWithoutCoordinates(t *testing.T) {
	e := NewEngine(Options{Geo: geo.Index{Canonical: map[string]models.Coordinates{}}, Logger: zerolog.Nop()})
	offices := []models.Office{
		{ID: "x", Name: "X"},
		{ID: "y", Name: "Y"},
		{ID: "z", Name: "Z"},
	}
	managers := []*models.Manager{
		manager("y1", "y", models.PositionSpecialist, 0),
		manager("z1", "z", models.PositionSpecialist, 0, "ENG"),
	}
	cls := ruConsultation()
	cls.Language = models.LanguageENG

	d := e.Assign(models.Ticket{ID: "t", City: "X"}, cls, offices, managers, NewMemoryCounter(0))

	require.Equal(t, models.OutcomeAssignedFallbackOffice, d.Outcome)
	require.Equal(t, "z1", d.Manager.ID)
	require.Nil(t, d.Explanation.FallbackDistanceKm)
	require.Equal(t, []string{"X", "Y", "Z"}, d.Explanation.OfficesTried)
}

func TestEngineFallbackUnresolvableOfficeLast(t *testing.T) {
	e := NewEngine(Options{Geo: geo.Index{Canonical: map[string]models.Coordinates{
		"A": {Lat: 51.16, Lon: 71.47},
		"R": {Lat: 49.80, Lon: 73.10},
		"F": {Lat: 43.24, Lon: 76.89},
	}}, Logger: zerolog.Nop()})
	// U has no coordinates and comes first in the directory
	offices := []models.Office{
		{ID: "u", Name: "U"},
		{ID: "a", Name: "A"},
		{ID: "f", Name: "F"},
		{ID: "r", Name: "R"},
	}
	cls := ruConsultation()
	cls.Language = models.LanguageENG
	ticket := models.Ticket{ID: "t", City: "A"}

	t.Run("resolvable office wins", func(t *testing.T) {
		managers := []*models.Manager{
			manager("u1", "u", models.PositionSpecialist, 0, "ENG"),
			manager("r1", "r", models.PositionSpecialist, 5, "ENG"),
		}
		d := e.Assign(ticket, cls, offices, managers, NewMemoryCounter(0))

		require.Equal(t, models.OutcomeAssignedFallbackOffice, d.Outcome)
		require.Equal(t, "r1", d.Manager.ID)
		require.NotNil(t, d.Explanation.FallbackDistanceKm)
		require.Equal(t, []string{"A", "R"}, d.Explanation.OfficesTried)
		require.Equal(t, map[string]int{"u1": 0, "r1": 6}, workloads(managers))
	})

	t.Run("unresolvable office still eligible", func(t *testing.T) {
		managers := []*models.Manager{
			manager("u1", "u", models.PositionSpecialist, 0, "ENG"),
			manager("r1", "r", models.PositionSpecialist, 0),
		}
		d := e.Assign(ticket, cls, offices, managers, NewMemoryCounter(0))

		require.Equal(t, models.OutcomeAssignedFallbackOffice, d.Outcome)
		require.Equal(t, "u1", d.Manager.ID)
		require.Nil(t, d.Explanation.FallbackDistanceKm)
		require.Equal(t, []string{"A", "R", "F", "U"}, d.Explanation.OfficesTried)
	})
}

func TestEngineUnassigned(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{
		manager("a1", "o-alm", models.PositionSpecialist, 1, "KZ"),
		manager("s1", "o-ast", models.PositionSpecialist, 2),
	}
	counter := NewMemoryCounter(2)
	cls := ruConsultation()
	cls.Language = models.LanguageENG

	d := e.Assign(models.Ticket{ID: "t", City: "Алматы"}, cls, testOffices(), managers, counter)

	require.Equal(t, models.OutcomeUnassigned, d.Outcome)
	require.Nil(t, d.Manager)
	require.Equal(t, "Алматы", d.Office.Name)
	require.Equal(t, models.StrategyUnassigned, d.Explanation.Strategy)
	require.Len(t, d.Explanation.OfficesTried, 4)
	require.Contains(t, d.Explanation.Reason, "3 other offices")
	require.Equal(t, int64(2), counter.Peek())
	require.Equal(t, map[string]int{"a1": 1, "s1": 2}, workloads(managers))
}

func TestEngineNoOffices(t *testing.T) {
	e := testEngine()
	d := e.Assign(models.Ticket{ID: "t"}, ruConsultation(), nil, nil, NewMemoryCounter(0))
	require.Equal(t, models.OutcomeUnassigned, d.Outcome)
	require.Nil(t, d.Office)
	require.NotEmpty(t, d.Explanation.Reason)
}

func TestEngineHardFilterProperties(t *testing.T) {
	offices := testOffices()
	newManagers := func() []*models.Manager {
		return []*models.Manager{
			manager("a1", "o-alm", models.PositionSpecialist, 0),
			manager("a2", "o-alm", models.PositionSpecialist, 0, "KZ"),
			manager("a3", "o-alm", models.PositionSeniorSpecialist, 4, "ENG"),
			manager("a4", "o-alm", models.PositionSeniorSpecialist, 1, "VIP", "KZ"),
			manager("a5", "o-alm", models.PositionLeadSpecialist, 0, "VIP", "ENG"),
		}
	}

	cases := []struct {
		name  string
		seg   string
		typ   string
		lang  string
		check func(t *testing.T, m *models.Manager)
	}{
		{"KZ", models.SegmentMass, models.TypeComplaint, models.LanguageKZ, func(t *testing.T, m *models.Manager) {
			require.True(t, m.HasSkill(models.SkillKZ))
		}},
		{"ENG", models.SegmentMass, models.TypeComplaint, models.LanguageENG, func(t *testing.T, m *models.Manager) {
			require.True(t, m.HasSkill(models.SkillENG))
		}},
		{"data change", models.SegmentMass, models.TypeDataChange, models.LanguageRU, func(t *testing.T, m *models.Manager) {
			require.Equal(t, models.PositionSeniorSpecialist, m.Position)
		}},
		{"Priority segment", models.SegmentPriority, models.TypeClaim, models.LanguageRU, func(t *testing.T, m *models.Manager) {
			require.True(t, m.HasSkill(models.SkillVIP))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := testEngine()
			counter := NewMemoryCounter(0)
			managers := newManagers()
			for i := 0; i < 6; i++ {
				cls := ruConsultation()
				cls.Type = tc.typ
				cls.Language = tc.lang
				d := e.Assign(models.Ticket{ID: "t", City: "Алматы", Segment: tc.seg}, cls, offices, managers, counter)
				require.True(t, d.Outcome.Assigned())
				tc.check(t, d.Manager)
			}
		})
	}
}

func TestEngineWorkloadMonotonic(t *testing.T) {
	e := testEngine()
	managers := []*models.Manager{
		manager("a1", "o-alm", models.PositionSpecialist, 3),
		manager("a2", "o-alm", models.PositionSpecialist, 0, "KZ"),
		manager("a3", "o-alm", models.PositionSpecialist, 1),
		manager("s1", "o-ast", models.PositionSpecialist, 2, "KZ"),
	}
	before := workloads(managers)
	counter := NewMemoryCounter(0)

	chosen := map[string]int{}
	langs := []string{models.LanguageRU, models.LanguageKZ, models.LanguageRU, models.LanguageKZ, models.LanguageRU}
	for i := 0; i < 20; i++ {
		cls := ruConsultation()
		cls.Language = langs[i%len(langs)]
		d := e.Assign(models.Ticket{ID: "t", City: "Алматы"}, cls, testOffices(), managers, counter)
		require.True(t, d.Outcome.Assigned())
		chosen[d.Manager.ID]++
	}

	after := workloads(managers)
	for id, w := range before {
		require.Equal(t, w+chosen[id], after[id], id)
	}
	require.Equal(t, int64(20), counter.Peek())
}

func TestEffectiveClassification(t *testing.T) {
	cases := []struct {
		name       string
		segment    string
		priority   int
		want       int
		overridden bool
	}{
		{"mass keeps priority", models.SegmentMass, 4, 4, false},
		{"clamp low", models.SegmentMass, 0, 1, false},
		{"clamp high", models.SegmentMass, 42, 10, false},
		{"vip forced", models.SegmentVIP, 3, 10, true},
		{"priority forced", models.SegmentPriority, 1, 10, true},
		{"vip already max", models.SegmentVIP, 10, 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls, overridden := EffectiveClassification(
				models.Ticket{Segment: tc.segment},
				models.Classification{Priority: tc.priority})
			require.Equal(t, tc.want, cls.Priority)
			require.Equal(t, tc.overridden, overridden)
		})
	}
}

func TestExplanationJSON(t *testing.T) {
	e := testEngine()
	d := e.Assign(models.Ticket{ID: "t", City: "Алматы"}, ruConsultation(), testOffices(),
		[]*models.Manager{manager("a1", "o-alm", models.PositionSpecialist, 0)}, NewMemoryCounter(0))

	b, err := json.Marshal(d.Explanation)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, "round_robin", raw["chosen_by"])
	require.Equal(t, "city_name_match", raw["location_rule"])
	require.Equal(t, []any{}, raw["filters_applied"])
	require.Contains(t, raw, "top2_managers")
	require.Contains(t, raw, "chosen_reason")
}

func TestMemoryCounter(t *testing.T) {
	c := NewMemoryCounter(3)
	require.Equal(t, int64(3), c.Peek())
	require.Equal(t, int64(3), c.Peek())
	c.Advance()
	require.Equal(t, int64(4), c.Peek())
	c.Reset()
	require.Equal(t, int64(0), c.Peek())
}
