package models

// Outcome is the terminal state of a single routing call.
type Outcome string

const (
	OutcomeSpamRejected           Outcome = "SPAM_REJECTED"
	OutcomeAssignedLocalRR        Outcome = "ASSIGNED_LOCAL_RR"
	OutcomeAssignedFallbackOffice Outcome = "ASSIGNED_FALLBACK_OFFICE"
	OutcomeUnassigned             Outcome = "UNASSIGNED"
)

// Assigned reports whether the outcome names a manager.
func (o Outcome) Assigned() bool {
	return o == OutcomeAssignedLocalRR || o == OutcomeAssignedFallbackOffice
}

type Strategy string

const (
	StrategySpamFilter       Strategy = "spam_filter"
	StrategyRoundRobin       Strategy = "round_robin"
	StrategyNearestQualified Strategy = "nearest_qualified"
	StrategyUnassigned       Strategy = "unassigned"
)

type LocationRule string

const (
	RuleCityNameMatch     LocationRule = "city_name_match"
	RuleGPSNearest        LocationRule = "gps_nearest"
	RuleRegionMatch       LocationRule = "region_match"
	RuleNoLocationDefault LocationRule = "no_location_default"
)

type CandidateLoad struct {
	ManagerID string `json:"manager_id"`
	FullName  string `json:"full_name"`
	Workload  int    `json:"workload"`
}

// Explanation is filled while one ticket is routed and never changed after
// the call returns.
type Explanation struct {
	ResolvedOffice         string          `json:"resolved_office,omitempty"`
	LocationRule           LocationRule    `json:"location_rule,omitempty"`
	DistanceKm             *float64        `json:"distance_km"`
	CustomerCoordinates    *Coordinates    `json:"customer_coordinates,omitempty"`
	OfficeCoordinates      *Coordinates    `json:"office_coordinates,omitempty"`
	FiltersApplied         []string        `json:"filters_applied"`
	CandidatesInitial      int             `json:"candidates_initial"`
	CandidatesAfterFilters int             `json:"candidates_after_filters"`
	Top2                   []CandidateLoad `json:"top2_managers"`
	Strategy               Strategy        `json:"chosen_by"`
	CounterValue           *int64          `json:"counter_value,omitempty"`
	FallbackOffice         string          `json:"fallback_office,omitempty"`
	FallbackDistanceKm     *float64        `json:"fallback_distance_km,omitempty"`
	OfficesTried           []string        `json:"offices_tried,omitempty"`
	PriorityOverridden     bool            `json:"priority_overridden,omitempty"`
	Reason                 string          `json:"chosen_reason"`
}

type Decision struct {
	Outcome        Outcome        `json:"outcome"`
	Manager        *Manager       `json:"manager"`
	Office         *Office        `json:"office"`
	Classification Classification `json:"classification"`
	Explanation    Explanation    `json:"explanation"`
}
