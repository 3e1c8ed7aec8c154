package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	SegmentMass     = "Mass"
	SegmentVIP      = "VIP"
	SegmentPriority = "Priority"
)

const (
	PositionSpecialist       = "Специалист"
	PositionLeadSpecialist   = "Ведущий специалист"
	PositionSeniorSpecialist = "Главный специалист"
)

const (
	LanguageRU  = "RU"
	LanguageKZ  = "KZ"
	LanguageENG = "ENG"
)

const (
	TypeComplaint    = "Жалоба"
	TypeDataChange   = "Смена данных"
	TypeConsultation = "Консультация"
	TypeClaim        = "Претензия"
	TypeAppFailure   = "Неработоспособность приложения"
	TypeFraud        = "Мошеннические действия"
	TypeSpam         = "Спам"
)

const (
	SkillVIP = "VIP"
	SkillKZ  = "KZ"
	SkillENG = "ENG"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Ticket struct {
	ID          string    `json:"id"`
	GUID        string    `json:"guid"`
	Segment     string    `json:"segment"`
	Country     string    `json:"country"`
	Region      string    `json:"region"`
	City        string    `json:"city"`
	Street      string    `json:"street"`
	Building    string    `json:"building"`
	Description string    `json:"description"`
	Attachment  string    `json:"attachment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsPremium reports whether the ticket segment requires VIP handling.
func (t Ticket) IsPremium() bool {
	s := strings.TrimSpace(t.Segment)
	return strings.EqualFold(s, SegmentVIP) || strings.EqualFold(s, SegmentPriority)
}

type Office struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Manager is the only aggregate the engine mutates. The workload counter is
// unexported so every change goes through IncrementWorkload.
type Manager struct {
	ID               string
	FullName         string
	Position         string
	OfficeID         string
	Skills           []string
	BaselineWorkload int

	workload int
}

func NewManager(id, fullName, position, officeID string, skills []string, workload int) *Manager {
	if workload < 0 {
		workload = 0
	}
	return &Manager{
		ID:               id,
		FullName:         fullName,
		Position:         position,
		OfficeID:         officeID,
		Skills:           skills,
		BaselineWorkload: workload,
		workload:         workload,
	}
}

func (m *Manager) Workload() int {
	return m.workload
}

// IncrementWorkload records one more ticket in the manager's queue.
func (m *Manager) IncrementWorkload() {
	m.workload++
}

func (m *Manager) HasSkill(skill string) bool {
	for _, s := range m.Skills {
		if strings.EqualFold(strings.TrimSpace(s), skill) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy, including the skills slice.
func (m *Manager) Clone() *Manager {
	c := *m
	c.Skills = append([]string(nil), m.Skills...)
	return &c
}

type managerJSON struct {
	ID               string   `json:"id"`
	FullName         string   `json:"full_name"`
	Position         string   `json:"position"`
	OfficeID         string   `json:"office_id"`
	Skills           []string `json:"skills"`
	Workload         int      `json:"workload"`
	BaselineWorkload int      `json:"baseline_workload"`
}

func (m Manager) MarshalJSON() ([]byte, error) {
	return json.Marshal(managerJSON{
		ID:               m.ID,
		FullName:         m.FullName,
		Position:         m.Position,
		OfficeID:         m.OfficeID,
		Skills:           m.Skills,
		Workload:         m.workload,
		BaselineWorkload: m.BaselineWorkload,
	})
}

func (m *Manager) UnmarshalJSON(b []byte) error {
	var raw managerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = *NewManager(raw.ID, raw.FullName, raw.Position, raw.OfficeID, raw.Skills, raw.Workload)
	m.BaselineWorkload = raw.BaselineWorkload
	return nil
}

type Classification struct {
	Type           string       `json:"type"`
	Sentiment      string       `json:"sentiment"`
	Priority       int          `json:"priority"`
	Language       string       `json:"language"`
	Summary        string       `json:"summary,omitempty"`
	Recommendation string       `json:"recommendation,omitempty"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
	ModelVersion   string       `json:"model_version,omitempty"`
	Fallback       bool         `json:"fallback,omitempty"`
}

type AssignmentRecord struct {
	ID             string          `json:"id"`
	RunID          string          `json:"run_id,omitempty"`
	TicketID       string          `json:"ticket_id"`
	Segment        string          `json:"segment"`
	ManagerID      *string         `json:"manager_id"`
	OfficeID       *string         `json:"office_id"`
	Outcome        string          `json:"outcome"`
	Strategy       string          `json:"strategy"`
	Type           string          `json:"type"`
	Sentiment      string          `json:"sentiment"`
	Priority       int             `json:"priority"`
	Language       string          `json:"language"`
	Summary        string          `json:"summary"`
	Recommendation string          `json:"recommendation"`
	Lat            *float64        `json:"lat"`
	Lon            *float64        `json:"lon"`
	Explanation    json.RawMessage `json:"explanation"`
	AssignedAt     time.Time       `json:"assigned_at"`
}
