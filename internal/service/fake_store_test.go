package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/routing"
)

// memStore is an in-memory Store. Assignment transactions stage their writes
// and apply them only when fn succeeds.
type memStore struct {
	mu          sync.Mutex
	offices     []models.Office
	managers    map[string]*models.Manager
	tickets     []models.Ticket
	assignments map[string]models.AssignmentRecord
	counter     int64
	runs        map[string]string
	runSeq      int

	failSaveFor map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		managers:    map[string]*models.Manager{},
		assignments: map[string]models.AssignmentRecord{},
		runs:        map[string]string{},
		failSaveFor: map[string]bool{},
	}
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) ListOffices(ctx context.Context) ([]models.Office, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Office(nil), s.offices...), nil
}

func (s *memStore) ListManagers(ctx context.Context) ([]*models.Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Manager, 0, len(s.managers))
	for _, m := range s.managers {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListPendingTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tickets {
		if _, ok := s.assignments[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Ticket{}, ErrNotFound
}

func (s *memStore) InsertTickets(ctx context.Context, tickets []models.Ticket) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range tickets {
		dup := false
		for _, existing := range s.tickets {
			if existing.ID == t.ID {
				dup = true
			}
		}
		if !dup {
			s.tickets = append(s.tickets, t)
			n++
		}
	}
	return n, nil
}

func (s *memStore) UpsertOffices(ctx context.Context, offices []models.Office) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offices = append(s.offices, offices...)
	return nil
}

func (s *memStore) UpsertManagers(ctx context.Context, managers []*models.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range managers {
		s.managers[m.ID] = m.Clone()
	}
	return nil
}

func (s *memStore) UpdateOfficeCoordinates(ctx context.Context, officeID string, c models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.offices {
		if s.offices[i].ID == officeID {
			c := c
			s.offices[i].Coordinates = &c
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) GetAssignment(ctx context.Context, ticketID string) (models.AssignmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.assignments[ticketID]
	if !ok {
		return models.AssignmentRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *memStore) ListAssignments(ctx context.Context, f AssignmentFilter) ([]models.AssignmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AssignmentRecord
	for _, r := range s.assignments {
		if f.Outcome != "" && r.Outcome != f.Outcome {
			continue
		}
		if f.ManagerID != "" && (r.ManagerID == nil || *r.ManagerID != f.ManagerID) {
			continue
		}
		if f.OfficeID != "" && (r.OfficeID == nil || *r.OfficeID != f.OfficeID) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) CounterValue(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter, nil
}

func (s *memStore) ResetCounter(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = 0
	return nil
}

func (s *memStore) RestoreBaselineWorkloads(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.managers {
		s.managers[id] = models.NewManager(m.ID, m.FullName, m.Position, m.OfficeID, m.Skills, m.BaselineWorkload)
	}
	return int64(len(s.managers)), nil
}

func (s *memStore) ResetRouting(ctx context.Context) error {
	if _, err := s.RestoreBaselineWorkloads(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = map[string]models.AssignmentRecord{}
	s.counter = 0
	return nil
}

func (s *memStore) CreateRun(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runSeq++
	id := fmt.Sprintf("run-%d", s.runSeq)
	s.runs[id] = "RUNNING"
	return id, nil
}

func (s *memStore) FinishRun(ctx context.Context, runID, status string, summary []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = status
	return nil
}

type memTx struct {
	store       *memStore
	counter     *TxCounter
	increments  map[string]int
	assignments []models.AssignmentRecord
}

func (tx *memTx) Counter(ctx context.Context) (routing.Counter, error) {
	if tx.counter == nil {
		tx.counter = NewTxCounter(tx.store.counter)
	}
	return tx.counter, nil
}

func (tx *memTx) Managers(ctx context.Context) ([]*models.Manager, error) {
	out := make([]*models.Manager, 0, len(tx.store.managers))
	for _, m := range tx.store.managers {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *memTx) IncrementWorkload(ctx context.Context, managerID string) error {
	if _, ok := tx.store.managers[managerID]; !ok {
		return ErrNotFound
	}
	tx.increments[managerID]++
	return nil
}

func (tx *memTx) SaveAssignment(ctx context.Context, rec models.AssignmentRecord) error {
	if tx.store.failSaveFor[rec.TicketID] {
		return errors.New("disk full")
	}
	tx.assignments = append(tx.assignments, rec)
	return nil
}

func (s *memStore) InAssignmentTx(ctx context.Context, fn func(tx AssignmentTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, increments: map[string]int{}}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.counter != nil {
		if v, dirty := tx.counter.Pending(); dirty {
			s.counter = v
		}
	}
	for id, n := range tx.increments {
		for i := 0; i < n; i++ {
			s.managers[id].IncrementWorkload()
		}
	}
	for _, rec := range tx.assignments {
		s.assignments[rec.TicketID] = rec
	}
	return nil
}

func (s *memStore) workload(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.managers[id].Workload()
}
