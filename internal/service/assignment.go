package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// assign routes one ticket inside a store transaction. Managers and their
// workloads are read in that transaction, so writes committed by another
// process since the run started are seen.
func (s *ProcessingService) assign(
	ctx context.Context,
	runID string,
	t models.Ticket,
	cls models.Classification,
	offices []models.Office,
) (models.Decision, error) {
	start := time.Now()

	var d models.Decision
	err := s.Store.InAssignmentTx(ctx, func(tx AssignmentTx) error {
		counter, err := tx.Counter(ctx)
		if err != nil {
			return fmt.Errorf("load counter: %w", err)
		}
		managers, err := tx.Managers(ctx)
		if err != nil {
			return fmt.Errorf("load managers: %w", err)
		}

		d = s.Engine.Assign(t, cls, offices, managers, counter)

		if d.Manager != nil {
			if err := tx.IncrementWorkload(ctx, d.Manager.ID); err != nil {
				return fmt.Errorf("increment workload: %w", err)
			}
		}
		rec, err := NewAssignmentRecord(runID, t, d, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := tx.SaveAssignment(ctx, rec); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
		return nil
	})
	s.Metrics.ObserveAssignment(time.Since(start))
	if err != nil {
		s.Metrics.AssignmentError()
		return models.Decision{}, err
	}

	s.Metrics.ObserveDecision(d.Explanation.Strategy)
	return d, nil
}

// NewAssignmentRecord flattens a decision into its persisted form.
func NewAssignmentRecord(runID string, t models.Ticket, d models.Decision, at time.Time) (models.AssignmentRecord, error) {
	exp, err := json.Marshal(d.Explanation)
	if err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("encode explanation: %w", err)
	}

	rec := models.AssignmentRecord{
		ID:             uuid.NewString(),
		RunID:          runID,
		TicketID:       t.ID,
		Segment:        t.Segment,
		Outcome:        string(d.Outcome),
		Strategy:       string(d.Explanation.Strategy),
		Type:           d.Classification.Type,
		Sentiment:      d.Classification.Sentiment,
		Priority:       d.Classification.Priority,
		Language:       d.Classification.Language,
		Summary:        d.Classification.Summary,
		Recommendation: d.Classification.Recommendation,
		Explanation:    exp,
		AssignedAt:     at,
	}
	if d.Manager != nil {
		id := d.Manager.ID
		rec.ManagerID = &id
	}
	if d.Office != nil {
		id := d.Office.ID
		rec.OfficeID = &id
	}
	if c := d.Classification.Coordinates; c != nil {
		lat, lon := c.Lat, c.Lon
		rec.Lat, rec.Lon = &lat, &lon
	}
	return rec, nil
}
