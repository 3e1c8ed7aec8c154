package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freedom_case_2/fire-router/internal/ai"
	"github.com/freedom_case_2/fire-router/internal/metrics"
	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/routing"
)

const (
	RunStatusDone        = "DONE"
	RunStatusInterrupted = "INTERRUPTED"
	RunStatusFailed      = "FAILED"
)

// ProcessingService classifies pending tickets and routes them one at a time.
// Routing is serialized process-wide; classification runs on a bounded pool.
type ProcessingService struct {
	Store           Store
	Classifier      ai.Classifier
	Engine          *routing.Engine
	Metrics         *metrics.Collector
	Logger          zerolog.Logger
	Workers         int
	ClassifyTimeout time.Duration

	mu      sync.Mutex
	running atomic.Bool
}

type RunEvent struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	Time    time.Time      `json:"time"`
}

type RunSummary struct {
	RunID                   string                 `json:"run_id"`
	Tickets                 int                    `json:"tickets"`
	Routed                  int                    `json:"routed"`
	Outcomes                map[models.Outcome]int `json:"outcomes"`
	ClassificationFallbacks int                    `json:"classification_fallbacks"`
	Errors                  int                    `json:"errors"`
	Skipped                 int                    `json:"skipped"`
	Interrupted             bool                   `json:"interrupted"`
	DurationMs              int64                  `json:"duration_ms"`
	Events                  []RunEvent             `json:"events"`
}

func (s *RunSummary) event(typ, msg string, fields map[string]any) {
	s.Events = append(s.Events, RunEvent{Type: typ, Message: msg, Fields: fields, Time: time.Now().UTC()})
}

// ProcessPending routes every ticket without an assignment record. A ticket
// whose transaction fails stays pending; earlier commits are kept. When ctx
// is cancelled the run stops between tickets.
func (s *ProcessingService) ProcessPending(ctx context.Context) (RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return RunSummary{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	summary := RunSummary{Outcomes: map[models.Outcome]int{}}

	tickets, err := s.Store.ListPendingTickets(ctx)
	if err != nil {
		return summary, err
	}
	summary.Tickets = len(tickets)
	s.Metrics.BatchSize(len(tickets))
	summary.event("import_summary", "Tickets ready for processing", map[string]any{"count": len(tickets)})
	if len(tickets) == 0 {
		return summary, nil
	}

	runID, err := s.Store.CreateRun(ctx)
	if err != nil {
		return summary, err
	}
	summary.RunID = runID
	log := s.Logger.With().Str("run_id", runID).Logger()

	classifications, latencyMs, err := s.classifyAll(ctx, tickets)
	if err != nil {
		s.finishRun(runID, RunStatusFailed, &summary, start)
		return summary, err
	}
	for _, c := range classifications {
		if c.Fallback {
			summary.ClassificationFallbacks++
		}
	}
	summary.event("classification", "Classification complete", map[string]any{
		"count":          len(classifications),
		"fallbacks":      summary.ClassificationFallbacks,
		"avg_latency_ms": avgLatency(latencyMs, len(tickets)),
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	offices, err := s.Store.ListOffices(ctx)
	if err != nil {
		s.finishRun(runID, RunStatusFailed, &summary, start)
		return summary, err
	}

	for i, t := range tickets {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		// another caller may have routed it since the pending list was read
		if _, err := s.Store.GetAssignment(ctx, t.ID); err == nil {
			summary.Skipped++
			continue
		}

		d, err := s.assign(ctx, runID, t, classifications[i], offices)
		if err != nil {
			summary.Errors++
			log.Error().Err(err).Str("ticket_id", t.ID).Msg("assignment rolled back")
			continue
		}
		summary.Routed++
		summary.Outcomes[d.Outcome]++
	}

	summary.event("assignment", "Routing complete", map[string]any{
		"routed":      summary.Routed,
		"errors":      summary.Errors,
		"skipped":     summary.Skipped,
		"interrupted": summary.Interrupted,
	})

	status := RunStatusDone
	if summary.Interrupted {
		status = RunStatusInterrupted
	}
	s.finishRun(runID, status, &summary, start)

	log.Info().
		Int("tickets", summary.Tickets).
		Int("routed", summary.Routed).
		Int("errors", summary.Errors).
		Int("fallbacks", summary.ClassificationFallbacks).
		Int64("elapsed_ms", summary.DurationMs).
		Msg("processing run finished")
	return summary, nil
}

// classifyAll never fails per ticket: a classifier error substitutes the
// neutral fallback. Only cancellation of ctx aborts the phase.
func (s *ProcessingService) classifyAll(ctx context.Context, tickets []models.Ticket) ([]models.Classification, int64, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = 2
	}
	timeout := s.ClassifyTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	out := make([]models.Classification, len(tickets))
	var latency atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range tickets {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			c, ms, err := s.Classifier.Classify(cctx, tickets[i])
			latency.Add(ms)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.Logger.Warn().Err(err).Str("ticket_id", tickets[i].ID).Msg("classification failed, using fallback")
				s.Metrics.ClassificationFallback()
				c = ai.Fallback()
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, latency.Load(), err
	}
	return out, latency.Load(), nil
}

// RouteOne stores the ticket if it is new, classifies it when cls is nil
// and routes it in its own transaction.
func (s *ProcessingService) RouteOne(ctx context.Context, t models.Ticket, cls *models.Classification) (models.AssignmentRecord, error) {
	if _, err := s.Store.GetAssignment(ctx, t.ID); err == nil {
		return models.AssignmentRecord{}, ErrAlreadyAssigned
	} else if !errors.Is(err, ErrNotFound) {
		return models.AssignmentRecord{}, err
	}

	stored, err := s.Store.GetTicket(ctx, t.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		if _, err := s.Store.InsertTickets(ctx, []models.Ticket{t}); err != nil {
			return models.AssignmentRecord{}, err
		}
	case err != nil:
		return models.AssignmentRecord{}, err
	default:
		// the stored ticket is what the record will describe
		t = stored
	}

	var c models.Classification
	if cls != nil {
		c = ai.Normalize(*cls, t)
	} else {
		c = s.classifyOne(ctx, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offices, err := s.Store.ListOffices(ctx)
	if err != nil {
		return models.AssignmentRecord{}, err
	}
	if _, err := s.Store.GetAssignment(ctx, t.ID); err == nil {
		return models.AssignmentRecord{}, ErrAlreadyAssigned
	}
	if _, err := s.assign(ctx, "", t, c, offices); err != nil {
		return models.AssignmentRecord{}, err
	}
	return s.Store.GetAssignment(ctx, t.ID)
}

func (s *ProcessingService) classifyOne(ctx context.Context, t models.Ticket) models.Classification {
	timeout := s.ClassifyTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, _, err := s.Classifier.Classify(cctx, t)
	if err != nil {
		s.Logger.Warn().Err(err).Str("ticket_id", t.ID).Msg("classification failed, using fallback")
		s.Metrics.ClassificationFallback()
		return ai.Fallback()
	}
	return c
}

// DryRun routes against freshly read state with an in-memory counter seeded
// from the stored one. Nothing is persisted.
func (s *ProcessingService) DryRun(ctx context.Context, t models.Ticket, cls *models.Classification) (models.Decision, error) {
	var c models.Classification
	if cls != nil {
		c = ai.Normalize(*cls, t)
	} else {
		c = s.classifyOne(ctx, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offices, err := s.Store.ListOffices(ctx)
	if err != nil {
		return models.Decision{}, err
	}
	managers, err := s.Store.ListManagers(ctx)
	if err != nil {
		return models.Decision{}, err
	}
	value, err := s.Store.CounterValue(ctx)
	if err != nil {
		return models.Decision{}, err
	}
	return s.Engine.Assign(t, c, offices, managers, routing.NewMemoryCounter(value)), nil
}

func (s *ProcessingService) ResetCounter(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Store.ResetCounter(ctx); err != nil {
		return err
	}
	s.Logger.Info().Msg("routing counter reset")
	return nil
}

func (s *ProcessingService) RestoreWorkloads(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.Store.RestoreBaselineWorkloads(ctx)
	if err != nil {
		return 0, err
	}
	s.Logger.Info().Int64("managers", n).Msg("workloads restored to baseline")
	return n, nil
}

// ResetAll clears every assignment and returns workloads and the counter to
// their initial state.
func (s *ProcessingService) ResetAll(ctx context.Context) error {
	if s.running.Load() {
		return ErrRunInProgress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Store.ResetRouting(ctx); err != nil {
		return err
	}
	s.Logger.Info().Msg("routing state reset")
	return nil
}

func (s *ProcessingService) finishRun(runID, status string, summary *RunSummary, start time.Time) {
	summary.DurationMs = time.Since(start).Milliseconds()
	b, err := json.Marshal(summary)
	if err != nil {
		s.Logger.Error().Err(err).Msg("encode run summary")
		return
	}
	// the run row is bookkeeping; record it even if the caller gave up
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Store.FinishRun(ctx, runID, status, b); err != nil {
		s.Logger.Error().Err(err).Str("run_id", runID).Msg("finish run")
	}
}

func avgLatency(total int64, count int) int64 {
	if count == 0 {
		return 0
	}
	return total / int64(count)
}
