package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/routing"
	"github.com/freedom_case_2/fire-router/internal/service"
)

type Store struct {
	Pool *pgxpool.Pool
}

var _ service.Store = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListOffices(ctx context.Context) ([]models.Office, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, address, lat, lon FROM offices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Office
	for rows.Next() {
		var (
			o        models.Office
			lat, lon *float64
		)
		if err := rows.Scan(&o.ID, &o.Name, &o.Address, &lat, &lon); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			o.Coordinates = &models.Coordinates{Lat: *lat, Lon: *lon}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) ListManagers(ctx context.Context) ([]*models.Manager, error) {
	return queryManagers(ctx, s.Pool, "")
}

func queryManagers(ctx context.Context, q querier, lock string) ([]*models.Manager, error) {
	rows, err := q.Query(ctx, `
		SELECT id, full_name, position, office_id, skills, workload, baseline_workload
		FROM managers
		ORDER BY id
	`+lock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Manager
	for rows.Next() {
		var (
			id, name, position, officeID string
			skills                       []string
			workload, baseline           int
		)
		if err := rows.Scan(&id, &name, &position, &officeID, &skills, &workload, &baseline); err != nil {
			return nil, err
		}
		m := models.NewManager(id, name, position, officeID, skills, workload)
		m.BaselineWorkload = baseline
		out = append(out, m)
	}
	return out, rows.Err()
}

const ticketColumns = `t.id, t.guid, t.segment, t.country, t.region, t.city, t.street, t.building, t.description, t.attachment, t.created_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.GUID, &t.Segment, &t.Country, &t.Region, &t.City, &t.Street, &t.Building, &t.Description, &t.Attachment, &t.CreatedAt)
	return t, err
}

func (s *Store) ListPendingTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets t
		LEFT JOIN assignments a ON a.ticket_id = t.id
		WHERE a.ticket_id IS NULL
		ORDER BY t.created_at ASC, t.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	t, err := scanTicket(s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Ticket{}, service.ErrNotFound
	}
	return t, err
}

// InsertTickets skips tickets whose id already exists and returns the number
// actually inserted.
func (s *Store) InsertTickets(ctx context.Context, tickets []models.Ticket) (int64, error) {
	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(`
			INSERT INTO tickets (id, guid, segment, country, region, city, street, building, description, attachment, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, COALESCE($11, NOW()))
			ON CONFLICT (id) DO NOTHING
		`, t.ID, t.GUID, t.Segment, t.Country, t.Region, t.City, t.Street, t.Building, t.Description, t.Attachment, nullTime(t))
	}
	br := s.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range tickets {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func nullTime(t models.Ticket) any {
	if t.CreatedAt.IsZero() {
		return nil
	}
	return t.CreatedAt
}

func (s *Store) UpsertOffices(ctx context.Context, offices []models.Office) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, o := range offices {
			var lat, lon *float64
			if o.Coordinates != nil {
				lat, lon = &o.Coordinates.Lat, &o.Coordinates.Lon
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO offices (id, name, address, lat, lon)
				VALUES ($1,$2,$3,$4,$5)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					address = EXCLUDED.address,
					lat = COALESCE(EXCLUDED.lat, offices.lat),
					lon = COALESCE(EXCLUDED.lon, offices.lon)
			`, o.ID, o.Name, o.Address, lat, lon); err != nil {
				return fmt.Errorf("upsert office %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// UpsertManagers writes the current workload as both workload and baseline
// for new rows; existing rows keep their live workload.
func (s *Store) UpsertManagers(ctx context.Context, managers []*models.Manager) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, m := range managers {
			skills := m.Skills
			if skills == nil {
				skills = []string{}
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO managers (id, full_name, position, office_id, skills, workload, baseline_workload, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
				ON CONFLICT (id) DO UPDATE SET
					full_name = EXCLUDED.full_name,
					position = EXCLUDED.position,
					office_id = EXCLUDED.office_id,
					skills = EXCLUDED.skills,
					baseline_workload = EXCLUDED.baseline_workload,
					updated_at = NOW()
			`, m.ID, m.FullName, m.Position, m.OfficeID, skills, m.Workload(), m.BaselineWorkload); err != nil {
				return fmt.Errorf("upsert manager %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateOfficeCoordinates(ctx context.Context, officeID string, c models.Coordinates) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE offices SET lat = $1, lon = $2 WHERE id = $3`, c.Lat, c.Lon, officeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

const assignmentColumns = `id, COALESCE(run_id::text, ''), ticket_id, segment, manager_id, office_id, outcome, strategy,
	type, sentiment, priority, language, summary, recommendation, lat, lon, explanation, assigned_at`

func scanAssignment(row pgx.Row) (models.AssignmentRecord, error) {
	var r models.AssignmentRecord
	err := row.Scan(&r.ID, &r.RunID, &r.TicketID, &r.Segment, &r.ManagerID, &r.OfficeID, &r.Outcome, &r.Strategy,
		&r.Type, &r.Sentiment, &r.Priority, &r.Language, &r.Summary, &r.Recommendation, &r.Lat, &r.Lon, &r.Explanation, &r.AssignedAt)
	return r, err
}

func (s *Store) GetAssignment(ctx context.Context, ticketID string) (models.AssignmentRecord, error) {
	r, err := scanAssignment(s.Pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE ticket_id = $1`, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AssignmentRecord{}, service.ErrNotFound
	}
	return r, err
}

func (s *Store) ListAssignments(ctx context.Context, f service.AssignmentFilter) ([]models.AssignmentRecord, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := max(f.Offset, 0)

	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	var (
		args   []any
		wheres []string
	)
	if f.Outcome != "" {
		args = append(args, f.Outcome)
		wheres = append(wheres, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if f.OfficeID != "" {
		args = append(args, f.OfficeID)
		wheres = append(wheres, fmt.Sprintf("office_id = $%d", len(args)))
	}
	if f.ManagerID != "" {
		args = append(args, f.ManagerID)
		wheres = append(wheres, fmt.Sprintf("manager_id = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY priority DESC, assigned_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AssignmentRecord
	for rows.Next() {
		r, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CounterValue(ctx context.Context) (int64, error) {
	var v int64
	err := s.Pool.QueryRow(ctx, `SELECT rr_counter FROM routing_state WHERE id = 1`).Scan(&v)
	return v, err
}

func (s *Store) ResetCounter(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `UPDATE routing_state SET rr_counter = 0 WHERE id = 1`)
	return err
}

func (s *Store) RestoreBaselineWorkloads(ctx context.Context) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE managers SET workload = baseline_workload, updated_at = NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ResetRouting(ctx context.Context) error {
	// counter row first, the same lock order as InAssignmentTx
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE routing_state SET rr_counter = 0 WHERE id = 1`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM assignments`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE managers SET workload = baseline_workload, updated_at = NOW()`)
		return err
	})
}

func (s *Store) CreateRun(ctx context.Context) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `INSERT INTO runs (status, started_at) VALUES ('RUNNING', NOW()) RETURNING id::text`).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

// InAssignmentTx locks the counter row for the whole transaction, so
// concurrent assignments from other processes queue behind it. Managers
// are read after that lock, which makes every decision see the workloads
// committed by the previous one.
func (s *Store) InAssignmentTx(ctx context.Context, fn func(tx service.AssignmentTx) error) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		atx := &assignmentTx{tx: tx}
		if err := fn(atx); err != nil {
			return err
		}
		return atx.flush(ctx)
	})
}

type assignmentTx struct {
	tx      pgx.Tx
	counter *service.TxCounter
}

func (a *assignmentTx) Counter(ctx context.Context) (routing.Counter, error) {
	if a.counter != nil {
		return a.counter, nil
	}
	var v int64
	if err := a.tx.QueryRow(ctx, `SELECT rr_counter FROM routing_state WHERE id = 1 FOR UPDATE`).Scan(&v); err != nil {
		return nil, err
	}
	a.counter = service.NewTxCounter(v)
	return a.counter, nil
}

// Managers takes the counter lock first if needed, then locks the manager
// rows in id order.
func (a *assignmentTx) Managers(ctx context.Context) ([]*models.Manager, error) {
	if _, err := a.Counter(ctx); err != nil {
		return nil, err
	}
	return queryManagers(ctx, a.tx, " FOR UPDATE")
}

func (a *assignmentTx) IncrementWorkload(ctx context.Context, managerID string) error {
	tag, err := a.tx.Exec(ctx, `UPDATE managers SET workload = workload + 1, updated_at = NOW() WHERE id = $1`, managerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("manager %s: %w", managerID, service.ErrNotFound)
	}
	return nil
}

func (a *assignmentTx) SaveAssignment(ctx context.Context, r models.AssignmentRecord) error {
	var runID *string
	if r.RunID != "" {
		runID = &r.RunID
	}
	_, err := a.tx.Exec(ctx, `
		INSERT INTO assignments (id, run_id, ticket_id, segment, manager_id, office_id, outcome, strategy,
			type, sentiment, priority, language, summary, recommendation, lat, lon, explanation, assigned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, r.ID, runID, r.TicketID, r.Segment, r.ManagerID, r.OfficeID, r.Outcome, r.Strategy,
		r.Type, r.Sentiment, r.Priority, r.Language, r.Summary, r.Recommendation, r.Lat, r.Lon, []byte(r.Explanation), r.AssignedAt)
	return err
}

func (a *assignmentTx) flush(ctx context.Context) error {
	if a.counter == nil {
		return nil
	}
	v, dirty := a.counter.Pending()
	if !dirty {
		return nil
	}
	_, err := a.tx.Exec(ctx, `UPDATE routing_state SET rr_counter = $1 WHERE id = 1`, v)
	return err
}
