// Package sqlitedb is the single-file Store used for local runs and the
// routectl tool. Writes go through IMMEDIATE transactions so the counter
// row is held for the whole assignment.
package sqlitedb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/routing"
	"github.com/freedom_case_2/fire-router/internal/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS offices (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	address TEXT NOT NULL DEFAULT '',
	lat     REAL,
	lon     REAL
);

CREATE TABLE IF NOT EXISTS managers (
	id                TEXT PRIMARY KEY,
	full_name         TEXT NOT NULL,
	position          TEXT NOT NULL,
	office_id         TEXT NOT NULL,
	skills            TEXT NOT NULL DEFAULT '[]',
	workload          INTEGER NOT NULL DEFAULT 0 CHECK (workload >= 0),
	baseline_workload INTEGER NOT NULL DEFAULT 0,
	updated_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	guid        TEXT NOT NULL DEFAULT '',
	segment     TEXT NOT NULL DEFAULT 'Mass',
	country     TEXT NOT NULL DEFAULT '',
	region      TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	street      TEXT NOT NULL DEFAULT '',
	building    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	attachment  TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	summary     TEXT,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER
);

CREATE TABLE IF NOT EXISTS assignments (
	id             TEXT PRIMARY KEY,
	run_id         TEXT,
	ticket_id      TEXT NOT NULL UNIQUE,
	segment        TEXT NOT NULL DEFAULT '',
	manager_id     TEXT,
	office_id      TEXT,
	outcome        TEXT NOT NULL,
	strategy       TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT '',
	sentiment      TEXT NOT NULL DEFAULT '',
	priority       INTEGER NOT NULL DEFAULT 0,
	language       TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	recommendation TEXT NOT NULL DEFAULT '',
	lat            REAL,
	lon            REAL,
	explanation    TEXT NOT NULL,
	assigned_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS assignments_outcome_idx ON assignments (outcome);
CREATE INDEX IF NOT EXISTS assignments_manager_idx ON assignments (manager_id);

CREATE TABLE IF NOT EXISTS routing_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	rr_counter INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO routing_state (id, rr_counter) VALUES (1, 0);
`

type Store struct {
	pool *sqlitex.Pool
	path string
}

var _ service.Store = (*Store)(nil)

// Open creates the database file if needed and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitedb: path is required")
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    4,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: opening %s: %w", path, err)
	}
	s := &Store{pool: pool, path: path}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	err = sqlitex.ExecuteScript(conn, schema, nil)
	s.pool.Put(conn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlitedb: schema: %w", err)
	}
	return s, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("sqlitedb: %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

func (s *Store) withTx(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	end, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitedb: begin: %w", err)
	}
	defer end(&err)
	return fn(conn)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
	})
}

func nullFloat(stmt *sqlite.Stmt, col int) *float64 {
	if stmt.ColumnType(col) == sqlite.TypeNull {
		return nil
	}
	v := stmt.ColumnFloat(col)
	return &v
}

func nullText(stmt *sqlite.Stmt, col int) *string {
	if stmt.ColumnType(col) == sqlite.TypeNull {
		return nil
	}
	v := stmt.ColumnText(col)
	return &v
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Store) ListOffices(ctx context.Context) ([]models.Office, error) {
	var out []models.Office
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id, name, address, lat, lon FROM offices ORDER BY id`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				o := models.Office{
					ID:      stmt.ColumnText(0),
					Name:    stmt.ColumnText(1),
					Address: stmt.ColumnText(2),
				}
				lat, lon := nullFloat(stmt, 3), nullFloat(stmt, 4)
				if lat != nil && lon != nil {
					o.Coordinates = &models.Coordinates{Lat: *lat, Lon: *lon}
				}
				out = append(out, o)
				return nil
			},
		})
	})
	return out, err
}

func (s *Store) ListManagers(ctx context.Context) ([]*models.Manager, error) {
	var out []*models.Manager
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		out, err = readManagers(conn)
		return err
	})
	return out, err
}

func readManagers(conn *sqlite.Conn) ([]*models.Manager, error) {
	var out []*models.Manager
	err := sqlitex.Execute(conn, `
		SELECT id, full_name, position, office_id, skills, workload, baseline_workload
		FROM managers ORDER BY id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var skills []string
			if err := json.Unmarshal([]byte(stmt.ColumnText(4)), &skills); err != nil {
				return fmt.Errorf("manager %s skills: %w", stmt.ColumnText(0), err)
			}
			m := models.NewManager(stmt.ColumnText(0), stmt.ColumnText(1), stmt.ColumnText(2), stmt.ColumnText(3), skills, stmt.ColumnInt(5))
			m.BaselineWorkload = stmt.ColumnInt(6)
			out = append(out, m)
			return nil
		},
	})
	return out, err
}

const ticketColumns = `t.id, t.guid, t.segment, t.country, t.region, t.city, t.street, t.building, t.description, t.attachment, t.created_at`

func scanTicket(stmt *sqlite.Stmt) models.Ticket {
	return models.Ticket{
		ID:          stmt.ColumnText(0),
		GUID:        stmt.ColumnText(1),
		Segment:     stmt.ColumnText(2),
		Country:     stmt.ColumnText(3),
		Region:      stmt.ColumnText(4),
		City:        stmt.ColumnText(5),
		Street:      stmt.ColumnText(6),
		Building:    stmt.ColumnText(7),
		Description: stmt.ColumnText(8),
		Attachment:  stmt.ColumnText(9),
		CreatedAt:   time.Unix(0, stmt.ColumnInt64(10)).UTC(),
	}
}

func (s *Store) ListPendingTickets(ctx context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT `+ticketColumns+`
			FROM tickets t
			LEFT JOIN assignments a ON a.ticket_id = t.id
			WHERE a.ticket_id IS NULL
			ORDER BY t.created_at ASC, t.id ASC`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, scanTicket(stmt))
				return nil
			},
		})
	})
	return out, err
}

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	var (
		t     models.Ticket
		found bool
	)
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, &sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t, found = scanTicket(stmt), true
				return nil
			},
		})
	})
	if err != nil {
		return models.Ticket{}, err
	}
	if !found {
		return models.Ticket{}, service.ErrNotFound
	}
	return t, nil
}

func (s *Store) InsertTickets(ctx context.Context, tickets []models.Ticket) (int64, error) {
	var inserted int64
	err := s.withTx(ctx, func(conn *sqlite.Conn) error {
		now := time.Now().UTC()
		for _, t := range tickets {
			created := t.CreatedAt
			if created.IsZero() {
				created = now
			}
			err := sqlitex.Execute(conn, `
				INSERT OR IGNORE INTO tickets (id, guid, segment, country, region, city, street, building, description, attachment, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
				Args: []any{t.ID, t.GUID, t.Segment, t.Country, t.Region, t.City, t.Street, t.Building, t.Description, t.Attachment, created.UnixNano()},
			})
			if err != nil {
				return fmt.Errorf("insert ticket %s: %w", t.ID, err)
			}
			inserted += int64(conn.Changes())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) UpsertOffices(ctx context.Context, offices []models.Office) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		for _, o := range offices {
			var lat, lon any
			if o.Coordinates != nil {
				lat, lon = o.Coordinates.Lat, o.Coordinates.Lon
			}
			err := sqlitex.Execute(conn, `
				INSERT INTO offices (id, name, address, lat, lon) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name,
					address = excluded.address,
					lat = COALESCE(excluded.lat, offices.lat),
					lon = COALESCE(excluded.lon, offices.lon)`, &sqlitex.ExecOptions{
				Args: []any{o.ID, o.Name, o.Address, lat, lon},
			})
			if err != nil {
				return fmt.Errorf("upsert office %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertManagers(ctx context.Context, managers []*models.Manager) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		now := time.Now().UnixNano()
		for _, m := range managers {
			skills := m.Skills
			if skills == nil {
				skills = []string{}
			}
			b, err := json.Marshal(skills)
			if err != nil {
				return err
			}
			err = sqlitex.Execute(conn, `
				INSERT INTO managers (id, full_name, position, office_id, skills, workload, baseline_workload, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					full_name = excluded.full_name,
					position = excluded.position,
					office_id = excluded.office_id,
					skills = excluded.skills,
					baseline_workload = excluded.baseline_workload,
					updated_at = excluded.updated_at`, &sqlitex.ExecOptions{
				Args: []any{m.ID, m.FullName, m.Position, m.OfficeID, string(b), m.Workload(), m.BaselineWorkload, now},
			})
			if err != nil {
				return fmt.Errorf("upsert manager %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateOfficeCoordinates(ctx context.Context, officeID string, c models.Coordinates) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `UPDATE offices SET lat = ?, lon = ? WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{c.Lat, c.Lon, officeID},
		})
		if err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return service.ErrNotFound
		}
		return nil
	})
}

const assignmentColumns = `id, COALESCE(run_id, ''), ticket_id, segment, manager_id, office_id, outcome, strategy,
	type, sentiment, priority, language, summary, recommendation, lat, lon, explanation, assigned_at`

func scanAssignment(stmt *sqlite.Stmt) models.AssignmentRecord {
	return models.AssignmentRecord{
		ID:             stmt.ColumnText(0),
		RunID:          stmt.ColumnText(1),
		TicketID:       stmt.ColumnText(2),
		Segment:        stmt.ColumnText(3),
		ManagerID:      nullText(stmt, 4),
		OfficeID:       nullText(stmt, 5),
		Outcome:        stmt.ColumnText(6),
		Strategy:       stmt.ColumnText(7),
		Type:           stmt.ColumnText(8),
		Sentiment:      stmt.ColumnText(9),
		Priority:       stmt.ColumnInt(10),
		Language:       stmt.ColumnText(11),
		Summary:        stmt.ColumnText(12),
		Recommendation: stmt.ColumnText(13),
		Lat:            nullFloat(stmt, 14),
		Lon:            nullFloat(stmt, 15),
		Explanation:    json.RawMessage(stmt.ColumnText(16)),
		AssignedAt:     time.Unix(0, stmt.ColumnInt64(17)).UTC(),
	}
}

func (s *Store) GetAssignment(ctx context.Context, ticketID string) (models.AssignmentRecord, error) {
	var (
		rec   models.AssignmentRecord
		found bool
	)
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+assignmentColumns+` FROM assignments WHERE ticket_id = ?`, &sqlitex.ExecOptions{
			Args: []any{ticketID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec, found = scanAssignment(stmt), true
				return nil
			},
		})
	})
	if err != nil {
		return models.AssignmentRecord{}, err
	}
	if !found {
		return models.AssignmentRecord{}, service.ErrNotFound
	}
	return rec, nil
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
		wheres, args = append(wheres, "outcome = ?"), append(args, f.Outcome)
	}
	if f.OfficeID != "" {
		wheres, args = append(wheres, "office_id = ?"), append(args, f.OfficeID)
	}
	if f.ManagerID != "" {
		wheres, args = append(wheres, "manager_id = ?"), append(args, f.ManagerID)
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY priority DESC, assigned_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var out []models.AssignmentRecord
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, scanAssignment(stmt))
				return nil
			},
		})
	})
	return out, err
}

func readCounter(conn *sqlite.Conn) (int64, error) {
	var v int64
	err := sqlitex.Execute(conn, `SELECT rr_counter FROM routing_state WHERE id = 1`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			v = stmt.ColumnInt64(0)
			return nil
		},
	})
	return v, err
}

func (s *Store) CounterValue(ctx context.Context) (int64, error) {
	var v int64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		v, err = readCounter(conn)
		return err
	})
	return v, err
}

func (s *Store) ResetCounter(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `UPDATE routing_state SET rr_counter = 0 WHERE id = 1`, nil)
	})
}

func (s *Store) RestoreBaselineWorkloads(ctx context.Context) (int64, error) {
	var n int64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `UPDATE managers SET workload = baseline_workload, updated_at = ?`, &sqlitex.ExecOptions{
			Args: []any{time.Now().UnixNano()},
		})
		n = int64(conn.Changes())
		return err
	})
	return n, err
}

func (s *Store) ResetRouting(ctx context.Context) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, `
			DELETE FROM assignments;
			UPDATE managers SET workload = baseline_workload;
			UPDATE routing_state SET rr_counter = 0 WHERE id = 1;
		`, nil)
	})
}

func (s *Store) CreateRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO runs (id, status, started_at) VALUES (?, 'RUNNING', ?)`, &sqlitex.ExecOptions{
			Args: []any{id, time.Now().UnixNano()},
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, summary []byte) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{status, string(summary), time.Now().UnixNano(), runID},
		})
	})
}

func (s *Store) InAssignmentTx(ctx context.Context, fn func(tx service.AssignmentTx) error) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		atx := &assignmentTx{conn: conn}
		if err := fn(atx); err != nil {
			return err
		}
		return atx.flush()
	})
}

type assignmentTx struct {
	conn    *sqlite.Conn
	counter *service.TxCounter
}

func (a *assignmentTx) Counter(ctx context.Context) (routing.Counter, error) {
	if a.counter != nil {
		return a.counter, nil
	}
	v, err := readCounter(a.conn)
	if err != nil {
		return nil, err
	}
	a.counter = service.NewTxCounter(v)
	return a.counter, nil
}

// Managers reads inside the immediate transaction, which already holds the
// database write lock.
func (a *assignmentTx) Managers(ctx context.Context) ([]*models.Manager, error) {
	return readManagers(a.conn)
}

func (a *assignmentTx) IncrementWorkload(ctx context.Context, managerID string) error {
	err := sqlitex.Execute(a.conn, `UPDATE managers SET workload = workload + 1, updated_at = ? WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{time.Now().UnixNano(), managerID},
	})
	if err != nil {
		return err
	}
	if a.conn.Changes() == 0 {
		return fmt.Errorf("manager %s: %w", managerID, service.ErrNotFound)
	}
	return nil
}

func (a *assignmentTx) SaveAssignment(ctx context.Context, r models.AssignmentRecord) error {
	var runID any
	if r.RunID != "" {
		runID = r.RunID
	}
	return sqlitex.Execute(a.conn, `
		INSERT INTO assignments (id, run_id, ticket_id, segment, manager_id, office_id, outcome, strategy,
			type, sentiment, priority, language, summary, recommendation, lat, lon, explanation, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			r.ID, runID, r.TicketID, r.Segment, optional(r.ManagerID), optional(r.OfficeID), r.Outcome, r.Strategy,
			r.Type, r.Sentiment, r.Priority, r.Language, r.Summary, r.Recommendation,
			optional(r.Lat), optional(r.Lon), string(r.Explanation), r.AssignedAt.UnixNano(),
		},
	})
}

func (a *assignmentTx) flush() error {
	if a.counter == nil {
		return nil
	}
	v, dirty := a.counter.Pending()
	if !dirty {
		return nil
	}
	return sqlitex.Execute(a.conn, `UPDATE routing_state SET rr_counter = ? WHERE id = 1`, &sqlitex.ExecOptions{
		Args: []any{v},
	})
}
