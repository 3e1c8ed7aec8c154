package db

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS offices (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	address    TEXT NOT NULL DEFAULT '',
	lat        DOUBLE PRECISION,
	lon        DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS managers (
	id                TEXT PRIMARY KEY,
	full_name         TEXT NOT NULL,
	position          TEXT NOT NULL,
	office_id         TEXT NOT NULL REFERENCES offices(id),
	skills            TEXT[] NOT NULL DEFAULT '{}',
	workload          INTEGER NOT NULL DEFAULT 0 CHECK (workload >= 0),
	baseline_workload INTEGER NOT NULL DEFAULT 0,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	status      TEXT NOT NULL,
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS assignments (
	id             UUID PRIMARY KEY,
	run_id         UUID REFERENCES runs(id),
	ticket_id      TEXT NOT NULL UNIQUE REFERENCES tickets(id),
	segment        TEXT NOT NULL DEFAULT '',
	manager_id     TEXT REFERENCES managers(id),
	office_id      TEXT REFERENCES offices(id),
	outcome        TEXT NOT NULL,
	strategy       TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT '',
	sentiment      TEXT NOT NULL DEFAULT '',
	priority       INTEGER NOT NULL DEFAULT 0,
	language       TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	recommendation TEXT NOT NULL DEFAULT '',
	lat            DOUBLE PRECISION,
	lon            DOUBLE PRECISION,
	explanation    JSONB NOT NULL,
	assigned_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS assignments_outcome_idx ON assignments (outcome);
CREATE INDEX IF NOT EXISTS assignments_manager_idx ON assignments (manager_id);

CREATE TABLE IF NOT EXISTS routing_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	rr_counter BIGINT NOT NULL DEFAULT 0
);

INSERT INTO routing_state (id, rr_counter) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}
