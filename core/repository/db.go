package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool
type DB struct {
	*sql.DB
}

// NewDB opens and pings a Postgres database
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS training_jobs (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	status          TEXT NOT NULL,
	current_epoch   INTEGER NOT NULL DEFAULT 0,
	total_epochs    INTEGER NOT NULL,
	training_loss   DOUBLE PRECISION,
	validation_loss DOUBLE PRECISION,
	learning_rate   DOUBLE PRECISION NOT NULL,
	mse_metric      DOUBLE PRECISION,
	spec_yaml       TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at      TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS job_events (
	id          BIGSERIAL PRIMARY KEY,
	job_id      UUID NOT NULL REFERENCES training_jobs(id) ON DELETE CASCADE,
	at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	from_status TEXT,
	to_status   TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	meta_json   JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS job_artifacts (
	id         BIGSERIAL PRIMARY KEY,
	job_id     UUID NOT NULL REFERENCES training_jobs(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	uri        TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	meta_json  JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS job_events_job_id_idx ON job_events (job_id, at DESC);
`

// Migrate creates the tables the development backend needs
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PostgresStore is the Store backed by Postgres
type PostgresStore struct {
	*JobRepository
	*EventRepository
	*ArtifactRepository
}

// NewPostgresStore builds a Store over db
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{
		JobRepository:      NewJobRepository(db),
		EventRepository:    NewEventRepository(db),
		ArtifactRepository: NewArtifactRepository(db),
	}
}
