package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx connection pool for the given DSN.
func Connect(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	cfg.MaxConns = 10

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the submission and attachment tables if they are
// missing. Runs before the server starts taking traffic.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS feedback_submissions (
			id              TEXT PRIMARY KEY,
			type            TEXT NOT NULL,
			subject         TEXT NOT NULL,
			description     TEXT NOT NULL,
			priority        TEXT NOT NULL,
			category        TEXT NOT NULL DEFAULT '',
			submitter_name  TEXT NOT NULL DEFAULT '',
			submitter_email TEXT NOT NULL DEFAULT '',
			project         TEXT NOT NULL DEFAULT '',
			company         TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'SUBMITTED',
			submitted_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feedback_attachments (
			id            TEXT PRIMARY KEY,
			submission_id TEXT NOT NULL REFERENCES feedback_submissions(id),
			file_name     TEXT NOT NULL,
			stored_path   TEXT NOT NULL,
			size_bytes    BIGINT NOT NULL,
			file_type     TEXT NOT NULL,
			uploaded_by   TEXT NOT NULL DEFAULT '',
			uploaded_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_attachments_submission
			ON feedback_attachments (submission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_submissions_email
			ON feedback_submissions (submitter_email)`,
		`CREATE TABLE IF NOT EXISTS requirement_attachments (
			id             TEXT PRIMARY KEY,
			account_id     TEXT NOT NULL,
			project_id     TEXT NOT NULL,
			requirement_id TEXT NOT NULL,
			file_name      TEXT NOT NULL,
			stored_path    TEXT NOT NULL,
			size_bytes     BIGINT NOT NULL,
			file_type      TEXT NOT NULL,
			uploaded_by    TEXT NOT NULL DEFAULT '',
			uploaded_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requirement_attachments_scope
			ON requirement_attachments (account_id, project_id, requirement_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
