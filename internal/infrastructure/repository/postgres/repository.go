// Package postgres persists analysis records and their child entities.
// Completing an analysis writes the record, summary and system tags in one
// transaction; structured data goes through a separate, non-critical write.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026081501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analysis_records (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_extension TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	document_type TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	processing_method TEXT,
	processing_duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	text_content TEXT,
	extracted_metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	llm_analysis JSONB,
	status TEXT NOT NULL,
	error_message TEXT,
	is_critical BOOLEAN NOT NULL DEFAULT FALSE,
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_summaries (
	document_id TEXT PRIMARY KEY REFERENCES analysis_records(id) ON DELETE CASCADE,
	short_summary TEXT,
	detailed_summary TEXT,
	key_points JSONB NOT NULL DEFAULT '[]'::jsonb,
	action_items JSONB NOT NULL DEFAULT '[]'::jsonb,
	model_used TEXT
);

CREATE TABLE IF NOT EXISTS document_tags (
	document_id TEXT NOT NULL REFERENCES analysis_records(id) ON DELETE CASCADE,
	tag_name TEXT NOT NULL,
	tag_type TEXT NOT NULL,
	PRIMARY KEY (document_id, tag_name)
);

CREATE TABLE IF NOT EXISTS extracted_medications (
	id BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES analysis_records(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	dose DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL,
	extracted_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	verified BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS extracted_lab_values (
	id BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES analysis_records(id) ON DELETE CASCADE,
	test_name TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	unit TEXT,
	is_abnormal BOOLEAN NOT NULL DEFAULT FALSE,
	extracted_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	verified BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_analysis_records_user ON analysis_records(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analysis_records_status ON analysis_records(status);
CREATE INDEX IF NOT EXISTS idx_extracted_medications_document ON extracted_medications(document_id);
CREATE INDEX IF NOT EXISTS idx_extracted_lab_values_document ON extracted_lab_values(document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
