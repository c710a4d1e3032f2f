// Package store persists analysis run summaries in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	apperrors "github.com/lilyanlefevre/formula-corrector/pkg/errors"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
	"github.com/lilyanlefevre/formula-corrector/pkg/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
	    id          UUID PRIMARY KEY,
	    source      TEXT NOT NULL,
	    data        JSONB NOT NULL,
	    created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS analysis_runs_created_at_idx ON analysis_runs (created_at DESC)`,
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("run-store"),
	}
}

// EnsureSchema creates the analysis_runs table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.Exec(ctx, schema...); err != nil {
		return fmt.Errorf("ensuring analysis_runs schema: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run analysis.RunSummary) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.ID, err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, source, data, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, run.Source, data, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	s.logger.Debug("run saved", "run_id", run.ID, "matches", run.TotalMatches)
	return nil
}

// LatestRun returns the newest run or ErrNotFound when none exist.
func (s *Store) LatestRun(ctx context.Context) (analysis.RunSummary, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analysis_runs ORDER BY created_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.RunSummary{}, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "no runs recorded")
	}
	if err != nil {
		return analysis.RunSummary{}, fmt.Errorf("querying latest run: %w", err)
	}
	var run analysis.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return analysis.RunSummary{}, fmt.Errorf("decoding latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. Undecodable rows are
// skipped.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]analysis.RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analysis_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]analysis.RunSummary, 0, limit)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		var run analysis.RunSummary
		if err := json.Unmarshal(data, &run); err != nil {
			s.logger.Warn("skipping corrupt run row", "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
