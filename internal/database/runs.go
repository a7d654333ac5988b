package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/sitemapper/internal/model"
)

// SaveRun inserts or updates a run summary.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.RunSummary) error {
	summaryJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run %s: %w", run.ID, err)
	}

	query := `
	INSERT INTO runs (id, seed, mode, status, started_at, finished_at, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		seed = excluded.seed,
		mode = excluded.mode,
		status = excluded.status,
		finished_at = excluded.finished_at,
		summary_json = excluded.summary_json
	`

	_, err = cdb.db.ExecContext(ctx, query,
		run.ID,
		seedKey(run.Seed),
		string(run.Mode),
		run.Status.String(),
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// LastRun returns the most recently started run for seed.
func (cdb *CrawlDB) LastRun(ctx context.Context, seed string) (*model.RunSummary, error) {
	query := `
	SELECT summary_json FROM runs
	WHERE seed = ?
	ORDER BY started_at DESC
	LIMIT 1
	`
	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, seedKey(seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to get last run for %s: %w", seed, err)
	}
	return run, nil
}

// ListRuns returns run summaries, newest first. limit <= 0 means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]*model.RunSummary, error) {
	query := `SELECT summary_json FROM runs ORDER BY started_at DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRuns removes every run summary and returns how many were removed.
func (cdb *CrawlDB) DeleteRuns(ctx context.Context) (int64, error) {
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunSummary, error) {
	var summaryJSON string
	if err := row.Scan(&summaryJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var run model.RunSummary
	if err := json.Unmarshal([]byte(summaryJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

// seedKey stores seeds in canonical form so "https://Example.com" and
// "https://example.com/" find the same runs.
func seedKey(seed string) string {
	if u, err := model.NormalizeURL(seed, nil); err == nil {
		return u.Key()
	}
	return seed
}
