package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/flyer-scout/internal/types"
)

// SaveRun stores a completed extraction and returns the new run id.
func (db *DB) SaveRun(ctx context.Context, req types.ExtractRequest, resp *types.ExtractResponse) (string, error) {
	sources, err := json.Marshal(req.SourceURLs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal source urls: %w", err)
	}
	items, err := json.Marshal(nonNil(resp.Items))
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}
	warnings, err := json.Marshal(nonNil(resp.Warnings))
	if err != nil {
		return "", fmt.Errorf("failed to marshal warnings: %w", err)
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO extraction_runs
		     (id, store_id, mode, source_urls, items, item_count, warnings, pages, tiles, elapsed_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, string(resp.StoreID), string(resp.Mode), sources, items, resp.Count, warnings,
		resp.Meta.Pages, resp.Meta.Tiles, resp.Meta.ElapsedMs,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id.String(), nil
}

// GetRun retrieves a run by ID. It returns nil, nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*ExtractionRun, error) {
	var run ExtractionRun
	var storeID, mode string
	var sources, items, warnings []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, store_id, mode, source_urls, items, item_count, warnings, pages, tiles, elapsed_ms, created_at
		 FROM extraction_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &storeID, &mode, &sources, &items, &run.Count, &warnings,
		&run.Meta.Pages, &run.Meta.Tiles, &run.Meta.ElapsedMs, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StoreID = types.StoreID(storeID)
	run.Mode = types.Mode(mode)
	if err := json.Unmarshal(sources, &run.SourceURLs); err != nil {
		return nil, fmt.Errorf("failed to decode source urls of run %s: %w", runID, err)
	}
	if err := json.Unmarshal(items, &run.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of run %s: %w", runID, err)
	}
	if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings of run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent runs of a store, newest first
func (db *DB) ListRuns(ctx context.Context, storeID types.StoreID, limit int) ([]RunSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, store_id, mode, item_count, jsonb_array_length(warnings), created_at
		 FROM extraction_runs WHERE store_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		string(storeID), clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var sid, mode string
		if err := rows.Scan(&r.ID, &sid, &mode, &r.Count, &r.Warnings, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StoreID = types.StoreID(sid)
		r.Mode = types.Mode(mode)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun deletes a run. It returns ErrNotFound when no run has that id.
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM extraction_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
