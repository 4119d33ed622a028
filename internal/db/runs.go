package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/license-delivery/internal/types"
)

// RunStatus maps a run's terminal error to a ledger status.
func RunStatus(runErr error) string {
	if runErr != nil {
		return RunStatusFailed
	}
	return RunStatusCompleted
}

// SaveSummary writes a finished run and its outcomes in one transaction.
// Saving the same run twice replaces the earlier rows.
func (db *DB) SaveSummary(ctx context.Context, summary *types.RunSummary, runErr error) error {
	if summary == nil {
		return errors.New("summary is nil")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var errMsg *string
	if runErr != nil {
		errMsg = nullable(runErr.Error())
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO delivery_runs (id, mode, run_date, status, discovered, enriched,
		                            enrichment_failures, error_message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status, discovered = EXCLUDED.discovered,
		     enriched = EXCLUDED.enriched, enrichment_failures = EXCLUDED.enrichment_failures,
		     error_message = EXCLUDED.error_message, completed_at = EXCLUDED.completed_at`,
		summary.Run.RunID, string(summary.Mode), summary.Run.Today, RunStatus(runErr),
		summary.Discovered, summary.Enriched, summary.EnrichmentFailures, errMsg,
		summary.Run.StartedAt, summary.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_outcomes WHERE run_id = $1`, summary.Run.RunID); err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}

	if len(summary.Outcomes) > 0 {
		batch := &pgx.Batch{}
		for i, o := range summary.Outcomes {
			batch.Queue(
				`INSERT INTO ticket_outcomes (run_id, seq, phase, parent_key, child_key, status, stage, artifact, error_message)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				summary.Run.RunID, i, string(o.Phase), o.ParentKey, nullable(o.ChildKey),
				string(o.Status), nullable(o.Stage), nullable(o.Artifact), nullable(o.ErrorMessage()),
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range summary.Outcomes {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to save outcome: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to save outcomes: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a delivery run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, mode, run_date, status, discovered, enriched, enrichment_failures,
		        error_message, started_at, completed_at
		 FROM delivery_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Mode, &run.RunDate, &run.Status, &run.Discovered, &run.Enriched,
		&run.EnrichmentFailures, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves recent delivery runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, mode, run_date, status, discovered, enriched, enrichment_failures,
		        error_message, started_at, completed_at
		 FROM delivery_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Mode, &run.RunDate, &run.Status, &run.Discovered, &run.Enriched,
			&run.EnrichmentFailures, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListOutcomes retrieves a run's ticket outcomes in the order they were recorded
func (db *DB) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]Outcome, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, seq, phase, parent_key, child_key, status, stage, artifact,
		        error_message, created_at
		 FROM ticket_outcomes WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.ID, &o.RunID, &o.Seq, &o.Phase, &o.ParentKey, &o.ChildKey, &o.Status,
			&o.Stage, &o.Artifact, &o.ErrorMessage, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
