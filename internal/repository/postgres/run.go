package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// RunRepo implements dispatch.RunRepository: one row per campaign dispatch
// or reminder scan, for delivery-health observability.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a Postgres-backed dispatch-run repository.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) RecordRun(ctx context.Context, o domain.DispatchOutcome) error {
	failures, err := json.Marshal(o.Failures)
	if err != nil {
		return fmt.Errorf("marshal run failures: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dispatch_runs
			(id, campaign_ref, attempted, delivered, skipped, failed, failures, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.New().String(), o.CampaignID, o.Attempted, o.Delivered, o.Skipped, o.Failed,
		failures, o.StartedAt, o.FinishedAt)
	if err != nil {
		return fmt.Errorf("record dispatch run: %w", err)
	}
	return nil
}

func (r *RunRepo) HasRun(ctx context.Context, campaignRef string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM dispatch_runs WHERE campaign_ref = $1)
	`, campaignRef).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check dispatch run: %w", err)
	}
	return exists, nil
}
