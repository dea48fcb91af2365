// Package postgres implements the engine's repository contracts against
// PostgreSQL via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/service/dispatch"
)

// CampaignRepo implements dispatch.CampaignRepository.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, tenant_id, name, COALESCE(subject,''), COALESCE(content,''),
	       target_audience, channels, COALESCE(recipient_ids,'{}'), status,
	       scheduled_at, sent_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var channels, recipientIDs []string
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Subject, &c.Content,
		&c.TargetAudience, pq.Array(&channels), pq.Array(&recipientIDs), &c.Status,
		&c.ScheduledAt, &c.SentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		c.Channels = append(c.Channels, domain.Channel(ch))
	}
	c.RecipientIDs = recipientIDs
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, tenantID, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, dispatch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// ClaimForDispatch is the durable half of the re-entrancy guard: the
// conditional WHERE means exactly one claimant wins, and cancelled or
// finished campaigns can never be re-entered.
func (r *CampaignRepo) ClaimForDispatch(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'sending', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'scheduled')
	`, id)
	if err != nil {
		return false, fmt.Errorf("claim campaign: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim campaign: %w", err)
	}
	return n > 0, nil
}

func (r *CampaignRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'sent', sent_at = $2, updated_at = NOW()
		WHERE id = $1 AND sent_at IS NULL
	`, id, sentAt)
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	return nil
}

func (r *CampaignRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'sending'
	`, id)
	if err != nil {
		return fmt.Errorf("mark campaign failed: %w", err)
	}
	return nil
}

func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT 50
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
