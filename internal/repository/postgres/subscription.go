package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// SubscriptionRepo implements the reminder scheduler's subscription source.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscription repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// ListActiveWithEmail returns every active subscription joined with its
// customer and service, restricted to customers reachable over email.
func (r *SubscriptionRepo) ListActiveWithEmail(ctx context.Context) ([]domain.ReminderCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.tenant_id, s.customer_id, s.service_id,
		       s.recurrence, s.anchor_day, COALESCE(s.anchor_month, 0), s.active,
		       c.name, c.email, sv.name, sv.price
		FROM subscriptions s
		JOIN customers c ON c.id = s.customer_id
		JOIN services sv ON sv.id = s.service_id
		WHERE s.active AND COALESCE(c.email,'') <> ''
	`)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	defer rows.Close()

	var out []domain.ReminderCandidate
	for rows.Next() {
		var cand domain.ReminderCandidate
		if err := rows.Scan(
			&cand.ID, &cand.TenantID, &cand.CustomerID, &cand.ServiceID,
			&cand.Recurrence, &cand.AnchorDay, &cand.AnchorMonth, &cand.Active,
			&cand.CustomerName, &cand.CustomerEmail, &cand.ServiceName, &cand.ServicePrice,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}
