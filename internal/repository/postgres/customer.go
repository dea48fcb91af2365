package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/service/audience"
)

// CustomerRepo implements audience.CustomerRepository.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,'')
		FROM customers
		WHERE tenant_id = $1 AND id = ANY($2)
	`, tenantID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list customers by ids: %w", err)
	}
	defer rows.Close()
	return scanRecipients(rows)
}

func (r *CustomerRepo) ListByFilter(ctx context.Context, tenantID string, f audience.Filter) ([]domain.Recipient, error) {
	q := `
		SELECT c.id, c.name, COALESCE(c.email,''), COALESCE(c.phone,'')
		FROM customers c
		WHERE c.tenant_id = $1`

	switch f.Contactability {
	case audience.ContactEmail:
		q += ` AND COALESCE(c.email,'') <> ''`
	case audience.ContactPhone:
		q += ` AND COALESCE(c.phone,'') <> ''`
	case audience.ContactEither:
		q += ` AND (COALESCE(c.email,'') <> '' OR COALESCE(c.phone,'') <> '')`
	}

	const activeSubs = `EXISTS (
			SELECT 1 FROM subscriptions s
			WHERE s.customer_id = c.id AND s.active
		)`
	switch f.Activity {
	case audience.ActivityActive:
		q += ` AND ` + activeSubs
	case audience.ActivityInactive:
		q += ` AND NOT ` + activeSubs
	}

	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers by filter: %w", err)
	}
	defer rows.Close()
	return scanRecipients(rows)
}

func scanRecipients(rows *sql.Rows) ([]domain.Recipient, error) {
	var out []domain.Recipient
	for rows.Next() {
		var rcpt domain.Recipient
		if err := rows.Scan(&rcpt.CustomerID, &rcpt.Name, &rcpt.Email, &rcpt.Phone); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, rcpt)
	}
	return out, rows.Err()
}
