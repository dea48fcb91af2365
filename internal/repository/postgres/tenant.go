package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clientloop/dispatch-engine/internal/channel"
)

// TenantRepo resolves per-tenant mail sender identities; implements
// channel.IdentityResolver.
type TenantRepo struct{ db *sql.DB }

// NewTenantRepo creates a Postgres-backed tenant settings repository.
func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

func (r *TenantRepo) SenderIdentity(ctx context.Context, tenantID string) (channel.SenderIdentity, error) {
	var ident channel.SenderIdentity
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(mail_from_name,''), COALESCE(mail_from_email,'')
		FROM tenant_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(&ident.FromName, &ident.FromEmail)
	if err == sql.ErrNoRows {
		return ident, channel.ErrIdentityNotConfigured
	}
	if err != nil {
		return ident, fmt.Errorf("get tenant sender identity: %w", err)
	}
	if ident.FromEmail == "" {
		return ident, channel.ErrIdentityNotConfigured
	}
	return ident, nil
}
