package audience

import (
	"context"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// Contactability is the contact-field predicate derived from a campaign's
// channel set.
type Contactability int

const (
	// ContactEither requires a non-empty email OR a non-empty phone.
	ContactEither Contactability = iota
	// ContactEmail requires a non-empty email.
	ContactEmail
	// ContactPhone requires a non-empty phone.
	ContactPhone
)

// Activity is the subscription-activity predicate.
type Activity int

const (
	// ActivityAny imposes no activity constraint.
	ActivityAny Activity = iota
	// ActivityActive requires at least one active service subscription.
	ActivityActive
	// ActivityInactive requires zero active service subscriptions.
	ActivityInactive
)

// Filter combines the two orthogonal audience predicates.
type Filter struct {
	Contactability Contactability
	Activity       Activity
}

// CustomerRepository is the read-side contract the resolver queries.
// Implementations must be safe for concurrent use.
type CustomerRepository interface {
	// ListByIDs returns the customers among ids that belong to the tenant,
	// in no particular order. Unknown or foreign ids are silently dropped.
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Recipient, error)

	// ListByFilter returns the tenant's customers satisfying both filter
	// predicates.
	ListByFilter(ctx context.Context, tenantID string, f Filter) ([]domain.Recipient, error)
}
