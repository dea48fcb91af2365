package audience

import (
	"context"
	"fmt"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// Resolver computes the concrete recipient list for a campaign. An empty
// result is valid, never an error: the dispatch engine treats a zero-
// recipient campaign as a no-op that still completes.
type Resolver struct {
	customers CustomerRepository
}

// NewResolver creates a resolver backed by the given customer repository.
func NewResolver(customers CustomerRepository) *Resolver {
	return &Resolver{customers: customers}
}

// Resolve returns the recipients for one campaign. recipientIDs is
// consulted only for the SPECIFIC mode. No ordering is guaranteed.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, mode domain.TargetAudience, channels domain.Channels, recipientIDs []string) ([]domain.Recipient, error) {
	switch mode {
	case domain.AudienceSpecific:
		if len(recipientIDs) == 0 {
			return nil, nil
		}
		return r.customers.ListByIDs(ctx, tenantID, recipientIDs)
	case domain.AudienceAll:
		return r.customers.ListByFilter(ctx, tenantID, Filter{
			Contactability: contactabilityFor(channels),
			Activity:       ActivityAny,
		})
	case domain.AudienceActive:
		return r.customers.ListByFilter(ctx, tenantID, Filter{
			Contactability: contactabilityFor(channels),
			Activity:       ActivityActive,
		})
	case domain.AudienceInactive:
		return r.customers.ListByFilter(ctx, tenantID, Filter{
			Contactability: contactabilityFor(channels),
			Activity:       ActivityInactive,
		})
	default:
		return nil, fmt.Errorf("unknown target audience %q", mode)
	}
}

// contactabilityFor derives the contact-field predicate from the selected
// channels: both channels accept either contact method, a single channel
// requires its own.
func contactabilityFor(channels domain.Channels) Contactability {
	email := channels.Has(domain.ChannelEmail)
	chat := channels.Has(domain.ChannelChat)
	switch {
	case email && chat:
		return ContactEither
	case email:
		return ContactEmail
	default:
		return ContactPhone
	}
}
