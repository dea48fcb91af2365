package dispatch

import (
	"context"
	"time"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// CampaignRepository defines the campaign persistence contract the engine
// depends on. Implementations must be safe for concurrent use and must
// never partial-write a campaign mid-dispatch.
type CampaignRepository interface {
	// Get returns a single tenant-scoped campaign. Returns ErrNotFound if
	// it doesn't exist.
	Get(ctx context.Context, tenantID, id string) (*domain.Campaign, error)

	// ClaimForDispatch conditionally transitions a campaign from draft or
	// scheduled to sending. Returns false when the campaign was already
	// claimed, cancelled, or finished — the durable half of the
	// re-entrancy guard.
	ClaimForDispatch(ctx context.Context, id string) (bool, error)

	// MarkSent finishes a dispatch: status becomes sent and sentAt is
	// written exactly once.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed records a dispatch aborted before completing its
	// recipient list (process shutdown mid-run).
	MarkFailed(ctx context.Context, id string) error

	// ListDue returns campaigns with status scheduled whose scheduledAt
	// has arrived, oldest first.
	ListDue(ctx context.Context, now time.Time) ([]domain.Campaign, error)
}

// RunRepository persists per-run dispatch outcomes, for observability and
// as the durable already-ran marker for the reminder scan.
type RunRepository interface {
	RecordRun(ctx context.Context, outcome domain.DispatchOutcome) error

	// HasRun reports whether a run for the given campaign reference was
	// already recorded.
	HasRun(ctx context.Context, campaignRef string) (bool, error)
}

// AudienceResolver computes the recipient list for one campaign; satisfied
// by audience.Resolver.
type AudienceResolver interface {
	Resolve(ctx context.Context, tenantID string, mode domain.TargetAudience, channels domain.Channels, recipientIDs []string) ([]domain.Recipient, error)
}
