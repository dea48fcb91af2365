package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/clientloop/dispatch-engine/internal/channel"
	"github.com/clientloop/dispatch-engine/internal/content"
	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/pkg/logger"
	"github.com/clientloop/dispatch-engine/internal/pkg/ratelimit"
)

// Engine orchestrates one campaign dispatch: audience resolution, content
// transformation, channel fan-out, rate limiting, and the final status
// transition.
type Engine struct {
	campaigns CampaignRepository
	runs      RunRepository
	audience  AudienceResolver
	email     channel.Sender
	chat      channel.Sender
	limiter   ratelimit.Limiter
	now       func() time.Time
}

// NewEngine creates a dispatch engine with all collaborators injected.
// A nil runs repository disables run persistence; a nil now defaults to
// time.Now.
func NewEngine(
	campaigns CampaignRepository,
	runs RunRepository,
	audience AudienceResolver,
	email, chat channel.Sender,
	limiter ratelimit.Limiter,
	now func() time.Time,
) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		campaigns: campaigns,
		runs:      runs,
		audience:  audience,
		email:     email,
		chat:      chat,
		limiter:   limiter,
		now:       now,
	}
}

// DispatchByID loads a tenant's campaign and dispatches it. This is the
// manual "send now" path.
func (e *Engine) DispatchByID(ctx context.Context, tenantID, campaignID string) (*domain.DispatchOutcome, error) {
	c, err := e.campaigns.Get(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	return e.Dispatch(ctx, c)
}

// Dispatch runs the send algorithm for a single campaign across its
// resolved recipients. The campaign finishes in sent regardless of
// per-recipient outcomes; only claim conflicts, resolution failures, and
// mid-run cancellation surface as errors.
func (e *Engine) Dispatch(ctx context.Context, c *domain.Campaign) (*domain.DispatchOutcome, error) {
	if c.Status == domain.CampaignSent {
		return nil, ErrAlreadySent
	}
	if !c.Dispatchable() {
		return nil, fmt.Errorf("%w: status %s", ErrNotDispatchable, c.Status)
	}

	claimed, err := e.campaigns.ClaimForDispatch(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("claim campaign: %w", err)
	}
	if !claimed {
		return nil, ErrAlreadyClaimed
	}
	c.Status = domain.CampaignSending

	recipients, err := e.audience.Resolve(ctx, c.TenantID, c.TargetAudience, c.Channels, c.RecipientIDs)
	if err != nil {
		e.markFailed(c.ID)
		return nil, fmt.Errorf("resolve audience: %w", err)
	}

	outcome := &domain.DispatchOutcome{
		CampaignID: c.ID,
		StartedAt:  e.now(),
	}

	// Transform once; the chat rendering is identical for every recipient.
	var chatBody string
	if c.Channels.Has(domain.ChannelChat) {
		chatBody = content.ToPlainText(c.Content)
	}

	for _, rcpt := range recipients {
		if err := e.limiter.Wait(ctx); err != nil {
			// Process is shutting down mid-run. Leave a durable marker so
			// the campaign is not silently stuck in sending.
			e.markFailed(c.ID)
			return outcome, fmt.Errorf("dispatch interrupted: %w", err)
		}

		outcome.Attempted++
		sentAny := false

		if c.Channels.Has(domain.ChannelEmail) && rcpt.HasEmail() {
			if err := e.email.Send(ctx, c.TenantID, rcpt, c.Subject, c.Content); err != nil {
				outcome.RecordFailure(rcpt.CustomerID, domain.ChannelEmail, err.Error())
				logger.Warn("email send failed",
					"campaign_id", c.ID,
					"customer_id", rcpt.CustomerID,
					"recipient", rcpt.Email,
					"kind", string(channel.KindOf(err)),
					"error", err)
			} else {
				sentAny = true
			}
		}

		if c.Channels.Has(domain.ChannelChat) && rcpt.HasPhone() {
			if err := e.chat.Send(ctx, c.TenantID, rcpt, "", chatBody); err != nil {
				outcome.RecordFailure(rcpt.CustomerID, domain.ChannelChat, err.Error())
				logger.Warn("chat send failed",
					"campaign_id", c.ID,
					"customer_id", rcpt.CustomerID,
					"phone", rcpt.Phone,
					"kind", string(channel.KindOf(err)),
					"error", err)
			} else {
				sentAny = true
			}
		}

		switch {
		case sentAny:
			outcome.Delivered++
		case !rcpt.Reachable(c.Channels):
			outcome.Skipped++
		default:
			outcome.Failed++
		}
	}

	sentAt := e.now()
	outcome.FinishedAt = sentAt
	if err := e.campaigns.MarkSent(ctx, c.ID, sentAt); err != nil {
		return outcome, fmt.Errorf("mark campaign sent: %w", err)
	}
	c.Status = domain.CampaignSent
	c.SentAt = &sentAt

	if e.runs != nil {
		if err := e.runs.RecordRun(ctx, *outcome); err != nil {
			logger.Error("record dispatch run", "campaign_id", c.ID, "error", err)
		}
	}

	logger.Info("campaign dispatched",
		"campaign_id", c.ID,
		"tenant_id", c.TenantID,
		"attempted", outcome.Attempted,
		"delivered", outcome.Delivered,
		"skipped", outcome.Skipped,
		"failed", outcome.Failed)

	return outcome, nil
}

// markFailedTimeout bounds the detached FAILED write below.
const markFailedTimeout = 5 * time.Second

// markFailed writes the FAILED marker on a fresh context. The dispatch
// context is usually already cancelled when this runs, and a write issued
// on it would be rejected before reaching the database, leaving the
// campaign stuck in sending.
func (e *Engine) markFailed(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), markFailedTimeout)
	defer cancel()
	if err := e.campaigns.MarkFailed(ctx, id); err != nil {
		logger.Error("mark campaign failed", "campaign_id", id, "error", err)
	}
}
