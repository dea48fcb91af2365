package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// TargetAudience selects the rule used to resolve a campaign's recipient set.
type TargetAudience string

const (
	AudienceAll      TargetAudience = "all"
	AudienceActive   TargetAudience = "active"
	AudienceInactive TargetAudience = "inactive"
	AudienceSpecific TargetAudience = "specific"
)

// Channel is a delivery medium with its own transport and failure domain.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// Channels is the non-empty set of channels a campaign fans out across.
type Channels []Channel

// Has reports whether the set contains the given channel.
func (cs Channels) Has(c Channel) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

// Strings returns the channel set as plain strings, for DB array binding.
func (cs Channels) Strings() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// Campaign represents one tenant-scoped outbound broadcast definition.
type Campaign struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Name    string `json:"name" db:"name"`
	Subject string `json:"subject" db:"subject"` // required only when the email channel is selected
	Content string `json:"content" db:"content"` // rich HTML body, channel-agnostic source of truth

	TargetAudience TargetAudience `json:"target_audience" db:"target_audience"`
	Channels       Channels       `json:"channels" db:"channels"`
	RecipientIDs   []string       `json:"recipient_ids" db:"recipient_ids"` // meaningful only for AudienceSpecific

	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"` // nil means draft, dispatch only on manual trigger
	SentAt      *time.Time     `json:"sent_at" db:"sent_at"`           // set exactly once, when dispatch finishes

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state. Terminal
// campaigns are immutable to the dispatch path and never re-entered by
// the scheduler.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed || c.Status == CampaignCancelled
}

// Dispatchable reports whether the dispatch engine may claim this campaign.
func (c *Campaign) Dispatchable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}
