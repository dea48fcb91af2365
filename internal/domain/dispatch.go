package domain

import "time"

// RecipientFailure records one failed channel attempt during a dispatch run,
// kept for the aggregate outcome. Identity is by customer so operators can
// trace it without the engine persisting contact data.
type RecipientFailure struct {
	CustomerID string  `json:"customer_id"`
	Channel    Channel `json:"channel"`
	Reason     string  `json:"reason"`
}

// DispatchOutcome is the per-run aggregate for one campaign dispatch or one
// reminder scan. The campaign-level status transition is not conditioned on
// these counts; callers consult the outcome to learn delivery health.
type DispatchOutcome struct {
	CampaignID string             `json:"campaign_id"`
	Attempted  int                `json:"attempted"`
	Delivered  int                `json:"delivered"`
	Skipped    int                `json:"skipped"`
	Failed     int                `json:"failed"`
	Failures   []RecipientFailure `json:"failures,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// RecordFailure appends one channel failure to the outcome.
func (o *DispatchOutcome) RecordFailure(customerID string, ch Channel, reason string) {
	o.Failures = append(o.Failures, RecipientFailure{CustomerID: customerID, Channel: ch, Reason: reason})
}
