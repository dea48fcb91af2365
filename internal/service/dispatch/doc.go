// Package dispatch implements the campaign dispatch engine.
//
// One Dispatch run resolves the campaign's audience, fans the content out
// across the selected channels recipient by recipient, and finishes by
// flipping the campaign to sent. Delivery is best-effort: per-recipient
// failures are isolated and counted, never rolled back, and a campaign with
// zero successful deliveries still completes. Callers consult the returned
// DispatchOutcome to learn delivery health.
//
// All collaborators (repositories, channel senders, rate limiter, clock)
// are constructor dependencies; the engine holds no hidden state.
package dispatch
