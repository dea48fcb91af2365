// Package channel implements the per-channel delivery surface of the
// dispatch engine.
//
// Each channel (email, chat) wraps a transport collaborator behind a uniform
// "deliver one message to one recipient" contract. Senders are stateless:
// all session and credential state lives in the transport implementations.
// Transport failures are classified into the Kind taxonomy so the dispatch
// engine can record them without knowing transport internals.
package channel
