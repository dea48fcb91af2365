// Package audience resolves a campaign's target-audience mode into the
// concrete recipient list.
//
// Modes ALL, ACTIVE, and INACTIVE query the tenant's customer set under two
// AND-combined predicates: contactability (derived from the campaign's
// channel set) and subscription activity. Mode SPECIFIC bypasses both and
// returns exactly the named customers; the dispatch engine's per-recipient
// skip logic covers their missing contact fields.
package audience
