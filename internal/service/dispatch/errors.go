package dispatch

import "errors"

// Sentinel errors for the dispatch engine. All are campaign-level: they
// surface to the caller of Dispatch and never affect other campaigns in
// the same scheduler sweep.
var (
	ErrNotFound        = errors.New("campaign not found")
	ErrAlreadySent     = errors.New("campaign already sent")
	ErrNotDispatchable = errors.New("campaign is not in a dispatchable state")
	ErrAlreadyClaimed  = errors.New("campaign already claimed by another dispatch")
)
