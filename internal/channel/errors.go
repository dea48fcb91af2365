package channel

import (
	"errors"
	"fmt"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// Kind classifies a transport failure. Every kind is recoverable by
// isolation: the dispatch engine logs it against the offending recipient
// and moves on.
type Kind string

const (
	// KindConfigurationMissing means the tenant has no usable transport
	// credentials (no sender identity, no API key).
	KindConfigurationMissing Kind = "configuration_missing"

	// KindSessionNotConnected means the tenant's chat session is not in a
	// connected state. This engine never attempts to establish or repair
	// the session.
	KindSessionNotConnected Kind = "session_not_connected"

	// KindTransportRejected means the provider took the request and
	// refused it.
	KindTransportRejected Kind = "transport_rejected"

	// KindNetworkError means the provider could not be reached: connection
	// failures and timeouts.
	KindNetworkError Kind = "network_error"
)

// Error is a classified transport failure for one channel.
type Error struct {
	Channel domain.Channel
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Channel, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Channel, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a classified channel failure.
func NewError(ch domain.Channel, kind Kind, err error) *Error {
	return &Error{Channel: ch, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err. Unclassified errors report
// as transport rejections.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransportRejected
}

// ErrNoAddress is returned when a sender is invoked for a recipient that
// has no contact field for that channel. The dispatch engine checks
// contactability first, so seeing this error indicates a caller bug.
var ErrNoAddress = errors.New("recipient has no address for channel")
