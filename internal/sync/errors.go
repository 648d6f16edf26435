package sync

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSyncRunning is returned when a push or pull is requested for a record
// type that already has one in flight.
var ErrSyncRunning = errors.New("sync already running for this record type")

// TransportError wraps a network-level failure (unreachable server, timeout,
// non-2xx response). Recoverable: the next scheduled invocation retries.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError marks a malformed or unexpected server response. Retried like
// a transport failure but kept distinguishable for diagnostics.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Recoverable reports whether err is worth retrying on the next scheduled
// run, as opposed to a local storage failure that aborted the invocation.
func Recoverable(err error) bool {
	var te *TransportError
	var pe *ProtocolError
	return errors.As(err, &te) || errors.As(err, &pe)
}

// ValidationError is a per-record rejection reported by the server in a push
// response. The record transitions to StatusInvalid and is not retried until
// re-edited.
type ValidationError struct {
	ID      uuid.UUID `json:"id"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %s rejected: %s", e.ID, e.Message)
	}
	return fmt.Sprintf("record %s rejected: %s: %s", e.ID, e.Field, e.Message)
}
