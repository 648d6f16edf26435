package sync

// Status is the sync lifecycle state of a single record.
type Status string

const (
	// StatusPending marks a record created or edited locally and not yet pushed.
	StatusPending Status = "PENDING"
	// StatusInFlight marks a record reserved into a push batch awaiting the
	// server response. Transient: no coordinator invocation may terminate
	// leaving records in this state.
	StatusInFlight Status = "IN_FLIGHT"
	// StatusDone marks a record acknowledged by the server.
	StatusDone Status = "DONE"
	// StatusInvalid marks a record the server rejected with a validation
	// error. Not retried until a local edit returns it to StatusPending.
	StatusInvalid Status = "INVALID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInFlight, StatusDone, StatusInvalid:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether from -> to is a permitted lifecycle
// transition. Repositories enforce this on every status write.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInFlight
	case StatusInFlight:
		// Done on server ack, Invalid on a reported validation error,
		// Pending when a failed push reverts its reservation.
		return to == StatusDone || to == StatusInvalid || to == StatusPending
	case StatusDone, StatusInvalid:
		return to == StatusPending
	}
	return false
}
