package sync

// Resolution is the outcome of the conflict policy for one pulled record.
type Resolution int

const (
	// ResolutionInsert: no local copy exists, insert the payload as Done.
	ResolutionInsert Resolution = iota
	// ResolutionOverwrite: the server copy wins, overwrite and set Done.
	ResolutionOverwrite
	// ResolutionKeepLocal: an unsynced local edit wins, discard the payload.
	ResolutionKeepLocal
)

// Resolve decides which copy survives when a pulled payload collides with
// local state. A record in Pending or InFlight carries an edit the server has
// not seen; overwriting it would silently lose local work, so the server copy
// is discarded for that id. Once the local copy is Done or Invalid the server
// is authoritative.
func Resolve(localExists bool, local Status) Resolution {
	if !localExists {
		return ResolutionInsert
	}
	switch local {
	case StatusPending, StatusInFlight:
		return ResolutionKeepLocal
	default:
		return ResolutionOverwrite
	}
}
