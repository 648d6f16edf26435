package sync

// Batch size tiers. Tuned per record type: verbose payloads (medical history,
// protocols) sync in small pages, high-volume vitals use the default.
const (
	BatchSizeVerySmall = 10
	BatchSizeSmall     = 50
	BatchSizeDefault   = 250
)

// Group classifies how often the scheduler runs a record type.
type Group string

const (
	GroupFrequent Group = "frequent"
	GroupDaily    Group = "daily"
)

// Config is the per-record-type tuning the coordinator runs under.
type Config struct {
	// RecordType keys cursor storage and transport routes.
	RecordType string

	// BatchSize bounds one push request and one pull page.
	BatchSize int

	// Group selects the scheduler cadence for this type.
	Group Group

	// ResyncToken is the payload schema version. When it advances past the
	// token the stored cursor was issued under, the cursor is invalidated
	// and the next pull starts from scratch.
	ResyncToken int

	// LegacyCursor switches the pull request to the older timestamp-cursor
	// query parameters still used by some record types.
	LegacyCursor bool
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = BatchSizeDefault
	}
	if c.Group == "" {
		c.Group = GroupFrequent
	}
	return c
}
