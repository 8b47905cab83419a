package freshness

// Record is the last-seen row for one device within one stream.
type Record struct {
	StreamID    string
	TelemetryID string
	// LastSeen is the stored timestamp exactly as the backend returned it.
	// Nil means the row exists without the attribute.
	LastSeen *string
}
