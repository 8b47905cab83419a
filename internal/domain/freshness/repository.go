package freshness

import "context"

// Store is an exact-match lookup of the last-seen record for a device.
type Store interface {
	// GetLastSeen returns (nil, nil) when no record exists for the pair.
	GetLastSeen(ctx context.Context, streamID, telemetryID string) (*Record, error)
}
