package conversation

import "context"

// Repository stores chat messages per session.
type Repository interface {
	// Append stores msg and evicts the oldest messages of the session beyond
	// the repository's per-session limit.
	Append(ctx context.Context, msg *Message) error
	// List returns up to limit of the most recent messages, oldest first.
	// A limit <= 0 returns the whole session.
	List(ctx context.Context, sessionID string, limit int) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]SessionInfo, error)
	Stats(ctx context.Context, sessionID string) (*Stats, error)
	Close() error
}
