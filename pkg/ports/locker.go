package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a consultation lock. It must be safe to call after the TTL
// has already expired.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes turns of one consultation across replicas that
// share a SessionStore. Without it, two replicas could both accept an answer to
// the same question and the later save would silently discard the earlier one.
type DistributedLocker interface {
	// Lock blocks until the consultation identified by sessionID is held, or ctx ends.
	// The lock lapses after ttl even if the holder dies mid-turn, so ttl must exceed
	// the longest expected turn, including info pacing.
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error)
}
