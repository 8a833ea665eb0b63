package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a handler has already applied.
// Derived-record handlers use it so a redelivered event never accrues twice.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// Unmark releases a key so a failed handler run can be retried
	Unmark(ctx context.Context, eventID string) error

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}

// DefaultIdempotencyTTL is how long a processed marker is kept when the
// configuration does not say otherwise
const DefaultIdempotencyTTL = 24 * time.Hour
