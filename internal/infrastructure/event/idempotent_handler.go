package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics counts outcomes across the wrapped handlers
type IdempotencyMetrics struct {
	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// IdempotencyStats is a snapshot of IdempotencyMetrics
type IdempotencyStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// Stats returns a snapshot of the counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed:  m.processed.Load(),
		Duplicates: m.duplicates.Load(),
		Failed:     m.failed.Load(),
	}
}

// IdempotentHandler applies each event at most once per handler name. The
// marker is released when the wrapped handler fails, so a redelivery retries
// the derived records.
type IdempotentHandler struct {
	name    string
	next    shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// NewIdempotentHandler wraps next. Markers are stored as "name:eventID" and
// kept for ttl. A nil metrics gets a private set of counters.
func NewIdempotentHandler(
	name string,
	next shared.EventHandler,
	store shared.IdempotencyStore,
	ttl time.Duration,
	logger *zap.Logger,
	metrics *IdempotencyMetrics,
) *IdempotentHandler {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyTTL
	}
	if metrics == nil {
		metrics = &IdempotencyMetrics{}
	}
	return &IdempotentHandler{
		name:    name,
		next:    next,
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle runs the wrapped handler unless the event was already applied
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.name + ":" + event.EventID().String()
	log := h.logger.With(
		zap.String("key", key),
		zap.String("event_type", event.EventType()),
	)

	isNew, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		// derived records carry natural keys, so running without a marker
		// cannot double-count
		log.Warn("idempotency store unavailable, processing anyway", zap.Error(err))
	case !isNew:
		h.metrics.duplicates.Add(1)
		log.Debug("duplicate event skipped")
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.metrics.failed.Add(1)
		log.Error("event handler failed", zap.Error(err))
		if isNew {
			if err := h.store.Unmark(ctx, key); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
		}
		return err
	}

	h.metrics.processed.Add(1)
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
