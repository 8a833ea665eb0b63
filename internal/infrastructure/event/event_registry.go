package event

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"go.uber.org/zap"
)

// Subscription describes one handler to attach to the bus
type Subscription struct {
	// Name namespaces the idempotency markers of the handler
	Name    string
	Handler shared.EventHandler
	// Idempotent wraps the handler so redelivered events are skipped
	Idempotent bool
}

// RegisterHandlers subscribes every handler to the bus, wrapping the
// idempotent ones with the shared store. The returned metrics aggregate all
// wrapped handlers.
func RegisterHandlers(
	bus shared.EventSubscriber,
	store shared.IdempotencyStore,
	ttl time.Duration,
	logger *zap.Logger,
	subs ...Subscription,
) *IdempotencyMetrics {
	metrics := &IdempotencyMetrics{}
	for _, sub := range subs {
		handler := sub.Handler
		if sub.Idempotent && store != nil {
			handler = NewIdempotentHandler(sub.Name, handler, store, ttl, logger.Named(sub.Name), metrics)
		}
		bus.Subscribe(handler)
		logger.Info("event handler registered",
			zap.String("handler", sub.Name),
			zap.Strings("event_types", sub.Handler.EventTypes()),
			zap.Bool("idempotent", sub.Idempotent && store != nil),
		)
	}
	return metrics
}
