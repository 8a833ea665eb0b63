package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := startedBus(t)

	handler := newTestHandler("BillApproved")
	bus.Subscribe(handler, "BillApproved")

	event := newTestEvent("BillApproved")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEvents(t *testing.T) {
	bus := startedBus(t)

	handler := newTestHandler("BillApproved")
	bus.Subscribe(handler, "BillApproved")

	err := bus.Publish(context.Background(), newTestEvent("BillApproved"), newTestEvent("BillApproved"))

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := startedBus(t)

	handler1 := newTestHandler("BillApproved")
	handler2 := newTestHandler("BillApproved")
	bus.Subscribe(handler1, "BillApproved")
	bus.Subscribe(handler2, "BillApproved")

	err := bus.Publish(context.Background(), newTestEvent("BillApproved"))

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerOwnTypes(t *testing.T) {
	bus := startedBus(t)

	handler := newTestHandler("BillSettled")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("BillSettled"), newTestEvent("BillCreated")))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := startedBus(t)

	wildcardHandler := newTestHandler()
	bus.Subscribe(wildcardHandler)

	err := bus.Publish(context.Background(), newTestEvent("AnyEventType"))

	require.NoError(t, err)
	assert.Len(t, wildcardHandler.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := startedBus(t)

	handler1 := newTestHandler("BillApproved")
	handler1.setError(errors.New("handler error"))
	handler2 := newTestHandler("BillApproved")
	bus.Subscribe(handler1, "BillApproved")
	bus.Subscribe(handler2, "BillApproved")

	err := bus.Publish(context.Background(), newTestEvent("BillApproved"))

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
	assert.Equal(t, int64(1), bus.Failures())
}

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := startedBus(t)

	panicking := newTestHandler("BillApproved")
	panicking.panicWith = "boom"
	after := newTestHandler("BillApproved")
	bus.Subscribe(panicking, "BillApproved")
	bus.Subscribe(after, "BillApproved")

	require.NotPanics(t, func() {
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("BillApproved")))
	})
	assert.Len(t, after.getHandled(), 1)
	assert.Equal(t, int64(1), bus.Failures())
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := startedBus(t)

	handler := newTestHandler("OtherEvent")
	bus.Subscribe(handler, "OtherEvent")

	err := bus.Publish(context.Background(), newTestEvent("BillApproved"))

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 0)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)

	handler := newTestHandler("BillApproved")
	bus.Subscribe(handler, "BillApproved")

	_ = bus.Publish(context.Background(), newTestEvent("BillApproved"))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent("BillApproved"))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("BillApproved")
	bus.Subscribe(handler, "BillApproved")

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newTestEvent("BillApproved")))
	assert.Empty(t, handler.getHandled(), "not started yet")

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("BillApproved")))
	assert.Len(t, handler.getHandled(), 1)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))

	require.NoError(t, bus.Publish(ctx, newTestEvent("BillApproved")))
	assert.Len(t, handler.getHandled(), 1)
}
