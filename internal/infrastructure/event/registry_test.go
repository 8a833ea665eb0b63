package event

import (
	"context"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{eventTypes: eventTypes}
}

func (h *mockHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()
	registry.Register(handler, "BillCreated", "BillApproved")

	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("BillCreated"))
	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("BillApproved"))
	assert.Empty(t, registry.GetHandlers("BillPaid"))
}

func TestHandlerRegistry_WildcardKeepsSubscriptionOrder(t *testing.T) {
	registry := NewHandlerRegistry()
	accrual := newMockHandler()
	audit := newMockHandler()
	registry.Register(accrual, "BillApproved")
	registry.Register(audit)

	handlers := registry.GetHandlers("BillApproved")
	require.Len(t, handlers, 2)
	assert.Same(t, accrual, handlers[0])
	assert.Same(t, audit, handlers[1])

	handlers = registry.GetHandlers("RequestPaid")
	require.Len(t, handlers, 1)
	assert.Same(t, audit, handlers[0])
}

func TestHandlerRegistry_RegisterAgainWidensTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()
	registry.Register(handler, "BillCreated")
	registry.Register(handler, "BillApproved")

	assert.Equal(t, 1, registry.Len())
	assert.Len(t, registry.GetHandlers("BillCreated"), 1)
	assert.Len(t, registry.GetHandlers("BillApproved"), 1)

	registry.Register(handler)
	assert.Len(t, registry.GetHandlers("AnyEvent"), 1)
	assert.Equal(t, 1, registry.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := newMockHandler()
	second := newMockHandler()
	wildcard := newMockHandler()
	registry.Register(first, "BillCreated")
	registry.Register(second, "BillCreated")
	registry.Register(wildcard)

	registry.Unregister(first)
	registry.Unregister(wildcard)

	handlers := registry.GetHandlers("BillCreated")
	require.Len(t, handlers, 1)
	assert.Equal(t, second, handlers[0])
	assert.Equal(t, 1, registry.Len())
}
