package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
)

// MetricsRecorder receives business measurements derived from domain events
type MetricsRecorder interface {
	RecordBillCreated(ctx context.Context, category, billType string)
	RecordBillTransition(ctx context.Context, action, status string)
	RecordBillSettled(ctx context.Context, action string, amount float64)
	RecordRequestTransition(ctx context.Context, kind, action, status string)
	RecordRequestApproved(ctx context.Context, kind, currency string, amount float64)
}

// MetricsHandler turns domain events into business metrics
type MetricsHandler struct {
	recorder MetricsRecorder
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(recorder MetricsRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// EventTypes returns the bill and request events the handler measures
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		settlement.EventTypeBillCreated,
		settlement.EventTypeBillStatusChanged,
		settlement.EventTypeBillApproved,
		settlement.EventTypeBillSettled,
		settlement.EventTypeRequestStatusChanged,
		settlement.EventTypeRequestApproved,
	}
}

// Handle records the measurement for a single event. Unknown events are ignored.
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *settlement.BillCreatedEvent:
		h.recorder.RecordBillCreated(ctx, string(e.Category), string(e.Type))
	case *settlement.BillStatusChangedEvent:
		h.recorder.RecordBillTransition(ctx, string(e.Action), string(e.Status))
	case *settlement.BillApprovedEvent:
		h.recorder.RecordBillTransition(ctx, string(settlement.ActionApprove), string(settlement.StatusApproved))
	case *settlement.BillSettledEvent:
		h.recorder.RecordBillTransition(ctx, string(e.Action), string(settlement.StatusPaid))
		h.recorder.RecordBillSettled(ctx, string(e.Action), e.NetAmount.InexactFloat64())
	case *settlement.RequestStatusChangedEvent:
		h.recorder.RecordRequestTransition(ctx, string(e.Kind), string(e.Action), string(e.Status))
	case *settlement.RequestApprovedEvent:
		h.recorder.RecordRequestTransition(ctx, string(e.Kind), string(settlement.ActionApprove), string(settlement.StatusApproved))
		h.recorder.RecordRequestApproved(ctx, string(e.Kind), string(e.Currency), e.Amount.InexactFloat64())
	}
	return nil
}

var _ shared.EventHandler = (*MetricsHandler)(nil)
