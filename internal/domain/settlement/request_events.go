package settlement

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names for requests
const (
	EventTypeRequestStatusChanged = "RequestStatusChanged"
	EventTypeRequestApproved      = "RequestApproved"

	aggregateTypeRequest = "Request"
)

// RequestStatusChangedEvent is raised on every non-approval transition
type RequestStatusChangedEvent struct {
	shared.BaseDomainEvent
	RequestID     uuid.UUID      `json:"request_id"`
	RequestNumber string         `json:"request_number"`
	Kind          RequestKind    `json:"kind"`
	Action        Action         `json:"action"`
	Status        DocumentStatus `json:"status"`
	ActorID       uuid.UUID      `json:"actor_id"`
	Reason        string         `json:"reason,omitempty"`
}

// NewRequestStatusChangedEvent creates a new RequestStatusChangedEvent
func NewRequestStatusChangedEvent(r *Request, action Action, actor uuid.UUID) *RequestStatusChangedEvent {
	return &RequestStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestStatusChanged, aggregateTypeRequest, r.ID),
		RequestID:       r.ID,
		RequestNumber:   r.RequestNumber,
		Kind:            r.Kind,
		Action:          action,
		Status:          r.Status,
		ActorID:         actor,
		Reason:          r.RejectionReason,
	}
}

// RequestApprovedEvent is raised when a request reaches APPROVED
type RequestApprovedEvent struct {
	shared.BaseDomainEvent
	RequestID     uuid.UUID            `json:"request_id"`
	RequestNumber string               `json:"request_number"`
	Kind          RequestKind          `json:"kind"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      valueobject.Currency `json:"currency"`
}

// NewRequestApprovedEvent creates a new RequestApprovedEvent
func NewRequestApprovedEvent(r *Request) *RequestApprovedEvent {
	return &RequestApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestApproved, aggregateTypeRequest, r.ID),
		RequestID:       r.ID,
		RequestNumber:   r.RequestNumber,
		Kind:            r.Kind,
		Amount:          r.Amount,
		Currency:        r.Currency,
	}
}
