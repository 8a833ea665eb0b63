package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names for bills
const (
	EventTypeBillCreated       = "BillCreated"
	EventTypeBillStatusChanged = "BillStatusChanged"
	EventTypeBillApproved      = "BillApproved"
	EventTypeBillSettled       = "BillSettled"

	aggregateTypeBill = "Bill"
)

// BillCreatedEvent is raised when a draft bill is created
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID       `json:"bill_id"`
	BillNumber string          `json:"bill_number"`
	Category   BillCategory    `json:"category"`
	Type       BillType        `json:"type"`
	NetAmount  decimal.Decimal `json:"net_amount"`
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, aggregateTypeBill, b.ID),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		Category:        b.Category,
		Type:            b.Type,
		NetAmount:       b.NetAmount,
	}
}

// BillStatusChangedEvent is raised on review and rejection transitions
type BillStatusChangedEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID      `json:"bill_id"`
	BillNumber string         `json:"bill_number"`
	Action     Action         `json:"action"`
	Status     DocumentStatus `json:"status"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Reason     string         `json:"reason,omitempty"`
}

// NewBillStatusChangedEvent creates a new BillStatusChangedEvent
func NewBillStatusChangedEvent(b *Bill, action Action, actor uuid.UUID) *BillStatusChangedEvent {
	return &BillStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillStatusChanged, aggregateTypeBill, b.ID),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		Action:          action,
		Status:          b.Status,
		ActorID:         actor,
		Reason:          b.RejectionReason,
	}
}

// BillApprovedEvent is raised when a bill reaches APPROVED.
// It carries everything the rebate projections need so the handler does not
// depend on re-reading a bill that may have moved on.
type BillApprovedEvent struct {
	shared.BaseDomainEvent
	BillID             uuid.UUID            `json:"bill_id"`
	BillNumber         string               `json:"bill_number"`
	Month              string               `json:"month"`
	Category           BillCategory         `json:"category"`
	Type               BillType             `json:"type"`
	IsRebateAggregator bool                 `json:"is_rebate_aggregator"`
	AgencyID           *uuid.UUID           `json:"agency_id,omitempty"`
	AgencyName         string               `json:"agency_name"`
	AdAccountID        string               `json:"ad_account_id"`
	NetAmount          decimal.Decimal      `json:"net_amount"`
	Currency           valueobject.Currency `json:"currency"`
	RebateKey          string               `json:"rebate_key"`
	RebateKeyFallback  bool                 `json:"rebate_key_fallback"`
	ApprovedBy         uuid.UUID            `json:"approved_by"`
	ApprovedAt         time.Time            `json:"approved_at"`
}

// NewBillApprovedEvent creates a new BillApprovedEvent
func NewBillApprovedEvent(b *Bill) *BillApprovedEvent {
	e := &BillApprovedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeBillApproved, aggregateTypeBill, b.ID),
		BillID:             b.ID,
		BillNumber:         b.BillNumber,
		Month:              b.Month,
		Category:           b.Category,
		Type:               b.Type,
		IsRebateAggregator: b.IsRebateAggregator,
		AgencyID:           b.AgencyID,
		AgencyName:         b.AgencyName,
		AdAccountID:        b.AdAccountID,
		NetAmount:          b.NetAmount,
		Currency:           b.Currency,
		RebateKey:          b.RebateKey(),
		RebateKeyFallback:  b.RebateKeyIsFallback(),
	}
	if b.ApprovedBy != nil {
		e.ApprovedBy = *b.ApprovedBy
	}
	if b.ApprovedAt != nil {
		e.ApprovedAt = *b.ApprovedAt
	}
	return e
}

// AccruesRebate reports whether this approval feeds the rebate sub-ledger
func (e *BillApprovedEvent) AccruesRebate() bool {
	return e.Type == BillTypeAdRebate && !e.IsRebateAggregator && e.AgencyID != nil
}

// ReceivableKey is the rebate receivable key this approval accrues under.
// Only valid when AccruesRebate is true.
func (e *BillApprovedEvent) ReceivableKey() RebateKey {
	return RebateKey{
		AgencyID:    *e.AgencyID,
		AdAccountID: e.AdAccountID,
		RechargeID:  e.RebateKey,
		Fallback:    e.RebateKeyFallback,
	}
}

// BillSettledEvent is raised when a bill is paid or received
type BillSettledEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID       `json:"bill_id"`
	BillNumber string          `json:"bill_number"`
	Action     Action          `json:"action"`
	NetAmount  decimal.Decimal `json:"net_amount"`
	CashFlowID *uuid.UUID      `json:"cash_flow_id,omitempty"`
}

// NewBillSettledEvent creates a new BillSettledEvent
func NewBillSettledEvent(b *Bill, action Action) *BillSettledEvent {
	return &BillSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillSettled, aggregateTypeBill, b.ID),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		Action:          action,
		NetAmount:       b.NetAmount,
		CashFlowID:      b.CashFlowID,
	}
}
