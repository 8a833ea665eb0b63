package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingEntryType names the document a pending entry settles
type PendingEntryType string

const (
	PendingEntryTypeBill          PendingEntryType = "BILL"
	PendingEntryTypeIncomeRequest PendingEntryType = "INCOME_REQUEST"
)

// IsValid checks if the type is a valid PendingEntryType
func (t PendingEntryType) IsValid() bool {
	return t == PendingEntryTypeBill || t == PendingEntryTypeIncomeRequest
}

// PendingEntryStatus is the completion state of a pending entry
type PendingEntryStatus string

const (
	PendingEntryStatusPending   PendingEntryStatus = "PENDING"   // 待入账
	PendingEntryStatusCompleted PendingEntryStatus = "COMPLETED" // 已入账
)

// PendingEntry is an approved receivable waiting for a human to post it to an account
type PendingEntry struct {
	shared.BaseAggregateRoot
	Type          PendingEntryType
	RelatedID     uuid.UUID
	RelatedNumber string
	Category      BillCategory
	Amount        decimal.Decimal
	NetAmount     decimal.Decimal
	Currency      valueobject.Currency
	ApprovedBy    *uuid.UUID
	ApprovedAt    *time.Time
	Status        PendingEntryStatus
	AccountID     *uuid.UUID
	AccountName   string
	EntryDate     *time.Time
	CompletedBy   *uuid.UUID
	CompletedAt   *time.Time
	CashFlowID    *uuid.UUID
}

// NewPendingEntryForBill queues an approved receivable bill
func NewPendingEntryForBill(b *Bill) (*PendingEntry, error) {
	if b.Category != BillCategoryReceivable {
		return nil, shared.NewValidationError("only receivable bills create pending entries")
	}
	if b.Status != StatusApproved {
		return nil, shared.NewStateConflictError("queue pending entry", string(b.Status))
	}
	return &PendingEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              PendingEntryTypeBill,
		RelatedID:         b.ID,
		RelatedNumber:     b.BillNumber,
		Category:          b.Category,
		Amount:            b.TotalAmount,
		NetAmount:         b.NetAmount,
		Currency:          b.Currency,
		ApprovedBy:        b.ApprovedBy,
		ApprovedAt:        b.ApprovedAt,
		Status:            PendingEntryStatusPending,
	}, nil
}

// NewPendingEntryForRequest queues an approved income request
func NewPendingEntryForRequest(r *Request) (*PendingEntry, error) {
	if r.Kind != RequestKindIncome {
		return nil, shared.NewValidationError("only income requests create pending entries")
	}
	if r.Status != StatusApproved {
		return nil, shared.NewStateConflictError("queue pending entry", string(r.Status))
	}
	return &PendingEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              PendingEntryTypeIncomeRequest,
		RelatedID:         r.ID,
		RelatedNumber:     r.RequestNumber,
		Category:          BillCategoryReceivable,
		Amount:            r.Amount,
		NetAmount:         r.Amount,
		Currency:          r.Currency,
		ApprovedBy:        r.ApprovedBy,
		ApprovedAt:        r.ApprovedAt,
		Status:            PendingEntryStatusPending,
	}, nil
}

// CashFlowType maps the entry category to a ledger direction
func (e *PendingEntry) CashFlowType() CashFlowType {
	if e.Category == BillCategoryPayable {
		return CashFlowExpense
	}
	return CashFlowIncome
}

// IsCompleted reports whether the entry has been posted
func (e *PendingEntry) IsCompleted() bool {
	return e.Status == PendingEntryStatusCompleted
}

// Complete records the posting that settled this entry
func (e *PendingEntry) Complete(account *Account, entryDate time.Time, by uuid.UUID, cashFlowID uuid.UUID) error {
	if e.IsCompleted() {
		return shared.NewStateConflictError("complete pending entry", string(e.Status))
	}
	if by == uuid.Nil {
		return shared.NewValidationError("completing a pending entry requires an acting user")
	}
	if entryDate.IsZero() {
		return shared.NewValidationError("entry date is required")
	}
	now := time.Now()
	accountID := account.ID
	e.Status = PendingEntryStatusCompleted
	e.AccountID = &accountID
	e.AccountName = account.Name
	e.EntryDate = &entryDate
	e.CompletedBy = &by
	e.CompletedAt = &now
	e.CashFlowID = &cashFlowID
	e.Touch()
	e.IncrementVersion()
	return nil
}
