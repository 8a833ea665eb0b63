package settlement

import (
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashFlowType is the direction of a ledger line
type CashFlowType string

const (
	CashFlowIncome  CashFlowType = "INCOME"  // 收入
	CashFlowExpense CashFlowType = "EXPENSE" // 支出
)

// IsValid checks if the type is a valid CashFlowType
func (t CashFlowType) IsValid() bool {
	return t == CashFlowIncome || t == CashFlowExpense
}

// CashFlowStatus marks whether a line counts toward balances
type CashFlowStatus string

const (
	CashFlowConfirmed CashFlowStatus = "CONFIRMED"
	CashFlowPending   CashFlowStatus = "PENDING"
)

// RelatedType names what produced a cash-flow event
type RelatedType string

const (
	RelatedBill         RelatedType = "BILL"
	RelatedRequest      RelatedType = "REQUEST"
	RelatedPendingEntry RelatedType = "PENDING_ENTRY"
	RelatedManual       RelatedType = "MANUAL"
)

// CashFlowEvent is a posted ledger line. Amount is an unsigned magnitude;
// the sign comes from Type.
type CashFlowEvent struct {
	ID               uuid.UUID
	Date             time.Time
	Type             CashFlowType
	Amount           decimal.Decimal
	AccountID        uuid.UUID
	Currency         valueobject.Currency
	Status           CashFlowStatus
	IsReversal       bool
	ReversalReason   string
	ReversedBy       *uuid.UUID
	ReversedAt       *time.Time
	RelatedID        *uuid.UUID
	RelatedType      RelatedType
	VoucherNumber    string
	OriginalAmount   decimal.Decimal
	OriginalCurrency valueobject.Currency
	ExchangeRate     decimal.Decimal
	Description      string
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
}

// NewCashFlowEventParams holds the inputs of a posting
type NewCashFlowEventParams struct {
	Date          time.Time
	Type          CashFlowType
	Amount        decimal.Decimal
	Account       *Account
	Status        CashFlowStatus
	RelatedID     *uuid.UUID
	RelatedType   RelatedType
	VoucherNumber string
	Description   string
	CreatedBy     uuid.UUID
	// Source amount and currency when the document currency differs from the account's
	OriginalAmount   decimal.Decimal
	OriginalCurrency valueobject.Currency
	ExchangeRate     decimal.Decimal
}

// NewCashFlowEvent builds a ledger line against an account
func NewCashFlowEvent(p NewCashFlowEventParams) (*CashFlowEvent, error) {
	if p.Account == nil {
		return nil, shared.NewValidationError("account is required")
	}
	if !p.Type.IsValid() {
		return nil, shared.NewValidationError("invalid cash flow type %q", p.Type)
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewValidationError("cash flow amount must be positive")
	}
	if p.Date.IsZero() {
		return nil, shared.NewValidationError("cash flow date is required")
	}
	if p.Status == "" {
		p.Status = CashFlowConfirmed
	}
	if p.OriginalCurrency == "" {
		p.OriginalCurrency = p.Account.Currency
		p.OriginalAmount = p.Amount
	}
	return &CashFlowEvent{
		ID:               uuid.New(),
		Date:             p.Date,
		Type:             p.Type,
		Amount:           p.Amount,
		AccountID:        p.Account.ID,
		Currency:         p.Account.Currency,
		Status:           p.Status,
		RelatedID:        p.RelatedID,
		RelatedType:      p.RelatedType,
		VoucherNumber:    p.VoucherNumber,
		OriginalAmount:   p.OriginalAmount,
		OriginalCurrency: p.OriginalCurrency,
		ExchangeRate:     p.ExchangeRate,
		Description:      p.Description,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        time.Now(),
	}, nil
}

// SignedAmount returns +Amount for income and -Amount for expense
func (e *CashFlowEvent) SignedAmount() decimal.Decimal {
	if e.Type == CashFlowExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// CountsTowardBalance reports whether the line is confirmed and not reversed
func (e *CashFlowEvent) CountsTowardBalance() bool {
	return e.Status == CashFlowConfirmed && !e.IsReversal
}

// Reverse voids the line; reversed lines drop out of every balance
func (e *CashFlowEvent) Reverse(reason string, by uuid.UUID) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("reversal reason is required")
	}
	if e.IsReversal {
		return shared.NewStateConflictError("reverse cash flow", "REVERSED")
	}
	now := time.Now()
	e.IsReversal = true
	e.ReversalReason = reason
	e.ReversedBy = &by
	e.ReversedAt = &now
	return nil
}
