package settlement

import (
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestKind distinguishes expense and income requests
type RequestKind string

const (
	RequestKindExpense RequestKind = "EXPENSE" // 支出申请
	RequestKindIncome  RequestKind = "INCOME"  // 收入申请
)

// IsValid checks if the kind is a valid RequestKind
func (k RequestKind) IsValid() bool {
	return k == RequestKindExpense || k == RequestKindIncome
}

// NumberPrefix returns the prefix used for request numbers
func (k RequestKind) NumberPrefix() string {
	if k == RequestKindIncome {
		return "INC"
	}
	return "EXP"
}

// Request is a single ad-hoc expense or income request
type Request struct {
	shared.BaseAggregateRoot
	Workflow
	RequestNumber string
	Kind          RequestKind
	Title         string
	Category      string
	PartyName     string
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Vouchers      []string
	Remark        string
	PaidBy        *uuid.UUID
	PaidAt        *time.Time
	ReceivedBy    *uuid.UUID
	ReceivedAt    *time.Time
	Payment       PaymentDetails
	CashFlowID    *uuid.UUID
}

// RequestParams carries the editable fields of a request
type RequestParams struct {
	Kind      RequestKind
	Title     string
	Category  string
	PartyName string
	Amount    decimal.Decimal
	Currency  valueobject.Currency
	Vouchers  []string
	Remark    string
}

// NewRequest creates a draft request
func NewRequest(number string, createdBy uuid.UUID, p RequestParams) (*Request, error) {
	if err := validateRequestParams(p); err != nil {
		return nil, err
	}
	r := &Request{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Workflow:          newWorkflow(createdBy),
		RequestNumber:     number,
	}
	r.assign(p)
	return r, nil
}

func validateRequestParams(p RequestParams) error {
	if !p.Kind.IsValid() {
		return shared.NewValidationError("invalid request kind %q", p.Kind)
	}
	if strings.TrimSpace(p.Title) == "" {
		return shared.NewValidationError("request title is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return shared.NewValidationError("request category is required")
	}
	if !p.Amount.IsPositive() {
		return shared.NewValidationError("request amount must be positive")
	}
	if !p.Currency.IsValid() {
		return shared.NewValidationError("invalid currency %q", p.Currency)
	}
	return nil
}

func (r *Request) assign(p RequestParams) {
	r.Kind = p.Kind
	r.Title = strings.TrimSpace(p.Title)
	r.Category = strings.TrimSpace(p.Category)
	r.PartyName = strings.TrimSpace(p.PartyName)
	r.Amount = p.Amount
	r.Currency = p.Currency
	r.Vouchers = append([]string(nil), p.Vouchers...)
	r.Remark = p.Remark
}

// DocumentKind returns the transition-table row set for this request
func (r *Request) DocumentKind() DocumentKind {
	if r.Kind == RequestKindIncome {
		return KindIncomeRequest
	}
	return KindExpenseRequest
}

// UpdateDraft replaces the editable fields of a draft request
func (r *Request) UpdateDraft(p RequestParams) error {
	if r.Status != StatusDraft {
		return shared.NewStateConflictError("edit request", string(r.Status))
	}
	if p.Kind != r.Kind {
		return shared.NewValidationError("request kind cannot change")
	}
	if err := validateRequestParams(p); err != nil {
		return err
	}
	r.assign(p)
	r.Touch()
	r.IncrementVersion()
	return nil
}

// SubmitForReview moves a draft request to finance review.
// Without an explicit voucher the first attached voucher is used.
func (r *Request) SubmitForReview(by uuid.UUID, voucher string) error {
	if err := requireActor(by, ActionSubmitForReview); err != nil {
		return err
	}
	if strings.TrimSpace(voucher) == "" && len(r.Vouchers) > 0 {
		voucher = r.Vouchers[0]
	}
	if err := r.submitForReview(r.DocumentKind(), voucher); err != nil {
		return err
	}
	r.touchAndRaise(ActionSubmitForReview, by)
	return nil
}

// FinanceApprove passes finance review
func (r *Request) FinanceApprove(by uuid.UUID) error {
	if err := requireActor(by, ActionFinanceApprove); err != nil {
		return err
	}
	if err := r.financeApprove(r.DocumentKind(), by); err != nil {
		return err
	}
	r.touchAndRaise(ActionFinanceApprove, by)
	return nil
}

// FinanceReject returns a request under finance review to draft
func (r *Request) FinanceReject(by uuid.UUID, reason string) error {
	return r.rejectWith(ActionFinanceReject, by, reason)
}

// Reject terminally rejects a request under review or awaiting approval
func (r *Request) Reject(by uuid.UUID, reason string) error {
	return r.rejectWith(ActionReject, by, reason)
}

func (r *Request) rejectWith(action Action, by uuid.UUID, reason string) error {
	if err := requireActor(by, action); err != nil {
		return err
	}
	if err := r.reject(r.DocumentKind(), action, by, reason); err != nil {
		return err
	}
	r.touchAndRaise(action, by)
	return nil
}

// Approve approves the request
func (r *Request) Approve(by uuid.UUID) error {
	if err := requireActor(by, ActionApprove); err != nil {
		return err
	}
	if err := r.approve(r.DocumentKind(), by); err != nil {
		return err
	}
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRequestApprovedEvent(r))
	return nil
}

// Pay settles an approved expense request
func (r *Request) Pay(by uuid.UUID, payment PaymentDetails, cashFlowID uuid.UUID) error {
	if err := requireActor(by, ActionPay); err != nil {
		return err
	}
	if err := r.transition(r.DocumentKind(), ActionPay); err != nil {
		return err
	}
	now := time.Now()
	r.CashierApprovedBy = &by
	r.CashierApprovedAt = &now
	r.PaidBy = &by
	r.PaidAt = &now
	r.Payment = payment
	r.CashFlowID = &cashFlowID
	r.touchAndRaise(ActionPay, by)
	return nil
}

// MarkReceived settles an approved income request once its pending entry is posted
func (r *Request) MarkReceived(by uuid.UUID, accountID uuid.UUID, accountName string, cashFlowID uuid.UUID) error {
	if err := requireActor(by, ActionReceive); err != nil {
		return err
	}
	if err := r.transition(r.DocumentKind(), ActionReceive); err != nil {
		return err
	}
	now := time.Now()
	r.ReceivedBy = &by
	r.ReceivedAt = &now
	r.Payment.AccountID = &accountID
	r.Payment.AccountName = accountName
	r.CashFlowID = &cashFlowID
	r.touchAndRaise(ActionReceive, by)
	return nil
}

func (r *Request) touchAndRaise(action Action, by uuid.UUID) {
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRequestStatusChangedEvent(r, action, by))
}
