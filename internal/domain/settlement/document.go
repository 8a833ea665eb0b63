package settlement

import (
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentStatus is the lifecycle status shared by bills and requests
type DocumentStatus string

const (
	StatusDraft                DocumentStatus = "DRAFT"                  // 草稿
	StatusPendingFinanceReview DocumentStatus = "PENDING_FINANCE_REVIEW" // 待财务审核
	StatusPendingApproval      DocumentStatus = "PENDING_APPROVAL"       // 待审批
	StatusApproved             DocumentStatus = "APPROVED"               // 已审批
	StatusPaid                 DocumentStatus = "PAID"                   // 已付款/已结清
	StatusReceived             DocumentStatus = "RECEIVED"               // 已收款 (income requests)
	StatusRejected             DocumentStatus = "REJECTED"               // 已驳回 (requests only)
)

// IsValid checks if the status is a known DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingFinanceReview, StatusPendingApproval,
		StatusApproved, StatusPaid, StatusReceived, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further transition is possible
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusReceived || s == StatusRejected
}

// Action is a named transition of the document state machine
type Action string

const (
	ActionSubmitForReview Action = "submit_for_review"
	ActionFinanceApprove  Action = "finance_approve"
	ActionFinanceReject   Action = "finance_reject"
	ActionReject          Action = "reject"
	ActionApprove         Action = "approve"
	ActionPay             Action = "pay"
	ActionReceive         Action = "receive"
)

// DocumentKind selects a row set of the transition table.
// Bills are split by category because settlement differs: payables are paid,
// receivables are received through a pending entry.
type DocumentKind string

const (
	KindPayableBill    DocumentKind = "PAYABLE_BILL"
	KindReceivableBill DocumentKind = "RECEIVABLE_BILL"
	KindExpenseRequest DocumentKind = "EXPENSE_REQUEST"
	KindIncomeRequest  DocumentKind = "INCOME_REQUEST"
)

// RequiresPendingEntry reports whether approval queues a pending entry
func (k DocumentKind) RequiresPendingEntry() bool {
	return k == KindReceivableBill || k == KindIncomeRequest
}

// CashFlowType returns the ledger direction used when the document settles
func (k DocumentKind) CashFlowType() CashFlowType {
	if k == KindReceivableBill || k == KindIncomeRequest {
		return CashFlowIncome
	}
	return CashFlowExpense
}

type transition struct {
	from []DocumentStatus
	to   DocumentStatus
}

var (
	billTransitions = map[Action]transition{
		ActionSubmitForReview: {from: []DocumentStatus{StatusDraft}, to: StatusPendingFinanceReview},
		ActionFinanceApprove:  {from: []DocumentStatus{StatusPendingFinanceReview}, to: StatusPendingApproval},
		ActionFinanceReject:   {from: []DocumentStatus{StatusPendingFinanceReview}, to: StatusDraft},
		ActionReject:          {from: []DocumentStatus{StatusPendingFinanceReview, StatusPendingApproval}, to: StatusDraft},
		ActionApprove:         {from: []DocumentStatus{StatusPendingApproval}, to: StatusApproved},
	}

	requestTransitions = map[Action]transition{
		ActionSubmitForReview: {from: []DocumentStatus{StatusDraft}, to: StatusPendingFinanceReview},
		ActionFinanceApprove:  {from: []DocumentStatus{StatusPendingFinanceReview}, to: StatusPendingApproval},
		ActionFinanceReject:   {from: []DocumentStatus{StatusPendingFinanceReview}, to: StatusDraft},
		ActionReject:          {from: []DocumentStatus{StatusPendingFinanceReview, StatusPendingApproval}, to: StatusRejected},
		ActionApprove:         {from: []DocumentStatus{StatusPendingApproval}, to: StatusApproved},
	}

	transitionTable = map[DocumentKind]map[Action]transition{
		KindPayableBill: withSettlement(billTransitions,
			ActionPay, transition{from: []DocumentStatus{StatusApproved}, to: StatusPaid}),
		KindReceivableBill: withSettlement(billTransitions,
			ActionReceive, transition{from: []DocumentStatus{StatusApproved}, to: StatusPaid}),
		KindExpenseRequest: withSettlement(requestTransitions,
			ActionPay, transition{from: []DocumentStatus{StatusApproved}, to: StatusPaid}),
		KindIncomeRequest: withSettlement(requestTransitions,
			ActionReceive, transition{from: []DocumentStatus{StatusApproved}, to: StatusReceived}),
	}
)

func withSettlement(base map[Action]transition, action Action, t transition) map[Action]transition {
	out := make(map[Action]transition, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[action] = t
	return out
}

// NextStatus looks up the transition table.
// An action the kind does not support is a ValidationError; a supported action
// attempted from the wrong status is a StateConflictError.
func NextStatus(kind DocumentKind, action Action, from DocumentStatus) (DocumentStatus, error) {
	rows, ok := transitionTable[kind]
	if !ok {
		return "", shared.NewValidationError("unknown document kind %s", kind)
	}
	t, ok := rows[action]
	if !ok {
		return "", shared.NewValidationError("%s is not supported for %s", action, kind)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", shared.NewStateConflictError(string(action), string(from))
}

// CanPerform reports whether action is allowed from status for kind
func CanPerform(kind DocumentKind, action Action, status DocumentStatus) bool {
	_, err := NextStatus(kind, action, status)
	return err == nil
}

// Workflow carries the approval trail shared by bills and requests.
// All status changes go through transition so the table above is the only
// place that knows which moves are legal.
type Workflow struct {
	Status                    DocumentStatus
	CreatedBy                 uuid.UUID
	PaymentApplicationVoucher string
	SubmittedToFinanceAt      *time.Time
	FinanceReviewedBy         *uuid.UUID
	FinanceReviewedAt         *time.Time
	SubmittedAt               *time.Time
	ApprovedBy                *uuid.UUID
	ApprovedAt                *time.Time
	CashierApprovedBy         *uuid.UUID
	CashierApprovedAt         *time.Time
	RejectedBy                *uuid.UUID
	RejectedAt                *time.Time
	RejectionReason           string
}

func newWorkflow(createdBy uuid.UUID) Workflow {
	return Workflow{Status: StatusDraft, CreatedBy: createdBy}
}

func (w *Workflow) transition(kind DocumentKind, action Action) error {
	next, err := NextStatus(kind, action, w.Status)
	if err != nil {
		return err
	}
	w.Status = next
	return nil
}

func (w *Workflow) submitForReview(kind DocumentKind, voucher string) error {
	if !CanPerform(kind, ActionSubmitForReview, w.Status) {
		return w.transition(kind, ActionSubmitForReview)
	}
	voucher = strings.TrimSpace(voucher)
	if voucher == "" {
		voucher = w.PaymentApplicationVoucher
	}
	if voucher == "" {
		return shared.NewValidationError("a payment application voucher is required before submitting for review")
	}
	if err := w.transition(kind, ActionSubmitForReview); err != nil {
		return err
	}
	now := time.Now()
	w.PaymentApplicationVoucher = voucher
	w.SubmittedToFinanceAt = &now
	w.RejectionReason = ""
	return nil
}

func (w *Workflow) financeApprove(kind DocumentKind, by uuid.UUID) error {
	if err := w.transition(kind, ActionFinanceApprove); err != nil {
		return err
	}
	now := time.Now()
	w.FinanceReviewedBy = &by
	w.FinanceReviewedAt = &now
	w.SubmittedAt = &now
	return nil
}

func (w *Workflow) reject(kind DocumentKind, action Action, by uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if !CanPerform(kind, action, w.Status) {
		return w.transition(kind, action)
	}
	if reason == "" {
		return shared.NewValidationError("rejection reason is required")
	}
	if err := w.transition(kind, action); err != nil {
		return err
	}
	now := time.Now()
	w.RejectedBy = &by
	w.RejectedAt = &now
	w.RejectionReason = reason
	return nil
}

func (w *Workflow) approve(kind DocumentKind, by uuid.UUID) error {
	if err := w.transition(kind, ActionApprove); err != nil {
		return err
	}
	now := time.Now()
	w.ApprovedBy = &by
	w.ApprovedAt = &now
	return nil
}

// PaymentDetails describes how a payable document was paid
type PaymentDetails struct {
	VoucherNumber string
	AccountID     *uuid.UUID
	AccountName   string
	Method        string
	Voucher       string
	Remarks       string
}

func requireActor(by uuid.UUID, action Action) error {
	if by == uuid.Nil {
		return shared.NewValidationError("%s requires an acting user", action)
	}
	return nil
}

func validMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return shared.NewValidationError("month must be formatted as YYYY-MM, got %q", month)
	}
	return nil
}
