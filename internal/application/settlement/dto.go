package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillInput is the editable payload of a bill
type BillInput struct {
	ID             *uuid.UUID      `json:"id"`
	Month          string          `json:"month" binding:"required,yearmonth"`
	Category       string          `json:"category" binding:"required,oneof=PAYABLE RECEIVABLE"`
	Type           string          `json:"type" binding:"required,oneof=AD LOGISTICS FACTORY_ORDER STORE_REPAYMENT AD_REBATE OTHER"`
	AgencyID       *uuid.UUID      `json:"agency_id"`
	AgencyName     string          `json:"agency_name"`
	SupplierName   string          `json:"supplier_name"`
	FactoryName    string          `json:"factory_name"`
	AdAccountID    string          `json:"ad_account_id"`
	TotalAmount    decimal.Decimal `json:"total_amount" binding:"required"`
	RebateAmount   decimal.Decimal `json:"rebate_amount"`
	Currency       string          `json:"currency" binding:"required,currency"`
	RechargeIDs    []string        `json:"recharge_ids"`
	ConsumptionIDs []string        `json:"consumption_ids"`
	Remark         string          `json:"remark" binding:"max=500"`
}

func (in BillInput) params() (settlement.BillParams, error) {
	currency, err := valueobject.ParseCurrency(in.Currency)
	if err != nil {
		return settlement.BillParams{}, shared.NewValidationError("%s", err.Error())
	}
	return settlement.BillParams{
		Month:          in.Month,
		Category:       settlement.BillCategory(in.Category),
		Type:           settlement.BillType(in.Type),
		AgencyID:       in.AgencyID,
		AgencyName:     in.AgencyName,
		SupplierName:   in.SupplierName,
		FactoryName:    in.FactoryName,
		AdAccountID:    in.AdAccountID,
		TotalAmount:    in.TotalAmount,
		RebateAmount:   in.RebateAmount,
		Currency:       currency,
		RechargeIDs:    in.RechargeIDs,
		ConsumptionIDs: in.ConsumptionIDs,
		Remark:         in.Remark,
	}, nil
}

// RequestInput is the editable payload of an expense or income request
type RequestInput struct {
	Kind      string          `json:"kind" binding:"required,oneof=EXPENSE INCOME"`
	Title     string          `json:"title" binding:"required,max=200"`
	Category  string          `json:"category" binding:"required,max=50"`
	PartyName string          `json:"party_name"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Currency  string          `json:"currency" binding:"required,currency"`
	Vouchers  []string        `json:"vouchers"`
	Remark    string          `json:"remark" binding:"max=500"`
}

func (in RequestInput) params() (settlement.RequestParams, error) {
	currency, err := valueobject.ParseCurrency(in.Currency)
	if err != nil {
		return settlement.RequestParams{}, shared.NewValidationError("%s", err.Error())
	}
	return settlement.RequestParams{
		Kind:      settlement.RequestKind(in.Kind),
		Title:     in.Title,
		Category:  in.Category,
		PartyName: in.PartyName,
		Amount:    in.Amount,
		Currency:  currency,
		Vouchers:  in.Vouchers,
		Remark:    in.Remark,
	}, nil
}

// SubmitInput carries the payment application voucher
type SubmitInput struct {
	Voucher string `json:"voucher"`
}

// RejectInput carries the rejection reason
type RejectInput struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PayInput describes a cashier payment
type PayInput struct {
	AccountID    uuid.UUID        `json:"account_id" binding:"required"`
	Method       string           `json:"method" binding:"max=50"`
	Voucher      string           `json:"voucher"`
	Remarks      string           `json:"remarks" binding:"max=500"`
	Date         *time.Time       `json:"date"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate"`
}

// CompleteEntryInput posts a pending entry to an account
type CompleteEntryInput struct {
	AccountID    uuid.UUID        `json:"account_id" binding:"required"`
	EntryDate    time.Time        `json:"entry_date" binding:"required"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate"`
}

// ConsumptionInput is an ad-spend consumption to write off against rebates
type ConsumptionInput struct {
	ID          string          `json:"id" binding:"required"`
	AgencyID    uuid.UUID       `json:"agency_id" binding:"required"`
	AdAccountID string          `json:"ad_account_id"`
	Date        time.Time       `json:"date" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// WriteOffInput is a direct write-off against one receivable
type WriteOffInput struct {
	ConsumptionID string          `json:"consumption_id" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
}

// AdjustInput is a signed manual correction of a receivable balance
type AdjustInput struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// AccountInput describes one account in a full account list
type AccountInput struct {
	ID             *uuid.UUID      `json:"id"`
	Name           string          `json:"name" binding:"required,max=100"`
	Currency       string          `json:"currency" binding:"required,currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	Category       string          `json:"category" binding:"required,oneof=PRIMARY VIRTUAL STANDALONE"`
	ParentID       *uuid.UUID      `json:"parent_id"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
}

// CashFlowInput is a manual ledger posting
type CashFlowInput struct {
	AccountID     uuid.UUID       `json:"account_id" binding:"required"`
	Type          string          `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
	VoucherNumber string          `json:"voucher_number"`
	Description   string          `json:"description" binding:"max=500"`
}

// ReverseInput carries the reversal reason
type ReverseInput struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// AgencyInput describes an agency
type AgencyInput struct {
	Name       string          `json:"name" binding:"required,max=100"`
	RebateRate decimal.Decimal `json:"rebate_rate"`
	Currency   string          `json:"currency" binding:"omitempty,currency"`
}

// ExchangeRatesInput carries live rates keyed by currency code
type ExchangeRatesInput struct {
	Rates map[string]decimal.Decimal `json:"rates" binding:"required"`
}

// BillListFilter represents filter options for bill lists
type BillListFilter struct {
	Status     string     `form:"status"`
	Category   string     `form:"category"`
	Type       string     `form:"type"`
	Month      string     `form:"month"`
	AgencyID   *uuid.UUID `form:"-"`
	Aggregator *bool      `form:"aggregator"`
	Search     string     `form:"search"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RequestListFilter represents filter options for request lists
type RequestListFilter struct {
	Kind     string `form:"kind"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RebateListFilter represents filter options for receivable lists
type RebateListFilter struct {
	AgencyID    *uuid.UUID `form:"-"`
	AdAccountID string     `form:"ad_account_id"`
	Status      string     `form:"status"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CashFlowListFilter represents filter options for the ledger
type CashFlowListFilter struct {
	AccountID *uuid.UUID `form:"-"`
	Status    string     `form:"status"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=500"`
}

func pageFilter(page, pageSize int) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	return f
}

// BillResponse represents a bill in API responses
type BillResponse struct {
	ID                        uuid.UUID                 `json:"id"`
	BillNumber                string                    `json:"bill_number"`
	Month                     string                    `json:"month"`
	Category                  settlement.BillCategory   `json:"category"`
	Type                      settlement.BillType       `json:"type"`
	PartyName                 string                    `json:"party_name"`
	AgencyID                  *uuid.UUID                `json:"agency_id,omitempty"`
	AgencyName                string                    `json:"agency_name,omitempty"`
	SupplierName              string                    `json:"supplier_name,omitempty"`
	FactoryName               string                    `json:"factory_name,omitempty"`
	AdAccountID               string                    `json:"ad_account_id,omitempty"`
	TotalAmount               decimal.Decimal           `json:"total_amount"`
	RebateAmount              decimal.Decimal           `json:"rebate_amount"`
	NetAmount                 decimal.Decimal           `json:"net_amount"`
	Currency                  valueobject.Currency      `json:"currency"`
	RechargeIDs               []string                  `json:"recharge_ids"`
	ConsumptionIDs            []string                  `json:"consumption_ids"`
	IsRebateAggregator        bool                      `json:"is_rebate_aggregator"`
	Remark                    string                    `json:"remark,omitempty"`
	Status                    settlement.DocumentStatus `json:"status"`
	PaymentApplicationVoucher string                    `json:"payment_application_voucher,omitempty"`
	RejectionReason           string                    `json:"rejection_reason,omitempty"`
	CreatedBy                 uuid.UUID                 `json:"created_by"`
	SubmittedToFinanceAt      *time.Time                `json:"submitted_to_finance_at,omitempty"`
	FinanceReviewedBy         *uuid.UUID                `json:"finance_reviewed_by,omitempty"`
	FinanceReviewedAt         *time.Time                `json:"finance_reviewed_at,omitempty"`
	ApprovedBy                *uuid.UUID                `json:"approved_by,omitempty"`
	ApprovedAt                *time.Time                `json:"approved_at,omitempty"`
	PaidBy                    *uuid.UUID                `json:"paid_by,omitempty"`
	PaidAt                    *time.Time                `json:"paid_at,omitempty"`
	PaymentVoucherNumber      string                    `json:"payment_voucher_number,omitempty"`
	PaymentAccountID          *uuid.UUID                `json:"payment_account_id,omitempty"`
	PaymentAccountName        string                    `json:"payment_account_name,omitempty"`
	PaymentMethod             string                    `json:"payment_method,omitempty"`
	CashFlowID                *uuid.UUID                `json:"cash_flow_id,omitempty"`
	CreatedAt                 time.Time                 `json:"created_at"`
	UpdatedAt                 time.Time                 `json:"updated_at"`
	Version                   int                       `json:"version"`
}

// ToBillResponse converts a domain Bill to a response
func ToBillResponse(b *settlement.Bill) BillResponse {
	return BillResponse{
		ID:                        b.ID,
		BillNumber:                b.BillNumber,
		Month:                     b.Month,
		Category:                  b.Category,
		Type:                      b.Type,
		PartyName:                 b.PartyName(),
		AgencyID:                  b.AgencyID,
		AgencyName:                b.AgencyName,
		SupplierName:              b.SupplierName,
		FactoryName:               b.FactoryName,
		AdAccountID:               b.AdAccountID,
		TotalAmount:               b.TotalAmount,
		RebateAmount:              b.RebateAmount,
		NetAmount:                 b.NetAmount,
		Currency:                  b.Currency,
		RechargeIDs:               b.RechargeIDs,
		ConsumptionIDs:            b.ConsumptionIDs,
		IsRebateAggregator:        b.IsRebateAggregator,
		Remark:                    b.Remark,
		Status:                    b.Status,
		PaymentApplicationVoucher: b.PaymentApplicationVoucher,
		RejectionReason:           b.RejectionReason,
		CreatedBy:                 b.CreatedBy,
		SubmittedToFinanceAt:      b.SubmittedToFinanceAt,
		FinanceReviewedBy:         b.FinanceReviewedBy,
		FinanceReviewedAt:         b.FinanceReviewedAt,
		ApprovedBy:                b.ApprovedBy,
		ApprovedAt:                b.ApprovedAt,
		PaidBy:                    b.PaidBy,
		PaidAt:                    b.PaidAt,
		PaymentVoucherNumber:      b.Payment.VoucherNumber,
		PaymentAccountID:          b.Payment.AccountID,
		PaymentAccountName:        b.Payment.AccountName,
		PaymentMethod:             b.Payment.Method,
		CashFlowID:                b.CashFlowID,
		CreatedAt:                 b.CreatedAt,
		UpdatedAt:                 b.UpdatedAt,
		Version:                   b.Version,
	}
}

// ToBillResponses converts a slice of bills
func ToBillResponses(bills []settlement.Bill) []BillResponse {
	out := make([]BillResponse, len(bills))
	for i := range bills {
		out[i] = ToBillResponse(&bills[i])
	}
	return out
}

// RequestResponse represents an expense or income request
type RequestResponse struct {
	ID                        uuid.UUID                 `json:"id"`
	RequestNumber             string                    `json:"request_number"`
	Kind                      settlement.RequestKind    `json:"kind"`
	Title                     string                    `json:"title"`
	Category                  string                    `json:"category"`
	PartyName                 string                    `json:"party_name,omitempty"`
	Amount                    decimal.Decimal           `json:"amount"`
	Currency                  valueobject.Currency      `json:"currency"`
	Vouchers                  []string                  `json:"vouchers"`
	Remark                    string                    `json:"remark,omitempty"`
	Status                    settlement.DocumentStatus `json:"status"`
	PaymentApplicationVoucher string                    `json:"payment_application_voucher,omitempty"`
	RejectionReason           string                    `json:"rejection_reason,omitempty"`
	CreatedBy                 uuid.UUID                 `json:"created_by"`
	FinanceReviewedBy         *uuid.UUID                `json:"finance_reviewed_by,omitempty"`
	ApprovedBy                *uuid.UUID                `json:"approved_by,omitempty"`
	ApprovedAt                *time.Time                `json:"approved_at,omitempty"`
	RejectedBy                *uuid.UUID                `json:"rejected_by,omitempty"`
	PaidAt                    *time.Time                `json:"paid_at,omitempty"`
	ReceivedAt                *time.Time                `json:"received_at,omitempty"`
	CashFlowID                *uuid.UUID                `json:"cash_flow_id,omitempty"`
	CreatedAt                 time.Time                 `json:"created_at"`
	UpdatedAt                 time.Time                 `json:"updated_at"`
	Version                   int                       `json:"version"`
}

// ToRequestResponse converts a domain Request to a response
func ToRequestResponse(r *settlement.Request) RequestResponse {
	return RequestResponse{
		ID:                        r.ID,
		RequestNumber:             r.RequestNumber,
		Kind:                      r.Kind,
		Title:                     r.Title,
		Category:                  r.Category,
		PartyName:                 r.PartyName,
		Amount:                    r.Amount,
		Currency:                  r.Currency,
		Vouchers:                  r.Vouchers,
		Remark:                    r.Remark,
		Status:                    r.Status,
		PaymentApplicationVoucher: r.PaymentApplicationVoucher,
		RejectionReason:           r.RejectionReason,
		CreatedBy:                 r.CreatedBy,
		FinanceReviewedBy:         r.FinanceReviewedBy,
		ApprovedBy:                r.ApprovedBy,
		ApprovedAt:                r.ApprovedAt,
		RejectedBy:                r.RejectedBy,
		PaidAt:                    r.PaidAt,
		ReceivedAt:                r.ReceivedAt,
		CashFlowID:                r.CashFlowID,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
		Version:                   r.Version,
	}
}

// RebateResponse represents a rebate receivable
type RebateResponse struct {
	ID              uuid.UUID                      `json:"id"`
	AgencyID        uuid.UUID                      `json:"agency_id"`
	AgencyName      string                         `json:"agency_name"`
	AdAccountID     string                         `json:"ad_account_id"`
	RechargeID      string                         `json:"recharge_id"`
	SourceBillID    *uuid.UUID                     `json:"source_bill_id,omitempty"`
	Month           string                         `json:"month"`
	RebateRate      decimal.Decimal                `json:"rebate_rate"`
	RebateAmount    decimal.Decimal                `json:"rebate_amount"`
	CurrentBalance  decimal.Decimal                `json:"current_balance"`
	TotalWrittenOff decimal.Decimal                `json:"total_written_off"`
	Currency        valueobject.Currency           `json:"currency"`
	Status          settlement.RebateStatus        `json:"status"`
	StatusLabel     string                         `json:"status_label"`
	ActiveFrom      time.Time                      `json:"active_from"`
	ActiveTo        *time.Time                     `json:"active_to,omitempty"`
	WriteoffRecords []settlement.WriteoffRecord    `json:"writeoff_records"`
	Adjustments     []settlement.BalanceAdjustment `json:"adjustments"`
	Version         int                            `json:"version"`
}

// ToRebateResponse converts a receivable to a response
func ToRebateResponse(r *settlement.RebateReceivable) RebateResponse {
	return RebateResponse{
		ID:              r.ID,
		AgencyID:        r.AgencyID,
		AgencyName:      r.AgencyName,
		AdAccountID:     r.AdAccountID,
		RechargeID:      r.RechargeID,
		SourceBillID:    r.SourceBillID,
		Month:           r.Month,
		RebateRate:      r.RebateRate,
		RebateAmount:    r.RebateAmount,
		CurrentBalance:  r.CurrentBalance,
		TotalWrittenOff: r.TotalWrittenOff(),
		Currency:        r.Currency,
		Status:          r.Status,
		StatusLabel:     r.Status.DisplayName(),
		ActiveFrom:      r.ActiveFrom,
		ActiveTo:        r.ActiveTo,
		WriteoffRecords: r.WriteoffRecords,
		Adjustments:     r.Adjustments,
		Version:         r.Version,
	}
}

// ConsumptionResult reports how a consumption was applied
type ConsumptionResult struct {
	ConsumptionID string            `json:"consumption_id"`
	Applied       []AppliedWriteoff `json:"applied"`
	Unapplied     decimal.Decimal   `json:"unapplied"`
}

// AppliedWriteoff is one write-off produced by a consumption
type AppliedWriteoff struct {
	ReceivableID uuid.UUID                 `json:"receivable_id"`
	Record       settlement.WriteoffRecord `json:"record"`
}

// PendingEntryResponse represents a pending entry
type PendingEntryResponse struct {
	ID            uuid.UUID                     `json:"id"`
	Type          settlement.PendingEntryType   `json:"type"`
	RelatedID     uuid.UUID                     `json:"related_id"`
	RelatedNumber string                        `json:"related_number"`
	Category      settlement.BillCategory       `json:"category"`
	Amount        decimal.Decimal               `json:"amount"`
	NetAmount     decimal.Decimal               `json:"net_amount"`
	Currency      valueobject.Currency          `json:"currency"`
	ApprovedBy    *uuid.UUID                    `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time                    `json:"approved_at,omitempty"`
	Status        settlement.PendingEntryStatus `json:"status"`
	AccountID     *uuid.UUID                    `json:"account_id,omitempty"`
	AccountName   string                        `json:"account_name,omitempty"`
	EntryDate     *time.Time                    `json:"entry_date,omitempty"`
	CompletedBy   *uuid.UUID                    `json:"completed_by,omitempty"`
	CompletedAt   *time.Time                    `json:"completed_at,omitempty"`
	CashFlowID    *uuid.UUID                    `json:"cash_flow_id,omitempty"`
	Version       int                           `json:"version"`
}

// ToPendingEntryResponse converts a pending entry to a response
func ToPendingEntryResponse(e *settlement.PendingEntry) PendingEntryResponse {
	return PendingEntryResponse{
		ID:            e.ID,
		Type:          e.Type,
		RelatedID:     e.RelatedID,
		RelatedNumber: e.RelatedNumber,
		Category:      e.Category,
		Amount:        e.Amount,
		NetAmount:     e.NetAmount,
		Currency:      e.Currency,
		ApprovedBy:    e.ApprovedBy,
		ApprovedAt:    e.ApprovedAt,
		Status:        e.Status,
		AccountID:     e.AccountID,
		AccountName:   e.AccountName,
		EntryDate:     e.EntryDate,
		CompletedBy:   e.CompletedBy,
		CompletedAt:   e.CompletedAt,
		CashFlowID:    e.CashFlowID,
		Version:       e.Version,
	}
}

// AccountResponse represents an account with its cached balances
type AccountResponse struct {
	ID              uuid.UUID                  `json:"id"`
	Name            string                     `json:"name"`
	Currency        valueobject.Currency       `json:"currency"`
	ExchangeRate    decimal.Decimal            `json:"exchange_rate"`
	Category        settlement.AccountCategory `json:"category"`
	ParentID        *uuid.UUID                 `json:"parent_id,omitempty"`
	InitialCapital  decimal.Decimal            `json:"initial_capital"`
	OriginalBalance decimal.Decimal            `json:"original_balance"`
	BaseBalance     decimal.Decimal            `json:"base_balance"`
	Version         int                        `json:"version"`
}

// ToAccountResponse converts an account to a response
func ToAccountResponse(a *settlement.Account) AccountResponse {
	return AccountResponse{
		ID:              a.ID,
		Name:            a.Name,
		Currency:        a.Currency,
		ExchangeRate:    a.ExchangeRate,
		Category:        a.Category,
		ParentID:        a.ParentID,
		InitialCapital:  a.InitialCapital,
		OriginalBalance: a.OriginalBalance,
		BaseBalance:     a.BaseBalance,
		Version:         a.Version,
	}
}

// BalancesResponse is the derived balance sheet of all accounts
type BalancesResponse struct {
	BaseCurrency valueobject.Currency        `json:"base_currency"`
	Accounts     []settlement.AccountBalance `json:"accounts"`
	TotalBase    decimal.Decimal             `json:"total_base"`
	ComputedAt   time.Time                   `json:"computed_at"`
}

// CashFlowResponse represents a ledger line
type CashFlowResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Date             time.Time                 `json:"date"`
	Type             settlement.CashFlowType   `json:"type"`
	Amount           decimal.Decimal           `json:"amount"`
	AccountID        uuid.UUID                 `json:"account_id"`
	Currency         valueobject.Currency      `json:"currency"`
	Status           settlement.CashFlowStatus `json:"status"`
	IsReversal       bool                      `json:"is_reversal"`
	ReversalReason   string                    `json:"reversal_reason,omitempty"`
	RelatedID        *uuid.UUID                `json:"related_id,omitempty"`
	RelatedType      settlement.RelatedType    `json:"related_type,omitempty"`
	VoucherNumber    string                    `json:"voucher_number,omitempty"`
	OriginalAmount   decimal.Decimal           `json:"original_amount"`
	OriginalCurrency valueobject.Currency      `json:"original_currency"`
	ExchangeRate     decimal.Decimal           `json:"exchange_rate"`
	Description      string                    `json:"description,omitempty"`
	CreatedBy        uuid.UUID                 `json:"created_by"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// ToCashFlowResponse converts a ledger line to a response
func ToCashFlowResponse(e *settlement.CashFlowEvent) CashFlowResponse {
	return CashFlowResponse{
		ID:               e.ID,
		Date:             e.Date,
		Type:             e.Type,
		Amount:           e.Amount,
		AccountID:        e.AccountID,
		Currency:         e.Currency,
		Status:           e.Status,
		IsReversal:       e.IsReversal,
		ReversalReason:   e.ReversalReason,
		RelatedID:        e.RelatedID,
		RelatedType:      e.RelatedType,
		VoucherNumber:    e.VoucherNumber,
		OriginalAmount:   e.OriginalAmount,
		OriginalCurrency: e.OriginalCurrency,
		ExchangeRate:     e.ExchangeRate,
		Description:      e.Description,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
	}
}

// AgencyResponse represents an agency
type AgencyResponse struct {
	ID         uuid.UUID            `json:"id"`
	Name       string               `json:"name"`
	RebateRate decimal.Decimal      `json:"rebate_rate"`
	Currency   valueobject.Currency `json:"currency,omitempty"`
	Active     bool                 `json:"active"`
}

// ToAgencyResponse converts an agency to a response
func ToAgencyResponse(a *settlement.Agency) AgencyResponse {
	return AgencyResponse{ID: a.ID, Name: a.Name, RebateRate: a.RebateRate, Currency: a.Currency, Active: a.Active}
}
