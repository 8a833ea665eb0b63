package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkflowColumns persists the shared approval trail of bills and requests
type WorkflowColumns struct {
	Status                    settlement.DocumentStatus `gorm:"type:varchar(30);not null;default:'DRAFT';index"`
	CreatedBy                 uuid.UUID                 `gorm:"type:uuid;not null"`
	PaymentApplicationVoucher string                    `gorm:"type:varchar(500)"`
	SubmittedToFinanceAt      *time.Time
	FinanceReviewedBy         *uuid.UUID `gorm:"type:uuid"`
	FinanceReviewedAt         *time.Time
	SubmittedAt               *time.Time
	ApprovedBy                *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt                *time.Time
	CashierApprovedBy         *uuid.UUID `gorm:"type:uuid"`
	CashierApprovedAt         *time.Time
	RejectedBy                *uuid.UUID `gorm:"type:uuid"`
	RejectedAt                *time.Time
	RejectionReason           string `gorm:"type:varchar(500)"`
}

func workflowColumnsFromDomain(w settlement.Workflow) WorkflowColumns {
	return WorkflowColumns{
		Status:                    w.Status,
		CreatedBy:                 w.CreatedBy,
		PaymentApplicationVoucher: w.PaymentApplicationVoucher,
		SubmittedToFinanceAt:      w.SubmittedToFinanceAt,
		FinanceReviewedBy:         w.FinanceReviewedBy,
		FinanceReviewedAt:         w.FinanceReviewedAt,
		SubmittedAt:               w.SubmittedAt,
		ApprovedBy:                w.ApprovedBy,
		ApprovedAt:                w.ApprovedAt,
		CashierApprovedBy:         w.CashierApprovedBy,
		CashierApprovedAt:         w.CashierApprovedAt,
		RejectedBy:                w.RejectedBy,
		RejectedAt:                w.RejectedAt,
		RejectionReason:           w.RejectionReason,
	}
}

func (w WorkflowColumns) toDomain() settlement.Workflow {
	return settlement.Workflow{
		Status:                    w.Status,
		CreatedBy:                 w.CreatedBy,
		PaymentApplicationVoucher: w.PaymentApplicationVoucher,
		SubmittedToFinanceAt:      w.SubmittedToFinanceAt,
		FinanceReviewedBy:         w.FinanceReviewedBy,
		FinanceReviewedAt:         w.FinanceReviewedAt,
		SubmittedAt:               w.SubmittedAt,
		ApprovedBy:                w.ApprovedBy,
		ApprovedAt:                w.ApprovedAt,
		CashierApprovedBy:         w.CashierApprovedBy,
		CashierApprovedAt:         w.CashierApprovedAt,
		RejectedBy:                w.RejectedBy,
		RejectedAt:                w.RejectedAt,
		RejectionReason:           w.RejectionReason,
	}
}

// PaymentColumns persists the cashier's payment or receipt details
type PaymentColumns struct {
	VoucherNumber string     `gorm:"type:varchar(50)"`
	AccountID     *uuid.UUID `gorm:"type:uuid"`
	AccountName   string     `gorm:"type:varchar(100)"`
	Method        string     `gorm:"type:varchar(50)"`
	Voucher       string     `gorm:"type:varchar(500)"`
	Remarks       string     `gorm:"type:varchar(500)"`
}

func paymentColumnsFromDomain(p settlement.PaymentDetails) PaymentColumns {
	return PaymentColumns(p)
}

func (p PaymentColumns) toDomain() settlement.PaymentDetails {
	return settlement.PaymentDetails(p)
}

// BillModel is the persistence model for the Bill aggregate root.
type BillModel struct {
	AggregateModel
	WorkflowColumns    `gorm:"embedded"`
	BillNumber         string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	Month              string                  `gorm:"type:char(7);not null;index;uniqueIndex:idx_bills_draft_aggregator,priority:1,where:is_rebate_aggregator AND status = 'DRAFT'"`
	Category           settlement.BillCategory `gorm:"type:varchar(20);not null;index"`
	BillType           settlement.BillType     `gorm:"column:bill_type;type:varchar(30);not null;uniqueIndex:idx_bills_draft_aggregator,priority:2"`
	AgencyID           *uuid.UUID              `gorm:"type:uuid;index;uniqueIndex:idx_bills_draft_aggregator,priority:3"`
	AgencyName         string                  `gorm:"type:varchar(200)"`
	SupplierName       string                  `gorm:"type:varchar(200)"`
	FactoryName        string                  `gorm:"type:varchar(200)"`
	AdAccountID        string                  `gorm:"type:varchar(100);uniqueIndex:idx_bills_draft_aggregator,priority:4"`
	TotalAmount        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	RebateAmount       decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	NetAmount          decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Currency           valueobject.Currency    `gorm:"type:char(3);not null;uniqueIndex:idx_bills_draft_aggregator,priority:5"`
	RechargeIDs        []string                `gorm:"type:jsonb;serializer:json"`
	ConsumptionIDs     []string                `gorm:"type:jsonb;serializer:json"`
	IsRebateAggregator bool                    `gorm:"not null;default:false"`
	Remark             string                  `gorm:"type:text"`
	PaidBy             *uuid.UUID              `gorm:"type:uuid"`
	PaidAt             *time.Time
	PaymentColumns     `gorm:"embedded;embeddedPrefix:payment_"`
	CashFlowID         *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *settlement.Bill {
	return &settlement.Bill{
		BaseAggregateRoot:  aggregateRoot(m.AggregateModel),
		Workflow:           m.WorkflowColumns.toDomain(),
		BillNumber:         m.BillNumber,
		Month:              m.Month,
		Category:           m.Category,
		Type:               m.BillType,
		AgencyID:           m.AgencyID,
		AgencyName:         m.AgencyName,
		SupplierName:       m.SupplierName,
		FactoryName:        m.FactoryName,
		AdAccountID:        m.AdAccountID,
		TotalAmount:        m.TotalAmount,
		RebateAmount:       m.RebateAmount,
		NetAmount:          m.NetAmount,
		Currency:           m.Currency,
		RechargeIDs:        m.RechargeIDs,
		ConsumptionIDs:     m.ConsumptionIDs,
		IsRebateAggregator: m.IsRebateAggregator,
		Remark:             m.Remark,
		PaidBy:             m.PaidBy,
		PaidAt:             m.PaidAt,
		Payment:            m.PaymentColumns.toDomain(),
		CashFlowID:         m.CashFlowID,
	}
}

// BillModelFromDomain creates a persistence model from a domain Bill
func BillModelFromDomain(b *settlement.Bill) *BillModel {
	m := &BillModel{
		WorkflowColumns:    workflowColumnsFromDomain(b.Workflow),
		BillNumber:         b.BillNumber,
		Month:              b.Month,
		Category:           b.Category,
		BillType:           b.Type,
		AgencyID:           b.AgencyID,
		AgencyName:         b.AgencyName,
		SupplierName:       b.SupplierName,
		FactoryName:        b.FactoryName,
		AdAccountID:        b.AdAccountID,
		TotalAmount:        b.TotalAmount,
		RebateAmount:       b.RebateAmount,
		NetAmount:          b.NetAmount,
		Currency:           b.Currency,
		RechargeIDs:        b.RechargeIDs,
		ConsumptionIDs:     b.ConsumptionIDs,
		IsRebateAggregator: b.IsRebateAggregator,
		Remark:             b.Remark,
		PaidBy:             b.PaidBy,
		PaidAt:             b.PaidAt,
		PaymentColumns:     paymentColumnsFromDomain(b.Payment),
		CashFlowID:         b.CashFlowID,
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	return m
}

// RequestModel is the persistence model for expense and income requests.
type RequestModel struct {
	AggregateModel
	WorkflowColumns `gorm:"embedded"`
	RequestNumber   string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	Kind            settlement.RequestKind `gorm:"type:varchar(20);not null;index"`
	Title           string                 `gorm:"type:varchar(200);not null"`
	Category        string                 `gorm:"type:varchar(100)"`
	PartyName       string                 `gorm:"type:varchar(200)"`
	Amount          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Currency        valueobject.Currency   `gorm:"type:char(3);not null"`
	Vouchers        []string               `gorm:"type:jsonb;serializer:json"`
	Remark          string                 `gorm:"type:text"`
	PaidBy          *uuid.UUID             `gorm:"type:uuid"`
	PaidAt          *time.Time
	ReceivedBy      *uuid.UUID `gorm:"type:uuid"`
	ReceivedAt      *time.Time
	PaymentColumns  `gorm:"embedded;embeddedPrefix:payment_"`
	CashFlowID      *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (RequestModel) TableName() string {
	return "requests"
}

// ToDomain converts the persistence model to a domain Request
func (m *RequestModel) ToDomain() *settlement.Request {
	return &settlement.Request{
		BaseAggregateRoot: aggregateRoot(m.AggregateModel),
		Workflow:          m.WorkflowColumns.toDomain(),
		RequestNumber:     m.RequestNumber,
		Kind:              m.Kind,
		Title:             m.Title,
		Category:          m.Category,
		PartyName:         m.PartyName,
		Amount:            m.Amount,
		Currency:          m.Currency,
		Vouchers:          m.Vouchers,
		Remark:            m.Remark,
		PaidBy:            m.PaidBy,
		PaidAt:            m.PaidAt,
		ReceivedBy:        m.ReceivedBy,
		ReceivedAt:        m.ReceivedAt,
		Payment:           m.PaymentColumns.toDomain(),
		CashFlowID:        m.CashFlowID,
	}
}

// RequestModelFromDomain creates a persistence model from a domain Request
func RequestModelFromDomain(r *settlement.Request) *RequestModel {
	m := &RequestModel{
		WorkflowColumns: workflowColumnsFromDomain(r.Workflow),
		RequestNumber:   r.RequestNumber,
		Kind:            r.Kind,
		Title:           r.Title,
		Category:        r.Category,
		PartyName:       r.PartyName,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Vouchers:        r.Vouchers,
		Remark:          r.Remark,
		PaidBy:          r.PaidBy,
		PaidAt:          r.PaidAt,
		ReceivedBy:      r.ReceivedBy,
		ReceivedAt:      r.ReceivedAt,
		PaymentColumns:  paymentColumnsFromDomain(r.Payment),
		CashFlowID:      r.CashFlowID,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}

// RebateReceivableModel is the persistence model for the rebate sub-ledger.
type RebateReceivableModel struct {
	AggregateModel
	AgencyID           uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_rebate_receivable_fallback_key,priority:1,where:recharge_is_fallback"`
	AgencyName         string                         `gorm:"type:varchar(200)"`
	AdAccountID        string                         `gorm:"type:varchar(100);not null;uniqueIndex:idx_rebate_receivable_fallback_key,priority:2"`
	RechargeID         string                         `gorm:"type:varchar(100);not null;uniqueIndex:idx_rebate_receivable_fallback_key,priority:3;uniqueIndex:idx_rebate_receivable_recharge,where:NOT recharge_is_fallback"`
	RechargeIsFallback bool                           `gorm:"not null;default:false"`
	SourceBillID       *uuid.UUID                     `gorm:"type:uuid;index"`
	Month              string                         `gorm:"type:char(7);not null"`
	RebateRate         decimal.Decimal                `gorm:"type:decimal(8,4);not null"`
	RebateAmount       decimal.Decimal                `gorm:"type:decimal(18,4);not null"`
	CurrentBalance     decimal.Decimal                `gorm:"type:decimal(18,4);not null"`
	Currency           valueobject.Currency           `gorm:"type:char(3);not null"`
	Status             settlement.RebateStatus        `gorm:"type:varchar(30);not null;index"`
	ActiveFrom         time.Time                      `gorm:"not null;index"`
	ActiveTo           *time.Time
	WriteoffRecords    []settlement.WriteoffRecord    `gorm:"type:jsonb;serializer:json"`
	Adjustments        []settlement.BalanceAdjustment `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (RebateReceivableModel) TableName() string {
	return "rebate_receivables"
}

// ToDomain converts the persistence model to a domain RebateReceivable
func (m *RebateReceivableModel) ToDomain() *settlement.RebateReceivable {
	return &settlement.RebateReceivable{
		BaseAggregateRoot:  aggregateRoot(m.AggregateModel),
		AgencyID:           m.AgencyID,
		AgencyName:         m.AgencyName,
		AdAccountID:        m.AdAccountID,
		RechargeID:         m.RechargeID,
		RechargeIsFallback: m.RechargeIsFallback,
		SourceBillID:       m.SourceBillID,
		Month:              m.Month,
		RebateRate:         m.RebateRate,
		RebateAmount:       m.RebateAmount,
		CurrentBalance:     m.CurrentBalance,
		Currency:           m.Currency,
		Status:             m.Status,
		ActiveFrom:         m.ActiveFrom,
		ActiveTo:           m.ActiveTo,
		WriteoffRecords:    m.WriteoffRecords,
		Adjustments:        m.Adjustments,
	}
}

// RebateReceivableModelFromDomain creates a persistence model from a domain RebateReceivable
func RebateReceivableModelFromDomain(r *settlement.RebateReceivable) *RebateReceivableModel {
	m := &RebateReceivableModel{
		AgencyID:           r.AgencyID,
		AgencyName:         r.AgencyName,
		AdAccountID:        r.AdAccountID,
		RechargeID:         r.RechargeID,
		RechargeIsFallback: r.RechargeIsFallback,
		SourceBillID:       r.SourceBillID,
		Month:              r.Month,
		RebateRate:         r.RebateRate,
		RebateAmount:       r.RebateAmount,
		CurrentBalance:     r.CurrentBalance,
		Currency:           r.Currency,
		Status:             r.Status,
		ActiveFrom:         r.ActiveFrom,
		ActiveTo:           r.ActiveTo,
		WriteoffRecords:    r.WriteoffRecords,
		Adjustments:        r.Adjustments,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}

// PendingEntryModel is the persistence model for the pending-entry queue.
type PendingEntryModel struct {
	AggregateModel
	Type          settlement.PendingEntryType   `gorm:"type:varchar(30);not null;uniqueIndex:idx_pending_entry_related,priority:1"`
	RelatedID     uuid.UUID                     `gorm:"type:uuid;not null;uniqueIndex:idx_pending_entry_related,priority:2"`
	RelatedNumber string                        `gorm:"type:varchar(50)"`
	Category      settlement.BillCategory       `gorm:"type:varchar(20)"`
	Amount        decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	NetAmount     decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	Currency      valueobject.Currency          `gorm:"type:char(3);not null"`
	ApprovedBy    *uuid.UUID                    `gorm:"type:uuid"`
	ApprovedAt    *time.Time
	Status        settlement.PendingEntryStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	AccountID     *uuid.UUID                    `gorm:"type:uuid"`
	AccountName   string                        `gorm:"type:varchar(100)"`
	EntryDate     *time.Time
	CompletedBy   *uuid.UUID `gorm:"type:uuid"`
	CompletedAt   *time.Time
	CashFlowID    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PendingEntryModel) TableName() string {
	return "pending_entries"
}

// ToDomain converts the persistence model to a domain PendingEntry
func (m *PendingEntryModel) ToDomain() *settlement.PendingEntry {
	return &settlement.PendingEntry{
		BaseAggregateRoot: aggregateRoot(m.AggregateModel),
		Type:              m.Type,
		RelatedID:         m.RelatedID,
		RelatedNumber:     m.RelatedNumber,
		Category:          m.Category,
		Amount:            m.Amount,
		NetAmount:         m.NetAmount,
		Currency:          m.Currency,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        m.ApprovedAt,
		Status:            m.Status,
		AccountID:         m.AccountID,
		AccountName:       m.AccountName,
		EntryDate:         m.EntryDate,
		CompletedBy:       m.CompletedBy,
		CompletedAt:       m.CompletedAt,
		CashFlowID:        m.CashFlowID,
	}
}

// PendingEntryModelFromDomain creates a persistence model from a domain PendingEntry
func PendingEntryModelFromDomain(e *settlement.PendingEntry) *PendingEntryModel {
	m := &PendingEntryModel{
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
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	return m
}

// AccountModel is the persistence model for bank and virtual accounts.
type AccountModel struct {
	AggregateModel
	Name            string                     `gorm:"type:varchar(100);not null"`
	Currency        valueobject.Currency       `gorm:"type:char(3);not null"`
	ExchangeRate    decimal.Decimal            `gorm:"type:decimal(18,8);not null"`
	Category        settlement.AccountCategory `gorm:"type:varchar(20);not null"`
	ParentID        *uuid.UUID                 `gorm:"type:uuid;index"`
	InitialCapital  decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	OriginalBalance decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	BaseBalance     decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *settlement.Account {
	return &settlement.Account{
		BaseAggregateRoot: aggregateRoot(m.AggregateModel),
		Name:              m.Name,
		Currency:          m.Currency,
		ExchangeRate:      m.ExchangeRate,
		Category:          m.Category,
		ParentID:          m.ParentID,
		InitialCapital:    m.InitialCapital,
		OriginalBalance:   m.OriginalBalance,
		BaseBalance:       m.BaseBalance,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *settlement.Account) *AccountModel {
	m := &AccountModel{
		Name:            a.Name,
		Currency:        a.Currency,
		ExchangeRate:    a.ExchangeRate,
		Category:        a.Category,
		ParentID:        a.ParentID,
		InitialCapital:  a.InitialCapital,
		OriginalBalance: a.OriginalBalance,
		BaseBalance:     a.BaseBalance,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// CashFlowEventModel is one append-only ledger line.
type CashFlowEventModel struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primary_key"`
	Date             time.Time                 `gorm:"not null;index"`
	Type             settlement.CashFlowType   `gorm:"type:varchar(20);not null"`
	Amount           decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	AccountID        uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Currency         valueobject.Currency      `gorm:"type:char(3);not null"`
	Status           settlement.CashFlowStatus `gorm:"type:varchar(20);not null;default:'CONFIRMED'"`
	IsReversal       bool                      `gorm:"not null;default:false"`
	ReversalReason   string                    `gorm:"type:varchar(500)"`
	ReversedBy       *uuid.UUID                `gorm:"type:uuid"`
	ReversedAt       *time.Time
	RelatedID        *uuid.UUID             `gorm:"type:uuid;index"`
	RelatedType      settlement.RelatedType `gorm:"type:varchar(30)"`
	VoucherNumber    string                 `gorm:"type:varchar(50)"`
	OriginalAmount   decimal.Decimal        `gorm:"type:decimal(18,4)"`
	OriginalCurrency valueobject.Currency   `gorm:"type:varchar(3)"`
	ExchangeRate     decimal.Decimal        `gorm:"type:decimal(18,8)"`
	Description      string                 `gorm:"type:varchar(500)"`
	CreatedBy        uuid.UUID              `gorm:"type:uuid;not null"`
	CreatedAt        time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashFlowEventModel) TableName() string {
	return "cash_flow_events"
}

// ToDomain converts the persistence model to a domain CashFlowEvent
func (m *CashFlowEventModel) ToDomain() *settlement.CashFlowEvent {
	e := settlement.CashFlowEvent(*m)
	return &e
}

// CashFlowEventModelFromDomain creates a persistence model from a domain CashFlowEvent
func CashFlowEventModelFromDomain(e *settlement.CashFlowEvent) *CashFlowEventModel {
	m := CashFlowEventModel(*e)
	return &m
}

// AgencyModel is the persistence model for advertising agencies.
type AgencyModel struct {
	AggregateModel
	Name       string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	RebateRate decimal.Decimal      `gorm:"type:decimal(8,4);not null"`
	Currency   valueobject.Currency `gorm:"type:varchar(3)"`
	Active     bool                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AgencyModel) TableName() string {
	return "agencies"
}

// ToDomain converts the persistence model to a domain Agency
func (m *AgencyModel) ToDomain() *settlement.Agency {
	return &settlement.Agency{
		BaseAggregateRoot: aggregateRoot(m.AggregateModel),
		Name:              m.Name,
		RebateRate:        m.RebateRate,
		Currency:          m.Currency,
		Active:            m.Active,
	}
}

// AgencyModelFromDomain creates a persistence model from a domain Agency
func AgencyModelFromDomain(a *settlement.Agency) *AgencyModel {
	m := &AgencyModel{
		Name:       a.Name,
		RebateRate: a.RebateRate,
		Currency:   a.Currency,
		Active:     a.Active,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// SettlementModels lists every settlement table for AutoMigrate
func SettlementModels() []any {
	return []any{
		&BillModel{},
		&RequestModel{},
		&RebateReceivableModel{},
		&PendingEntryModel{},
		&AccountModel{},
		&CashFlowEventModel{},
		&AgencyModel{},
	}
}
