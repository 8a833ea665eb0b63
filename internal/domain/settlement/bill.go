package settlement

import (
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillCategory is the direction of the money a bill describes
type BillCategory string

const (
	BillCategoryPayable    BillCategory = "PAYABLE"    // 应付
	BillCategoryReceivable BillCategory = "RECEIVABLE" // 应收
)

// IsValid checks if the category is a valid BillCategory
func (c BillCategory) IsValid() bool {
	return c == BillCategoryPayable || c == BillCategoryReceivable
}

// BillType is the business taxonomy of a bill
type BillType string

const (
	BillTypeAd             BillType = "AD"              // 广告充值
	BillTypeLogistics      BillType = "LOGISTICS"       // 物流
	BillTypeFactoryOrder   BillType = "FACTORY_ORDER"   // 工厂订单
	BillTypeStoreRepayment BillType = "STORE_REPAYMENT" // 店铺回款
	BillTypeAdRebate       BillType = "AD_REBATE"       // 广告返点
	BillTypeOther          BillType = "OTHER"           // 其他
)

// IsValid checks if the type is a valid BillType
func (t BillType) IsValid() bool {
	switch t {
	case BillTypeAd, BillTypeLogistics, BillTypeFactoryOrder,
		BillTypeStoreRepayment, BillTypeAdRebate, BillTypeOther:
		return true
	}
	return false
}

// PartyRole is the counterparty field that is authoritative for a bill type
type PartyRole string

const (
	PartyAgency   PartyRole = "AGENCY"
	PartySupplier PartyRole = "SUPPLIER"
	PartyFactory  PartyRole = "FACTORY"
)

// PartyRole returns which counterparty name identifies bills of this type
func (t BillType) PartyRole() PartyRole {
	switch t {
	case BillTypeAd, BillTypeAdRebate:
		return PartyAgency
	case BillTypeFactoryOrder, BillTypeStoreRepayment:
		return PartyFactory
	default:
		return PartySupplier
	}
}

// RebateAggregatorTitle is the remark stamped on rolling rebate bills
const RebateAggregatorTitle = "广告返点"

// Bill is a monthly obligation document
type Bill struct {
	shared.BaseAggregateRoot
	Workflow
	BillNumber         string
	Month              string
	Category           BillCategory
	Type               BillType
	AgencyID           *uuid.UUID
	AgencyName         string
	SupplierName       string
	FactoryName        string
	AdAccountID        string
	TotalAmount        decimal.Decimal
	RebateAmount       decimal.Decimal
	NetAmount          decimal.Decimal
	Currency           valueobject.Currency
	RechargeIDs        []string
	ConsumptionIDs     []string
	IsRebateAggregator bool
	Remark             string
	PaidBy             *uuid.UUID
	PaidAt             *time.Time
	Payment            PaymentDetails
	CashFlowID         *uuid.UUID
}

// BillParams carries the editable fields of a bill
type BillParams struct {
	Month          string
	Category       BillCategory
	Type           BillType
	AgencyID       *uuid.UUID
	AgencyName     string
	SupplierName   string
	FactoryName    string
	AdAccountID    string
	TotalAmount    decimal.Decimal
	RebateAmount   decimal.Decimal
	Currency       valueobject.Currency
	RechargeIDs    []string
	ConsumptionIDs []string
	Remark         string
}

// NewBill creates a draft bill
func NewBill(billNumber string, createdBy uuid.UUID, p BillParams) (*Bill, error) {
	if err := validateBillParams(p); err != nil {
		return nil, err
	}
	bill := &Bill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Workflow:          newWorkflow(createdBy),
		BillNumber:        billNumber,
	}
	bill.assign(p)
	bill.AddDomainEvent(NewBillCreatedEvent(bill))
	return bill, nil
}

// NewRebateAggregatorBill creates the rolling 广告返点 receivable for a key
func NewRebateAggregatorBill(billNumber string, key AggregatorKey, agencyName string, amount decimal.Decimal, rechargeID string, createdBy uuid.UUID) (*Bill, error) {
	agencyID := key.AgencyID
	bill, err := NewBill(billNumber, createdBy, BillParams{
		Month:        key.Month,
		Category:     BillCategoryReceivable,
		Type:         BillTypeAdRebate,
		AgencyID:     &agencyID,
		AgencyName:   agencyName,
		AdAccountID:  key.AdAccountID,
		TotalAmount:  amount,
		RebateAmount: decimal.Zero,
		Currency:     key.Currency,
		RechargeIDs:  []string{rechargeID},
		Remark:       RebateAggregatorTitle,
	})
	if err != nil {
		return nil, err
	}
	bill.IsRebateAggregator = true
	return bill, nil
}

func validateBillParams(p BillParams) error {
	if err := validMonth(p.Month); err != nil {
		return err
	}
	if !p.Category.IsValid() {
		return shared.NewValidationError("invalid bill category %q", p.Category)
	}
	if !p.Type.IsValid() {
		return shared.NewValidationError("invalid bill type %q", p.Type)
	}
	if !p.Currency.IsValid() {
		return shared.NewValidationError("invalid currency %q", p.Currency)
	}
	if !p.TotalAmount.IsPositive() {
		return shared.NewValidationError("total amount must be positive")
	}
	if p.RebateAmount.IsNegative() {
		return shared.NewValidationError("rebate amount cannot be negative")
	}
	if p.RebateAmount.GreaterThan(p.TotalAmount) {
		return shared.NewValidationError("rebate amount cannot exceed total amount")
	}
	switch p.Type.PartyRole() {
	case PartyAgency:
		if strings.TrimSpace(p.AgencyName) == "" {
			return shared.NewValidationError("agency name is required for %s bills", p.Type)
		}
	case PartyFactory:
		if strings.TrimSpace(p.FactoryName) == "" {
			return shared.NewValidationError("factory name is required for %s bills", p.Type)
		}
	default:
		if strings.TrimSpace(p.SupplierName) == "" {
			return shared.NewValidationError("supplier name is required for %s bills", p.Type)
		}
	}
	if p.Type == BillTypeAdRebate && (p.AgencyID == nil || *p.AgencyID == uuid.Nil) {
		return shared.NewValidationError("agency id is required for ad rebate bills")
	}
	return nil
}

func (b *Bill) assign(p BillParams) {
	b.Month = p.Month
	b.Category = p.Category
	b.Type = p.Type
	b.AgencyID = p.AgencyID
	b.AgencyName = strings.TrimSpace(p.AgencyName)
	b.SupplierName = strings.TrimSpace(p.SupplierName)
	b.FactoryName = strings.TrimSpace(p.FactoryName)
	b.AdAccountID = p.AdAccountID
	b.TotalAmount = p.TotalAmount
	b.RebateAmount = p.RebateAmount
	b.Currency = p.Currency
	b.RechargeIDs = append([]string(nil), p.RechargeIDs...)
	b.ConsumptionIDs = append([]string(nil), p.ConsumptionIDs...)
	b.Remark = p.Remark
	b.recalculateNet()
}

func (b *Bill) recalculateNet() {
	b.NetAmount = b.TotalAmount.Sub(b.RebateAmount)
}

// Kind returns the transition-table row set for this bill
func (b *Bill) Kind() DocumentKind {
	if b.Category == BillCategoryReceivable {
		return KindReceivableBill
	}
	return KindPayableBill
}

// PartyName returns the authoritative counterparty name for the bill type
func (b *Bill) PartyName() string {
	switch b.Type.PartyRole() {
	case PartyAgency:
		return b.AgencyName
	case PartyFactory:
		return b.FactoryName
	default:
		return b.SupplierName
	}
}

// RebateKey is the recharge id used to deduplicate rebate accruals:
// the first linked recharge, or the bill id when there is none.
func (b *Bill) RebateKey() string {
	if id, ok := b.firstRecharge(); ok {
		return id
	}
	return b.ID.String()
}

// RebateKeyIsFallback reports whether RebateKey falls back to the bill id
func (b *Bill) RebateKeyIsFallback() bool {
	_, ok := b.firstRecharge()
	return !ok
}

func (b *Bill) firstRecharge() (string, bool) {
	for _, id := range b.RechargeIDs {
		if strings.TrimSpace(id) != "" {
			return id, true
		}
	}
	return "", false
}

// HasRecharge reports whether rechargeID is already linked to the bill
func (b *Bill) HasRecharge(rechargeID string) bool {
	for _, id := range b.RechargeIDs {
		if id == rechargeID {
			return true
		}
	}
	return false
}

// UpdateDraft replaces the editable fields of a draft bill
func (b *Bill) UpdateDraft(p BillParams) error {
	if b.Status != StatusDraft {
		return shared.NewStateConflictError("edit bill", string(b.Status))
	}
	if b.IsRebateAggregator && (p.Type != BillTypeAdRebate || p.Category != BillCategoryReceivable) {
		return shared.NewValidationError("rebate aggregator bills must stay receivable ad rebate bills")
	}
	if err := validateBillParams(p); err != nil {
		return err
	}
	b.assign(p)
	b.Touch()
	b.IncrementVersion()
	return nil
}

// MergeRebate folds one more accrued rebate into a draft aggregator bill
func (b *Bill) MergeRebate(amount decimal.Decimal, rechargeID string) error {
	if !b.IsRebateAggregator {
		return shared.NewValidationError("bill %s is not a rebate aggregator", b.BillNumber)
	}
	if b.Status != StatusDraft {
		return shared.NewStateConflictError("merge rebate", string(b.Status))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("merged rebate amount must be positive")
	}
	if b.HasRecharge(rechargeID) {
		return nil
	}
	b.TotalAmount = b.TotalAmount.Add(amount)
	b.RechargeIDs = append(b.RechargeIDs, rechargeID)
	b.recalculateNet()
	b.Touch()
	b.IncrementVersion()
	return nil
}

// SubmitForReview moves a draft to finance review; a voucher must be attached
func (b *Bill) SubmitForReview(by uuid.UUID, voucher string) error {
	if err := requireActor(by, ActionSubmitForReview); err != nil {
		return err
	}
	if err := b.submitForReview(b.Kind(), voucher); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillStatusChangedEvent(b, ActionSubmitForReview, by))
	return nil
}

// FinanceApprove passes finance review and queues the bill for approval
func (b *Bill) FinanceApprove(by uuid.UUID) error {
	if err := requireActor(by, ActionFinanceApprove); err != nil {
		return err
	}
	if err := b.financeApprove(b.Kind(), by); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillStatusChangedEvent(b, ActionFinanceApprove, by))
	return nil
}

// FinanceReject sends a bill under finance review back to draft
func (b *Bill) FinanceReject(by uuid.UUID, reason string) error {
	return b.rejectWith(ActionFinanceReject, by, reason)
}

// Reject sends a bill under review or awaiting approval back to draft
func (b *Bill) Reject(by uuid.UUID, reason string) error {
	return b.rejectWith(ActionReject, by, reason)
}

func (b *Bill) rejectWith(action Action, by uuid.UUID, reason string) error {
	if err := requireActor(by, action); err != nil {
		return err
	}
	if err := b.reject(b.Kind(), action, by, reason); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillStatusChangedEvent(b, action, by))
	return nil
}

// Approve approves the bill and raises BillApproved for the orchestrator
func (b *Bill) Approve(by uuid.UUID) error {
	if err := requireActor(by, ActionApprove); err != nil {
		return err
	}
	if err := b.approve(b.Kind(), by); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillApprovedEvent(b))
	return nil
}

// Pay settles an approved payable bill
func (b *Bill) Pay(by uuid.UUID, payment PaymentDetails, cashFlowID uuid.UUID) error {
	if err := requireActor(by, ActionPay); err != nil {
		return err
	}
	if err := b.transition(b.Kind(), ActionPay); err != nil {
		return err
	}
	now := time.Now()
	b.CashierApprovedBy = &by
	b.CashierApprovedAt = &now
	b.PaidBy = &by
	b.PaidAt = &now
	b.Payment = payment
	b.CashFlowID = &cashFlowID
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillSettledEvent(b, ActionPay))
	return nil
}

// MarkReceived settles an approved receivable bill once its pending entry is posted
func (b *Bill) MarkReceived(by uuid.UUID, accountID uuid.UUID, accountName string, cashFlowID uuid.UUID) error {
	if err := requireActor(by, ActionReceive); err != nil {
		return err
	}
	if err := b.transition(b.Kind(), ActionReceive); err != nil {
		return err
	}
	now := time.Now()
	b.PaidBy = &by
	b.PaidAt = &now
	b.Payment.AccountID = &accountID
	b.Payment.AccountName = accountName
	b.CashFlowID = &cashFlowID
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillSettledEvent(b, ActionReceive))
	return nil
}
