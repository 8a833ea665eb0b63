package settlement

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettledEpsilon is the balance at or below which a receivable counts as settled
var SettledEpsilon = decimal.RequireFromString("0.01")

// RebateStatus is the write-off progress of a rebate receivable
type RebateStatus string

const (
	RebateStatusPendingWriteoff RebateStatus = "PENDING_WRITEOFF" // 待核销
	RebateStatusWritingOff      RebateStatus = "WRITING_OFF"      // 核销中
	RebateStatusSettled         RebateStatus = "SETTLED"          // 已结清
)

// DisplayName returns the Chinese label shown to finance staff
func (s RebateStatus) DisplayName() string {
	switch s {
	case RebateStatusPendingWriteoff:
		return "待核销"
	case RebateStatusWritingOff:
		return "核销中"
	case RebateStatusSettled:
		return "已结清"
	default:
		return string(s)
	}
}

// IsValid checks if the status is a valid RebateStatus
func (s RebateStatus) IsValid() bool {
	return s == RebateStatusPendingWriteoff || s == RebateStatusWritingOff || s == RebateStatusSettled
}

// WriteoffRecord is an immutable 核销 line
type WriteoffRecord struct {
	Sequence         int             `json:"sequence"`
	ConsumptionID    string          `json:"consumption_id"`
	Date             time.Time       `json:"date"`
	WriteoffAmount   decimal.Decimal `json:"writeoff_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	CreatedAt        time.Time       `json:"created_at"`
}

// BalanceAdjustment is an immutable manual correction
type BalanceAdjustment struct {
	Sequence      int             `json:"sequence"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
	AdjustedBy    uuid.UUID       `json:"adjusted_by"`
	AdjustedAt    time.Time       `json:"adjusted_at"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// RebateReceivable is the rebate an agency owes for one recharge.
// RechargeIsFallback marks a RechargeID synthesized from the source bill id.
type RebateReceivable struct {
	shared.BaseAggregateRoot
	AgencyID           uuid.UUID
	AgencyName         string
	AdAccountID        string
	RechargeID         string
	RechargeIsFallback bool
	SourceBillID       *uuid.UUID
	Month              string
	RebateRate         decimal.Decimal
	RebateAmount       decimal.Decimal
	CurrentBalance     decimal.Decimal
	Currency           valueobject.Currency
	Status             RebateStatus
	ActiveFrom         time.Time
	ActiveTo           *time.Time
	WriteoffRecords    []WriteoffRecord
	Adjustments        []BalanceAdjustment
}

// RebateKey identifies a receivable for deduplication. A real recharge is
// accrued at most once overall; a fallback key is only unique per agency and
// ad account.
type RebateKey struct {
	AgencyID    uuid.UUID
	AdAccountID string
	RechargeID  string
	Fallback    bool
}

// Matches reports whether both keys name the same accrual
func (k RebateKey) Matches(other RebateKey) bool {
	if k.Fallback != other.Fallback || k.RechargeID != other.RechargeID {
		return false
	}
	return !k.Fallback || (k.AgencyID == other.AgencyID && k.AdAccountID == other.AdAccountID)
}

// NewRebateReceivableParams holds the accrual inputs
type NewRebateReceivableParams struct {
	AgencyID           uuid.UUID
	AgencyName         string
	AdAccountID        string
	RechargeID         string
	RechargeIsFallback bool
	SourceBillID       *uuid.UUID
	Month              string
	RebateRate         decimal.Decimal
	RebateAmount       decimal.Decimal
	Currency           valueobject.Currency
	ActiveFrom         time.Time
	ActiveTo           *time.Time
}

// NewRebateReceivable accrues a receivable in status 待核销
func NewRebateReceivable(p NewRebateReceivableParams) (*RebateReceivable, error) {
	if p.AgencyID == uuid.Nil {
		return nil, shared.NewValidationError("agency id is required")
	}
	if strings.TrimSpace(p.RechargeID) == "" {
		return nil, shared.NewValidationError("recharge id is required")
	}
	if !p.RebateAmount.IsPositive() {
		return nil, shared.NewValidationError("rebate amount must be positive")
	}
	if !p.Currency.IsValid() {
		return nil, shared.NewValidationError("invalid currency %q", p.Currency)
	}
	if p.ActiveTo != nil && p.ActiveTo.Before(p.ActiveFrom) {
		return nil, shared.NewValidationError("active window ends before it starts")
	}
	if p.ActiveFrom.IsZero() {
		p.ActiveFrom = time.Now()
	}
	return &RebateReceivable{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		AgencyID:           p.AgencyID,
		AgencyName:         p.AgencyName,
		AdAccountID:        p.AdAccountID,
		RechargeID:         p.RechargeID,
		RechargeIsFallback: p.RechargeIsFallback,
		SourceBillID:       p.SourceBillID,
		Month:              p.Month,
		RebateRate:         p.RebateRate,
		RebateAmount:       p.RebateAmount,
		CurrentBalance:     p.RebateAmount,
		Currency:           p.Currency,
		Status:             RebateStatusPendingWriteoff,
		ActiveFrom:         p.ActiveFrom,
		ActiveTo:           p.ActiveTo,
		WriteoffRecords:    make([]WriteoffRecord, 0),
		Adjustments:        make([]BalanceAdjustment, 0),
	}, nil
}

// Key returns the deduplication key
func (r *RebateReceivable) Key() RebateKey {
	return RebateKey{
		AgencyID:    r.AgencyID,
		AdAccountID: r.AdAccountID,
		RechargeID:  r.RechargeID,
		Fallback:    r.RechargeIsFallback,
	}
}

// IsSettled reports whether the balance is within the settle epsilon
func (r *RebateReceivable) IsSettled() bool {
	return r.CurrentBalance.LessThanOrEqual(SettledEpsilon)
}

// Covers reports whether date falls inside the receivable's active window
func (r *RebateReceivable) Covers(date time.Time) bool {
	if date.Before(r.ActiveFrom) {
		return false
	}
	return r.ActiveTo == nil || !date.After(*r.ActiveTo)
}

// HasWriteoff reports whether a consumption has already been written off here
func (r *RebateReceivable) HasWriteoff(consumptionID string) bool {
	for _, w := range r.WriteoffRecords {
		if w.ConsumptionID == consumptionID {
			return true
		}
	}
	return false
}

// WriteOff applies up to amount of a consumption against the balance.
// The recorded amount is what was actually applied, never more than the balance.
func (r *RebateReceivable) WriteOff(consumptionID string, date time.Time, amount decimal.Decimal) (*WriteoffRecord, error) {
	if strings.TrimSpace(consumptionID) == "" {
		return nil, shared.NewValidationError("consumption id is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("write-off amount must be positive")
	}
	if r.IsSettled() {
		return nil, shared.NewStateConflictError("write off", string(RebateStatusSettled))
	}
	if !r.Covers(date) {
		return nil, shared.NewValidationError("consumption date %s is outside the receivable's active window", date.Format("2006-01-02"))
	}
	if r.HasWriteoff(consumptionID) {
		return nil, shared.NewValidationError("consumption %s is already written off", consumptionID)
	}

	applied := decimal.Min(amount, r.CurrentBalance)
	r.CurrentBalance = r.CurrentBalance.Sub(applied)
	record := WriteoffRecord{
		Sequence:         r.nextSequence(),
		ConsumptionID:    consumptionID,
		Date:             date,
		WriteoffAmount:   applied,
		RemainingBalance: r.CurrentBalance,
		CreatedAt:        time.Now(),
	}
	r.WriteoffRecords = append(r.WriteoffRecords, record)
	r.refreshStatus()
	r.Touch()
	r.IncrementVersion()
	return &record, nil
}

// Adjust applies a signed manual correction. The balance never goes below
// zero; BalanceAfter records the clamped result.
func (r *RebateReceivable) Adjust(amount decimal.Decimal, reason string, by uuid.UUID) (*BalanceAdjustment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError("adjustment reason is required")
	}
	if amount.IsZero() {
		return nil, shared.NewValidationError("adjustment amount cannot be zero")
	}
	if by == uuid.Nil {
		return nil, shared.NewValidationError("adjustment requires an acting user")
	}
	before := r.CurrentBalance
	after := decimal.Max(decimal.Zero, before.Add(amount))
	adj := BalanceAdjustment{
		Sequence:      r.nextSequence(),
		Amount:        amount,
		Reason:        reason,
		AdjustedBy:    by,
		AdjustedAt:    time.Now(),
		BalanceBefore: before,
		BalanceAfter:  after,
	}
	r.Adjustments = append(r.Adjustments, adj)
	r.CurrentBalance = after
	r.refreshStatus()
	r.Touch()
	r.IncrementVersion()
	return &adj, nil
}

func (r *RebateReceivable) refreshStatus() {
	switch {
	case r.IsSettled():
		r.Status = RebateStatusSettled
	case len(r.WriteoffRecords) > 0:
		r.Status = RebateStatusWritingOff
	default:
		r.Status = RebateStatusPendingWriteoff
	}
}

func (r *RebateReceivable) nextSequence() int {
	return len(r.WriteoffRecords) + len(r.Adjustments) + 1
}

// ReplayBalance recomputes the balance from the accrual and the ordered
// history, clamping at zero after every step the way Adjust does.
func (r *RebateReceivable) ReplayBalance() decimal.Decimal {
	type step struct {
		seq   int
		delta decimal.Decimal
	}
	steps := make([]step, 0, len(r.WriteoffRecords)+len(r.Adjustments))
	for _, a := range r.Adjustments {
		steps = append(steps, step{seq: a.Sequence, delta: a.Amount})
	}
	for _, w := range r.WriteoffRecords {
		steps = append(steps, step{seq: w.Sequence, delta: w.WriteoffAmount.Neg()})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].seq < steps[j].seq })

	balance := r.RebateAmount
	for _, s := range steps {
		balance = decimal.Max(decimal.Zero, balance.Add(s.delta))
	}
	return balance
}

// TotalWrittenOff sums all write-off records
func (r *RebateReceivable) TotalWrittenOff() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.WriteoffRecords {
		total = total.Add(w.WriteoffAmount)
	}
	return total
}
