package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxMergeAttempts = 3

// RebateAccrualHandler handles BillApprovedEvent for ad rebate bills.
// It maintains two independent projections of the approval: the rebate
// receivable keyed by recharge, and the rolling 广告返点 aggregator bill.
// Each projection is idempotent on its own key, so a redelivered or retried
// event never double-counts. Failures never undo the approval.
type RebateAccrualHandler struct {
	scope  TransactionScope
	opts   Options
	logger *zap.Logger
}

// NewRebateAccrualHandler creates a new handler for bill approved events
func NewRebateAccrualHandler(scope TransactionScope, opts Options, logger *zap.Logger) *RebateAccrualHandler {
	return &RebateAccrualHandler{scope: scope, opts: opts.normalized(), logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RebateAccrualHandler) EventTypes() []string {
	return []string{settlement.EventTypeBillApproved}
}

// Handle accrues the rebate of an approved ad rebate bill
func (h *RebateAccrualHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	approved, ok := event.(*settlement.BillApprovedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", settlement.EventTypeBillApproved),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			settlement.EventTypeBillApproved, event.EventType())
	}
	if !approved.AccruesRebate() {
		return nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "rebate_accrual", "handle",
		telemetry.WithAttribute(telemetry.SpanAttrBillID, approved.BillID.String()),
	)
	defer span.End()

	agency, rebate, err := h.resolveRebate(ctx, approved)
	if err != nil {
		h.logFailure("resolve_rebate", approved, err)
		telemetry.RecordError(span, err)
		return err
	}
	if !rebate.IsPositive() {
		h.logger.Info("agency rebate is zero, nothing to accrue",
			zap.String("bill_id", approved.BillID.String()),
			zap.String("agency_id", agency.ID.String()),
		)
		return nil
	}

	var errs []error
	if err := h.accrueReceivable(ctx, approved, agency, rebate); err != nil {
		h.logFailure("rebate_receivable", approved, err)
		errs = append(errs, err)
	}
	if err := h.mergeIntoAggregator(ctx, approved, agency, rebate); err != nil {
		h.logFailure("aggregator_bill", approved, err)
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	return nil
}

func (h *RebateAccrualHandler) resolveRebate(ctx context.Context, e *settlement.BillApprovedEvent) (*settlement.Agency, decimal.Decimal, error) {
	var agency *settlement.Agency
	err := h.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		agency, err = repos.Agencies().FindByID(ctx, *e.AgencyID)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load agency %s: %w", e.AgencyID, err)
	}
	net, err := valueobject.NewMoney(e.NetAmount, e.Currency)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return agency, agency.RebateFor(net, h.opts.RebatePlaces).Amount(), nil
}

func (h *RebateAccrualHandler) accrueReceivable(ctx context.Context, e *settlement.BillApprovedEvent, agency *settlement.Agency, rebate decimal.Decimal) error {
	return h.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Rebates().FindByKey(ctx, e.ReceivableKey())
		if err == nil {
			h.logger.Warn("rebate receivable already exists for recharge",
				zap.String("code", shared.CodeInconsistentState),
				zap.String("receivable_id", existing.ID.String()),
				zap.String("recharge_id", e.RebateKey),
			)
			return nil
		}
		if !shared.IsNotFound(err) {
			return fmt.Errorf("failed to look up rebate receivable: %w", err)
		}

		billID := e.BillID
		receivable, err := settlement.NewRebateReceivable(settlement.NewRebateReceivableParams{
			AgencyID:           *e.AgencyID,
			AgencyName:         partyName(e.AgencyName, agency.Name),
			AdAccountID:        e.AdAccountID,
			RechargeID:         e.RebateKey,
			RechargeIsFallback: e.RebateKeyFallback,
			SourceBillID:       &billID,
			Month:              e.Month,
			RebateRate:         agency.RebateRate,
			RebateAmount:       rebate,
			Currency:           e.Currency,
			ActiveFrom:         e.ApprovedAt,
		})
		if err != nil {
			return err
		}
		created, err := repos.Rebates().CreateIfAbsent(ctx, receivable)
		if err != nil {
			return fmt.Errorf("failed to save rebate receivable: %w", err)
		}
		if !created {
			h.logger.Warn("rebate receivable created concurrently, keeping the existing one",
				zap.String("code", shared.CodeInconsistentState),
				zap.String("recharge_id", e.RebateKey),
			)
			return nil
		}
		h.logger.Info("rebate receivable accrued",
			zap.String("receivable_id", receivable.ID.String()),
			zap.String("bill_id", e.BillID.String()),
			zap.String("recharge_id", e.RebateKey),
			zap.String("rebate_amount", rebate.String()),
			zap.String("rate", agency.RebateRate.String()),
		)
		return nil
	})
}

func (h *RebateAccrualHandler) mergeIntoAggregator(ctx context.Context, e *settlement.BillApprovedEvent, agency *settlement.Agency, rebate decimal.Decimal) error {
	var err error
	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		err = h.mergeOnce(ctx, e, agency, rebate)
		if err == nil || !shared.IsStateConflict(err) {
			return err
		}
		h.logger.Debug("aggregator bill changed concurrently, retrying",
			zap.String("bill_id", e.BillID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return err
}

func (h *RebateAccrualHandler) mergeOnce(ctx context.Context, e *settlement.BillApprovedEvent, agency *settlement.Agency, rebate decimal.Decimal) error {
	return h.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		key := settlement.AggregatorKey{
			Month:       e.Month,
			AgencyID:    *e.AgencyID,
			AdAccountID: e.AdAccountID,
			Currency:    e.Currency,
		}
		var aggregators []settlement.Bill
		var err error
		if e.RebateKeyFallback {
			aggregators, err = repos.Bills().FindAggregators(ctx, key)
		} else {
			aggregators, err = repos.Bills().FindAggregatorsByRecharge(ctx, e.RebateKey)
		}
		if err != nil {
			return fmt.Errorf("failed to load aggregator bills: %w", err)
		}
		for i := range aggregators {
			if aggregators[i].HasRecharge(e.RebateKey) {
				h.logger.Warn("recharge already merged into an aggregator bill",
					zap.String("code", shared.CodeInconsistentState),
					zap.String("aggregator_id", aggregators[i].ID.String()),
					zap.String("recharge_id", e.RebateKey),
				)
				return nil
			}
		}

		draft, err := repos.Bills().FindDraftAggregator(ctx, key)
		switch {
		case err == nil:
			if err := draft.MergeRebate(rebate, e.RebateKey); err != nil {
				return err
			}
			if err := repos.Bills().SaveWithLock(ctx, draft); err != nil {
				return err
			}
			h.logger.Info("rebate merged into aggregator bill",
				zap.String("aggregator_id", draft.ID.String()),
				zap.String("bill_number", draft.BillNumber),
				zap.String("total_amount", draft.TotalAmount.String()),
			)
			return nil
		case !shared.IsNotFound(err):
			return fmt.Errorf("failed to load draft aggregator bill: %w", err)
		}

		number, err := repos.Bills().GenerateBillNumber(ctx, e.Month)
		if err != nil {
			return fmt.Errorf("failed to generate bill number: %w", err)
		}
		bill, err := settlement.NewRebateAggregatorBill(number, key, partyName(e.AgencyName, agency.Name), rebate, e.RebateKey, e.ApprovedBy)
		if err != nil {
			return err
		}
		created, err := repos.Bills().CreateAggregatorIfAbsent(ctx, bill)
		if err != nil {
			return fmt.Errorf("failed to save aggregator bill: %w", err)
		}
		if !created {
			// another approval opened the draft first; reload and merge
			return shared.ErrConcurrencyConflict
		}
		h.logger.Info("aggregator bill created",
			zap.String("aggregator_id", bill.ID.String()),
			zap.String("bill_number", bill.BillNumber),
			zap.String("total_amount", bill.TotalAmount.String()),
		)
		return nil
	})
}

func (h *RebateAccrualHandler) logFailure(step string, e *settlement.BillApprovedEvent, err error) {
	h.logger.Error("derived record failure",
		zap.String("code", shared.CodeDerivedRecordFailure),
		zap.String("step", step),
		zap.String("bill_id", e.BillID.String()),
		zap.String("bill_number", e.BillNumber),
		zap.Error(err),
	)
}

func partyName(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// Ensure RebateAccrualHandler implements shared.EventHandler
var _ shared.EventHandler = (*RebateAccrualHandler)(nil)
