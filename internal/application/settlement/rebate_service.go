package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RebateService manages the rebate receivable sub-ledger
type RebateService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewRebateService creates a new RebateService
func NewRebateService(scope TransactionScope, logger *zap.Logger) *RebateService {
	return &RebateService{scope: scope, logger: logger}
}

// GetByID returns one receivable with its history
func (s *RebateService) GetByID(ctx context.Context, id uuid.UUID) (*RebateResponse, error) {
	var r *settlement.RebateReceivable
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.Rebates().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToRebateResponse(r)
	return &resp, nil
}

// List returns a page of receivables
func (s *RebateService) List(ctx context.Context, in RebateListFilter) ([]RebateResponse, int64, error) {
	filter := settlement.RebateFilter{
		Filter:      pageFilter(in.Page, in.PageSize),
		AgencyID:    in.AgencyID,
		AdAccountID: in.AdAccountID,
	}
	if in.Status != "" {
		status := settlement.RebateStatus(in.Status)
		filter.Status = &status
	}
	var receivables []settlement.RebateReceivable
	var total int64
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		receivables, total, err = repos.Rebates().FindAll(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]RebateResponse, len(receivables))
	for i := range receivables {
		out[i] = ToRebateResponse(&receivables[i])
	}
	return out, total, nil
}

// ApplyConsumption writes a consumption off against the open receivables of
// its agency and ad account, oldest first. Replaying a consumption only
// applies the part that has not been written off yet.
func (s *RebateService) ApplyConsumption(ctx context.Context, in ConsumptionInput) (*ConsumptionResult, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, shared.NewValidationError("consumption id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewValidationError("consumption amount must be positive")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "rebate", "apply_consumption",
		telemetry.WithAttribute(telemetry.SpanAttrConsumptionID, in.ID),
	)
	defer span.End()

	result := &ConsumptionResult{ConsumptionID: in.ID, Applied: make([]AppliedWriteoff, 0)}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		agencyID := in.AgencyID
		all, _, err := repos.Rebates().FindAll(ctx, settlement.RebateFilter{AgencyID: &agencyID, AdAccountID: in.AdAccountID})
		if err != nil {
			return fmt.Errorf("failed to load receivables: %w", err)
		}
		remaining := in.Amount.Sub(appliedBefore(all, in.ID))

		open, err := repos.Rebates().FindOpen(ctx, in.AgencyID, in.AdAccountID)
		if err != nil {
			return fmt.Errorf("failed to load open receivables: %w", err)
		}
		for i := range open {
			if !remaining.IsPositive() {
				break
			}
			r := &open[i]
			if !r.Covers(in.Date) || r.HasWriteoff(in.ID) {
				continue
			}
			record, err := r.WriteOff(in.ID, in.Date, remaining)
			if err != nil {
				return err
			}
			if err := repos.Rebates().SaveWithLock(ctx, r); err != nil {
				return err
			}
			remaining = remaining.Sub(record.WriteoffAmount)
			result.Applied = append(result.Applied, AppliedWriteoff{ReceivableID: r.ID, Record: *record})
		}
		result.Unapplied = decimal.Max(decimal.Zero, remaining)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("consumption applied to rebates",
		zap.String("consumption_id", in.ID),
		zap.String("agency_id", in.AgencyID.String()),
		zap.Int("writeoffs", len(result.Applied)),
		zap.String("unapplied", result.Unapplied.String()),
	)
	telemetry.SetOK(span)
	return result, nil
}

func appliedBefore(receivables []settlement.RebateReceivable, consumptionID string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range receivables {
		for _, w := range r.WriteoffRecords {
			if w.ConsumptionID == consumptionID {
				total = total.Add(w.WriteoffAmount)
			}
		}
	}
	return total
}

// WriteOff writes a consumption off against one receivable
func (s *RebateService) WriteOff(ctx context.Context, id uuid.UUID, in WriteOffInput) (*RebateResponse, error) {
	return s.mutate(ctx, id, "writeoff", func(r *settlement.RebateReceivable) error {
		record, err := r.WriteOff(in.ConsumptionID, in.Date, in.Amount)
		if err != nil {
			return err
		}
		s.logger.Info("rebate written off",
			zap.String("receivable_id", r.ID.String()),
			zap.String("consumption_id", in.ConsumptionID),
			zap.String("amount", record.WriteoffAmount.String()),
			zap.String("remaining", record.RemainingBalance.String()),
		)
		return nil
	})
}

// Adjust applies a manual signed correction to a receivable balance
func (s *RebateService) Adjust(ctx context.Context, id, by uuid.UUID, in AdjustInput) (*RebateResponse, error) {
	return s.mutate(ctx, id, "adjust", func(r *settlement.RebateReceivable) error {
		adj, err := r.Adjust(in.Amount, in.Reason, by)
		if err != nil {
			return err
		}
		fields := []zap.Field{
			zap.String("receivable_id", r.ID.String()),
			zap.String("amount", adj.Amount.String()),
			zap.String("balance_before", adj.BalanceBefore.String()),
			zap.String("balance_after", adj.BalanceAfter.String()),
		}
		if lost := adj.BalanceBefore.Add(adj.Amount); lost.IsNegative() {
			s.logger.Warn("rebate adjustment clamped at zero",
				append(fields, zap.String("discarded", lost.Neg().String()))...)
			return nil
		}
		s.logger.Info("rebate balance adjusted", fields...)
		return nil
	})
}

func (s *RebateService) mutate(ctx context.Context, id uuid.UUID, method string, fn func(*settlement.RebateReceivable) error) (*RebateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "rebate", method,
		telemetry.WithAttribute(telemetry.SpanAttrReceivableID, id.String()),
	)
	defer span.End()

	var r *settlement.RebateReceivable
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.Rebates().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		return repos.Rebates().SaveWithLock(ctx, r)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	resp := ToRebateResponse(r)
	return &resp, nil
}
