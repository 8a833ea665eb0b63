package settlement

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"go.uber.org/zap"
)

// ApprovalOrchestrator owns the derived records that must commit atomically
// with an approval: the pending entry of a receivable document. The best-effort
// rebate projections live in RebateAccrualHandler.
type ApprovalOrchestrator struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewApprovalOrchestrator creates a new ApprovalOrchestrator
func NewApprovalOrchestrator(scope TransactionScope, logger *zap.Logger) *ApprovalOrchestrator {
	return &ApprovalOrchestrator{scope: scope, logger: logger}
}

// OnBillApproved creates the pending entry of an approved receivable bill.
// Payable bills need nothing: they show up in the pending-payment list.
func (o *ApprovalOrchestrator) OnBillApproved(ctx context.Context, repos TransactionalRepositories, bill *settlement.Bill) error {
	if !bill.Kind().RequiresPendingEntry() {
		return nil
	}
	entry, err := settlement.NewPendingEntryForBill(bill)
	if err != nil {
		return err
	}
	return o.ensurePendingEntry(ctx, repos, entry)
}

// OnRequestApproved creates the pending entry of an approved income request
func (o *ApprovalOrchestrator) OnRequestApproved(ctx context.Context, repos TransactionalRepositories, request *settlement.Request) error {
	if !request.DocumentKind().RequiresPendingEntry() {
		return nil
	}
	entry, err := settlement.NewPendingEntryForRequest(request)
	if err != nil {
		return err
	}
	return o.ensurePendingEntry(ctx, repos, entry)
}

func (o *ApprovalOrchestrator) ensurePendingEntry(ctx context.Context, repos TransactionalRepositories, entry *settlement.PendingEntry) error {
	existing, err := repos.PendingEntries().FindByRelated(ctx, entry.Type, entry.RelatedID)
	if err == nil {
		o.logger.Warn("pending entry already exists for approved document",
			zap.String("code", shared.CodeInconsistentState),
			zap.String("entry_id", existing.ID.String()),
			zap.String("related_id", entry.RelatedID.String()),
		)
		return nil
	}
	if !shared.IsNotFound(err) {
		return fmt.Errorf("failed to look up pending entry: %w", err)
	}

	created, err := repos.PendingEntries().CreateIfAbsent(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create pending entry: %w", err)
	}
	if created {
		o.logger.Info("pending entry created",
			zap.String("entry_id", entry.ID.String()),
			zap.String("type", string(entry.Type)),
			zap.String("related_number", entry.RelatedNumber),
			zap.String("net_amount", entry.NetAmount.String()),
		)
	}
	return nil
}

// ReconcileResult summarises a reconciliation run
type ReconcileResult struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
}

// ReconcilePendingEntries recreates missing pending entries for every approved
// receivable bill and income request.
func (o *ApprovalOrchestrator) ReconcilePendingEntries(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	err := o.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		bills, err := repos.Bills().FindByStatus(ctx, settlement.StatusApproved)
		if err != nil {
			return fmt.Errorf("failed to load approved bills: %w", err)
		}
		for i := range bills {
			if !bills[i].Kind().RequiresPendingEntry() {
				continue
			}
			result.Scanned++
			entry, err := settlement.NewPendingEntryForBill(&bills[i])
			if err != nil {
				return err
			}
			created, err := o.createMissing(ctx, repos, entry)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			}
		}

		requests, err := repos.Requests().FindByStatus(ctx, settlement.StatusApproved)
		if err != nil {
			return fmt.Errorf("failed to load approved requests: %w", err)
		}
		for i := range requests {
			if !requests[i].DocumentKind().RequiresPendingEntry() {
				continue
			}
			result.Scanned++
			entry, err := settlement.NewPendingEntryForRequest(&requests[i])
			if err != nil {
				return err
			}
			created, err := o.createMissing(ctx, repos, entry)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info("pending entries reconciled",
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
	)
	return result, nil
}

func (o *ApprovalOrchestrator) createMissing(ctx context.Context, repos TransactionalRepositories, entry *settlement.PendingEntry) (bool, error) {
	created, err := repos.PendingEntries().CreateIfAbsent(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("failed to create pending entry: %w", err)
	}
	if created {
		o.logger.Warn("recreated missing pending entry",
			zap.String("related_id", entry.RelatedID.String()),
			zap.String("related_number", entry.RelatedNumber),
		)
	}
	return created, nil
}
