package settlement

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingEntryService posts approved receivables to accounts
type PendingEntryService struct {
	scope        TransactionScope
	orchestrator *ApprovalOrchestrator
	ledger       *LedgerPoster
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewPendingEntryService creates a new PendingEntryService
func NewPendingEntryService(scope TransactionScope, orchestrator *ApprovalOrchestrator, ledger *LedgerPoster, logger *zap.Logger) *PendingEntryService {
	return &PendingEntryService{scope: scope, orchestrator: orchestrator, ledger: ledger, logger: logger}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PendingEntryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// List returns pending entries; an empty status returns the open queue
func (s *PendingEntryService) List(ctx context.Context, status string) ([]PendingEntryResponse, error) {
	if status == "" {
		status = string(settlement.PendingEntryStatusPending)
	}
	var entries []settlement.PendingEntry
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		entries, err = repos.PendingEntries().FindByStatus(ctx, settlement.PendingEntryStatus(status))
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]PendingEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToPendingEntryResponse(&entries[i])
	}
	return out, nil
}

// Complete posts a pending entry to an account. The cash-flow event, the
// balance refresh, the entry completion and the related document's settlement
// commit together.
func (s *PendingEntryService) Complete(ctx context.Context, id, by uuid.UUID, in CompleteEntryInput) (*PendingEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pending_entry", "complete",
		telemetry.WithAttribute(telemetry.SpanAttrEntryID, id.String()),
	)
	defer span.End()

	var entry *settlement.PendingEntry
	var raised []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.PendingEntries().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if entry.IsCompleted() {
			return shared.NewStateConflictError("complete pending entry", string(entry.Status))
		}

		settle, err := s.relatedDocument(ctx, repos, entry, by)
		if err != nil {
			return err
		}

		entryID := entry.ID
		event, account, err := s.ledger.Post(ctx, repos, Posting{
			AccountID:    in.AccountID,
			Type:         entry.CashFlowType(),
			Amount:       entry.NetAmount,
			Currency:     entry.Currency,
			Date:         in.EntryDate,
			ExchangeRate: in.ExchangeRate,
			RelatedID:    &entryID,
			RelatedType:  settlement.RelatedPendingEntry,
			Description:  entry.RelatedNumber,
			CreatedBy:    by,
		})
		if err != nil {
			return err
		}
		if err := entry.Complete(account, in.EntryDate, by, event.ID); err != nil {
			return err
		}
		if err := repos.PendingEntries().SaveWithLock(ctx, entry); err != nil {
			return err
		}
		raised, err = settle(account, event.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("pending entry completed",
		zap.String("entry_id", entry.ID.String()),
		zap.String("related_number", entry.RelatedNumber),
		zap.String("account_id", in.AccountID.String()),
		zap.String("net_amount", entry.NetAmount.String()),
	)
	if s.publisher != nil && len(raised) > 0 {
		_ = s.publisher.Publish(ctx, raised...)
	}
	telemetry.SetOK(span)
	resp := ToPendingEntryResponse(entry)
	return &resp, nil
}

type settleFunc func(account *settlement.Account, cashFlowID uuid.UUID) ([]shared.DomainEvent, error)

// relatedDocument loads the document behind an entry, checks it can still be
// received and returns the function that settles it.
func (s *PendingEntryService) relatedDocument(ctx context.Context, repos TransactionalRepositories, entry *settlement.PendingEntry, by uuid.UUID) (settleFunc, error) {
	switch entry.Type {
	case settlement.PendingEntryTypeBill:
		bill, err := repos.Bills().FindByID(ctx, entry.RelatedID)
		if err != nil {
			return nil, err
		}
		if _, err := settlement.NextStatus(bill.Kind(), settlement.ActionReceive, bill.Status); err != nil {
			return nil, err
		}
		return func(account *settlement.Account, cashFlowID uuid.UUID) ([]shared.DomainEvent, error) {
			if err := bill.MarkReceived(by, account.ID, account.Name, cashFlowID); err != nil {
				return nil, err
			}
			if err := repos.Bills().SaveWithLock(ctx, bill); err != nil {
				return nil, err
			}
			events := bill.GetDomainEvents()
			bill.ClearDomainEvents()
			return events, nil
		}, nil
	case settlement.PendingEntryTypeIncomeRequest:
		request, err := repos.Requests().FindByID(ctx, entry.RelatedID)
		if err != nil {
			return nil, err
		}
		if _, err := settlement.NextStatus(request.DocumentKind(), settlement.ActionReceive, request.Status); err != nil {
			return nil, err
		}
		return func(account *settlement.Account, cashFlowID uuid.UUID) ([]shared.DomainEvent, error) {
			if err := request.MarkReceived(by, account.ID, account.Name, cashFlowID); err != nil {
				return nil, err
			}
			if err := repos.Requests().SaveWithLock(ctx, request); err != nil {
				return nil, err
			}
			events := request.GetDomainEvents()
			request.ClearDomainEvents()
			return events, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown pending entry type %q", entry.Type)
	}
}

// Reconcile recreates pending entries missing for approved receivables
func (s *PendingEntryService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	return s.orchestrator.ReconcilePendingEntries(ctx)
}
