package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BillService runs the bill workflow. Every transition is load, guard, mutate
// and save-with-lock inside one transaction; domain events are published after
// the commit.
type BillService struct {
	scope        TransactionScope
	orchestrator *ApprovalOrchestrator
	ledger       *LedgerPoster
	verifier     VoucherVerifier
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewBillService creates a new BillService
func NewBillService(scope TransactionScope, orchestrator *ApprovalOrchestrator, ledger *LedgerPoster, logger *zap.Logger) *BillService {
	return &BillService{
		scope:        scope,
		orchestrator: orchestrator,
		ledger:       ledger,
		verifier:     noopVerifier{},
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BillService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetVoucherVerifier enables voucher verification on submit
func (s *BillService) SetVoucherVerifier(verifier VoucherVerifier) {
	if verifier != nil {
		s.verifier = verifier
	}
}

// Create creates a draft bill
func (s *BillService) Create(ctx context.Context, by uuid.UUID, in BillInput) (*BillResponse, error) {
	params, err := in.params()
	if err != nil {
		return nil, err
	}
	var bill *settlement.Bill
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.Bills().GenerateBillNumber(ctx, params.Month)
		if err != nil {
			return fmt.Errorf("failed to generate bill number: %w", err)
		}
		bill, err = settlement.NewBill(number, by, params)
		if err != nil {
			return err
		}
		return repos.Bills().Save(ctx, bill)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("net_amount", bill.NetAmount.String()),
	)
	s.publish(ctx, bill)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// Update edits a draft bill
func (s *BillService) Update(ctx context.Context, id uuid.UUID, in BillInput) (*BillResponse, error) {
	params, err := in.params()
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, "update", func(_ TransactionalRepositories, b *settlement.Bill) error {
		return b.UpdateDraft(params)
	})
}

// SaveBatch creates or updates a batch of draft bills in one transaction
func (s *BillService) SaveBatch(ctx context.Context, by uuid.UUID, inputs []BillInput) ([]BillResponse, error) {
	if len(inputs) == 0 {
		return nil, shared.NewValidationError("batch is empty")
	}
	bills := make([]settlement.Bill, 0, len(inputs))
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i, in := range inputs {
			params, err := in.params()
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if in.ID != nil {
				bill, err := repos.Bills().FindByID(ctx, *in.ID)
				if err != nil {
					return err
				}
				if err := bill.UpdateDraft(params); err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
				if err := repos.Bills().SaveWithLock(ctx, bill); err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
				bills = append(bills, *bill)
				continue
			}
			number, err := repos.Bills().GenerateBillNumber(ctx, params.Month)
			if err != nil {
				return fmt.Errorf("failed to generate bill number: %w", err)
			}
			bill, err := settlement.NewBill(number, by, params)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if err := repos.Bills().Save(ctx, bill); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			bills = append(bills, *bill)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("bill batch saved", zap.Int("count", len(bills)))
	return ToBillResponses(bills), nil
}

// GetByID returns one bill
func (s *BillService) GetByID(ctx context.Context, id uuid.UUID) (*BillResponse, error) {
	var bill *settlement.Bill
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		bill, err = repos.Bills().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}

// List returns a page of bills
func (s *BillService) List(ctx context.Context, in BillListFilter) ([]BillResponse, int64, error) {
	filter := settlement.BillFilter{
		Filter:             pageFilter(in.Page, in.PageSize),
		Month:              in.Month,
		AgencyID:           in.AgencyID,
		IsRebateAggregator: in.Aggregator,
	}
	filter.Search = in.Search
	if in.OrderBy != "" {
		filter.OrderBy = in.OrderBy
	}
	if in.OrderDir != "" {
		filter.OrderDir = in.OrderDir
	}
	if in.Status != "" {
		status := settlement.DocumentStatus(in.Status)
		filter.Status = &status
	}
	if in.Category != "" {
		category := settlement.BillCategory(in.Category)
		filter.Category = &category
	}
	if in.Type != "" {
		billType := settlement.BillType(in.Type)
		filter.Type = &billType
	}

	var bills []settlement.Bill
	var total int64
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		bills, total, err = repos.Bills().FindAll(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToBillResponses(bills), total, nil
}

// PendingPayment lists approved payable bills waiting for the cashier
func (s *BillService) PendingPayment(ctx context.Context) ([]BillResponse, error) {
	var bills []settlement.Bill
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		bills, err = repos.Bills().FindByStatus(ctx, settlement.StatusApproved)
		return err
	})
	if err != nil {
		return nil, err
	}
	payable := make([]settlement.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Category == settlement.BillCategoryPayable {
			payable = append(payable, b)
		}
	}
	return ToBillResponses(payable), nil
}

// SubmitForReview sends a draft bill to finance review
func (s *BillService) SubmitForReview(ctx context.Context, id, by uuid.UUID, voucher string) (*BillResponse, error) {
	if voucher != "" {
		if err := s.verifier.Verify(ctx, voucher); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, id, "submit", func(_ TransactionalRepositories, b *settlement.Bill) error {
		return b.SubmitForReview(by, voucher)
	})
}

// FinanceApprove passes finance review
func (s *BillService) FinanceApprove(ctx context.Context, id, by uuid.UUID) (*BillResponse, error) {
	return s.transition(ctx, id, "finance_approve", func(_ TransactionalRepositories, b *settlement.Bill) error {
		return b.FinanceApprove(by)
	})
}

// FinanceReject returns a bill under finance review to draft
func (s *BillService) FinanceReject(ctx context.Context, id, by uuid.UUID, reason string) (*BillResponse, error) {
	return s.transition(ctx, id, "finance_reject", func(_ TransactionalRepositories, b *settlement.Bill) error {
		return b.FinanceReject(by, reason)
	})
}

// Reject returns a bill under review or awaiting approval to draft
func (s *BillService) Reject(ctx context.Context, id, by uuid.UUID, reason string) (*BillResponse, error) {
	return s.transition(ctx, id, "reject", func(_ TransactionalRepositories, b *settlement.Bill) error {
		return b.Reject(by, reason)
	})
}

// Approve approves a bill. The pending entry of a receivable bill commits with
// the approval; rebate projections follow from the published event.
func (s *BillService) Approve(ctx context.Context, id, by uuid.UUID) (*BillResponse, error) {
	return s.transition(ctx, id, "approve", func(repos TransactionalRepositories, b *settlement.Bill) error {
		if err := b.Approve(by); err != nil {
			return err
		}
		if err := repos.Bills().SaveWithLock(ctx, b); err != nil {
			return err
		}
		return s.orchestrator.OnBillApproved(ctx, repos, b)
	}, withSelfSave())
}

// Pay pays an approved payable bill from an account. The balance check, the
// expense posting and the status flip commit together.
func (s *BillService) Pay(ctx context.Context, id, by uuid.UUID, in PayInput) (*BillResponse, error) {
	if in.Voucher != "" {
		if err := s.verifier.Verify(ctx, in.Voucher); err != nil {
			return nil, err
		}
	}
	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	return s.transition(ctx, id, "pay", func(repos TransactionalRepositories, b *settlement.Bill) error {
		if _, err := settlement.NextStatus(b.Kind(), settlement.ActionPay, b.Status); err != nil {
			return err
		}
		billID := b.ID
		voucherNumber := NewVoucherNumber(date)
		event, account, err := s.ledger.Post(ctx, repos, Posting{
			AccountID:     in.AccountID,
			Type:          settlement.CashFlowExpense,
			Amount:        b.NetAmount,
			Currency:      b.Currency,
			Date:          date,
			ExchangeRate:  in.ExchangeRate,
			RelatedID:     &billID,
			RelatedType:   settlement.RelatedBill,
			VoucherNumber: voucherNumber,
			Description:   fmt.Sprintf("%s %s", b.BillNumber, b.PartyName()),
			CreatedBy:     by,
		})
		if err != nil {
			return err
		}
		accountID := account.ID
		return b.Pay(by, settlement.PaymentDetails{
			VoucherNumber: voucherNumber,
			AccountID:     &accountID,
			AccountName:   account.Name,
			Method:        in.Method,
			Voucher:       in.Voucher,
			Remarks:       in.Remarks,
		}, event.ID)
	})
}

type transitionOptions struct {
	selfSave bool
}

type transitionOption func(*transitionOptions)

// withSelfSave marks a mutation that persists the bill itself before
// touching derived records
func withSelfSave() transitionOption {
	return func(o *transitionOptions) { o.selfSave = true }
}

func (s *BillService) transition(ctx context.Context, id uuid.UUID, method string, mutate func(TransactionalRepositories, *settlement.Bill) error, opts ...transitionOption) (*BillResponse, error) {
	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "bill", method,
		telemetry.WithAttribute(telemetry.SpanAttrBillID, id.String()),
	)
	defer span.End()

	var bill *settlement.Bill
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		bill, err = repos.Bills().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(repos, bill); err != nil {
			return err
		}
		if o.selfSave {
			return nil
		}
		return repos.Bills().SaveWithLock(ctx, bill)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("bill transition failed",
			zap.String("bill_id", id.String()),
			zap.String("action", method),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("bill transitioned",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("action", method),
		zap.String("status", string(bill.Status)),
	)
	s.publish(ctx, bill)
	telemetry.SetOK(span)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// publish publishes and clears the bill's domain events
func (s *BillService) publish(ctx context.Context, bill *settlement.Bill) {
	events := bill.GetDomainEvents()
	bill.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.publisher.Publish(ctx, events...)
}
