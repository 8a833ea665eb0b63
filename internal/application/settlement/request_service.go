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

// RequestService runs the expense and income request workflow
type RequestService struct {
	scope        TransactionScope
	orchestrator *ApprovalOrchestrator
	ledger       *LedgerPoster
	verifier     VoucherVerifier
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(scope TransactionScope, orchestrator *ApprovalOrchestrator, ledger *LedgerPoster, logger *zap.Logger) *RequestService {
	return &RequestService{
		scope:        scope,
		orchestrator: orchestrator,
		ledger:       ledger,
		verifier:     noopVerifier{},
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *RequestService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetVoucherVerifier enables voucher verification on submit
func (s *RequestService) SetVoucherVerifier(verifier VoucherVerifier) {
	if verifier != nil {
		s.verifier = verifier
	}
}

// Create creates a draft request
func (s *RequestService) Create(ctx context.Context, by uuid.UUID, in RequestInput) (*RequestResponse, error) {
	params, err := in.params()
	if err != nil {
		return nil, err
	}
	var request *settlement.Request
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.Requests().GenerateRequestNumber(ctx, params.Kind)
		if err != nil {
			return fmt.Errorf("failed to generate request number: %w", err)
		}
		request, err = settlement.NewRequest(number, by, params)
		if err != nil {
			return err
		}
		return repos.Requests().Save(ctx, request)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("request created",
		zap.String("request_id", request.ID.String()),
		zap.String("request_number", request.RequestNumber),
		zap.String("kind", string(request.Kind)),
	)
	resp := ToRequestResponse(request)
	return &resp, nil
}

// Update edits a draft request
func (s *RequestService) Update(ctx context.Context, id uuid.UUID, in RequestInput) (*RequestResponse, error) {
	params, err := in.params()
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, "update", func(_ TransactionalRepositories, r *settlement.Request) error {
		return r.UpdateDraft(params)
	})
}

// GetByID returns one request
func (s *RequestService) GetByID(ctx context.Context, id uuid.UUID) (*RequestResponse, error) {
	var request *settlement.Request
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		request, err = repos.Requests().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToRequestResponse(request)
	return &resp, nil
}

// List returns a page of requests
func (s *RequestService) List(ctx context.Context, in RequestListFilter) ([]RequestResponse, int64, error) {
	filter := settlement.RequestFilter{Filter: pageFilter(in.Page, in.PageSize)}
	filter.Search = in.Search
	if in.Kind != "" {
		kind := settlement.RequestKind(in.Kind)
		filter.Kind = &kind
	}
	if in.Status != "" {
		status := settlement.DocumentStatus(in.Status)
		filter.Status = &status
	}
	var requests []settlement.Request
	var total int64
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		requests, total, err = repos.Requests().FindAll(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]RequestResponse, len(requests))
	for i := range requests {
		out[i] = ToRequestResponse(&requests[i])
	}
	return out, total, nil
}

// SubmitForReview sends a draft request to finance review
func (s *RequestService) SubmitForReview(ctx context.Context, id, by uuid.UUID, voucher string) (*RequestResponse, error) {
	if voucher != "" {
		if err := s.verifier.Verify(ctx, voucher); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, id, "submit", func(_ TransactionalRepositories, r *settlement.Request) error {
		return r.SubmitForReview(by, voucher)
	})
}

// FinanceApprove passes finance review
func (s *RequestService) FinanceApprove(ctx context.Context, id, by uuid.UUID) (*RequestResponse, error) {
	return s.transition(ctx, id, "finance_approve", func(_ TransactionalRepositories, r *settlement.Request) error {
		return r.FinanceApprove(by)
	})
}

// FinanceReject returns a request under finance review to draft
func (s *RequestService) FinanceReject(ctx context.Context, id, by uuid.UUID, reason string) (*RequestResponse, error) {
	return s.transition(ctx, id, "finance_reject", func(_ TransactionalRepositories, r *settlement.Request) error {
		return r.FinanceReject(by, reason)
	})
}

// Reject terminally rejects a request
func (s *RequestService) Reject(ctx context.Context, id, by uuid.UUID, reason string) (*RequestResponse, error) {
	return s.transition(ctx, id, "reject", func(_ TransactionalRepositories, r *settlement.Request) error {
		return r.Reject(by, reason)
	})
}

// Approve approves a request; income requests queue a pending entry in the same transaction
func (s *RequestService) Approve(ctx context.Context, id, by uuid.UUID) (*RequestResponse, error) {
	return s.transition(ctx, id, "approve", func(repos TransactionalRepositories, r *settlement.Request) error {
		if err := r.Approve(by); err != nil {
			return err
		}
		if err := repos.Requests().SaveWithLock(ctx, r); err != nil {
			return err
		}
		return s.orchestrator.OnRequestApproved(ctx, repos, r)
	}, withSelfSave())
}

// Pay pays an approved expense request from an account
func (s *RequestService) Pay(ctx context.Context, id, by uuid.UUID, in PayInput) (*RequestResponse, error) {
	if in.Voucher != "" {
		if err := s.verifier.Verify(ctx, in.Voucher); err != nil {
			return nil, err
		}
	}
	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	return s.transition(ctx, id, "pay", func(repos TransactionalRepositories, r *settlement.Request) error {
		if _, err := settlement.NextStatus(r.DocumentKind(), settlement.ActionPay, r.Status); err != nil {
			return err
		}
		requestID := r.ID
		voucherNumber := NewVoucherNumber(date)
		event, account, err := s.ledger.Post(ctx, repos, Posting{
			AccountID:     in.AccountID,
			Type:          settlement.CashFlowExpense,
			Amount:        r.Amount,
			Currency:      r.Currency,
			Date:          date,
			ExchangeRate:  in.ExchangeRate,
			RelatedID:     &requestID,
			RelatedType:   settlement.RelatedRequest,
			VoucherNumber: voucherNumber,
			Description:   fmt.Sprintf("%s %s", r.RequestNumber, r.Title),
			CreatedBy:     by,
		})
		if err != nil {
			return err
		}
		accountID := account.ID
		return r.Pay(by, settlement.PaymentDetails{
			VoucherNumber: voucherNumber,
			AccountID:     &accountID,
			AccountName:   account.Name,
			Method:        in.Method,
			Voucher:       in.Voucher,
			Remarks:       in.Remarks,
		}, event.ID)
	})
}

func (s *RequestService) transition(ctx context.Context, id uuid.UUID, method string, mutate func(TransactionalRepositories, *settlement.Request) error, opts ...transitionOption) (*RequestResponse, error) {
	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "request", method,
		telemetry.WithAttribute(telemetry.SpanAttrRequestID, id.String()),
	)
	defer span.End()

	var request *settlement.Request
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		request, err = repos.Requests().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(repos, request); err != nil {
			return err
		}
		if o.selfSave {
			return nil
		}
		return repos.Requests().SaveWithLock(ctx, request)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("request transition failed",
			zap.String("request_id", id.String()),
			zap.String("action", method),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("request transitioned",
		zap.String("request_id", request.ID.String()),
		zap.String("request_number", request.RequestNumber),
		zap.String("action", method),
		zap.String("status", string(request.Status)),
	)
	events := request.GetDomainEvents()
	request.ClearDomainEvents()
	if s.publisher != nil && len(events) > 0 {
		_ = s.publisher.Publish(ctx, events...)
	}
	telemetry.SetOK(span)
	resp := ToRequestResponse(request)
	return &resp, nil
}
