package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountService manages accounts, the cash-flow ledger and derived balances
type AccountService struct {
	scope  TransactionScope
	ledger *LedgerPoster
	rates  ExchangeRateProvider
	opts   Options
	logger *zap.Logger
}

// NewAccountService creates a new AccountService; rates may be nil
func NewAccountService(scope TransactionScope, ledger *LedgerPoster, rates ExchangeRateProvider, opts Options, logger *zap.Logger) *AccountService {
	return &AccountService{scope: scope, ledger: ledger, rates: rates, opts: opts.normalized(), logger: logger}
}

// List returns every account with its cached balances
func (s *AccountService) List(ctx context.Context) ([]AccountResponse, error) {
	var accounts []settlement.Account
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		accounts, err = repos.Accounts().FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAccountResponses(accounts), nil
}

// SaveAll replaces the account list after validating the hierarchy, then
// refreshes the cached balances
func (s *AccountService) SaveAll(ctx context.Context, inputs []AccountInput) ([]AccountResponse, error) {
	var accounts []settlement.Account
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Accounts().FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load accounts: %w", err)
		}
		byID := make(map[uuid.UUID]settlement.Account, len(existing))
		for _, a := range existing {
			byID[a.ID] = a
		}

		accounts = make([]settlement.Account, 0, len(inputs))
		for i, in := range inputs {
			account, err := buildAccount(in, byID)
			if err != nil {
				return fmt.Errorf("account %d: %w", i, err)
			}
			accounts = append(accounts, *account)
		}
		if err := settlement.ValidateHierarchy(accounts); err != nil {
			return err
		}
		if err := repos.Accounts().SaveAll(ctx, accounts); err != nil {
			return err
		}
		balances, err := s.ledger.Refresh(ctx, repos)
		if err != nil {
			return err
		}
		settlement.ApplyBalances(accounts, balances)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("accounts saved", zap.Int("count", len(accounts)))
	return toAccountResponses(accounts), nil
}

func buildAccount(in AccountInput, existing map[uuid.UUID]settlement.Account) (*settlement.Account, error) {
	currency, err := valueobject.ParseCurrency(in.Currency)
	if err != nil {
		return nil, shared.NewValidationError("%s", err.Error())
	}
	rate := in.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	account, err := settlement.NewAccount(in.Name, currency, settlement.AccountCategory(in.Category), in.ParentID, in.InitialCapital, rate)
	if err != nil {
		return nil, err
	}
	if in.ID == nil {
		return account, nil
	}
	account.ID = *in.ID
	if prev, ok := existing[*in.ID]; ok {
		account.CreatedAt = prev.CreatedAt
		account.Version = prev.Version + 1
	}
	return account, nil
}

// Balances derives every account balance from one consistent snapshot of
// accounts and ledger, preferring live exchange rates
func (s *AccountService) Balances(ctx context.Context) (*BalancesResponse, error) {
	var accounts []settlement.Account
	var events []settlement.CashFlowEvent
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		if accounts, err = repos.Accounts().FindAll(ctx); err != nil {
			return err
		}
		events, err = repos.CashFlows().FindAll(ctx, settlement.CashFlowFilter{})
		return err
	})
	if err != nil {
		return nil, err
	}
	balances := settlement.ComputeBalances(accounts, events, settlement.BalanceOptions{
		BaseCurrency: s.opts.BaseCurrency,
		LiveRates:    s.ledger.liveRates(ctx),
	})
	return &BalancesResponse{
		BaseCurrency: s.opts.BaseCurrency,
		Accounts:     balances,
		TotalBase:    settlement.TotalBaseBalance(balances),
		ComputedAt:   time.Now(),
	}, nil
}

// Recalculate rewrites the cached balances from the ledger
func (s *AccountService) Recalculate(ctx context.Context) ([]settlement.AccountBalance, error) {
	var balances []settlement.AccountBalance
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		balances, err = s.ledger.Refresh(ctx, repos)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account balances recalculated", zap.Int("accounts", len(balances)))
	return balances, nil
}

// ListCashFlows returns ledger lines
func (s *AccountService) ListCashFlows(ctx context.Context, in CashFlowListFilter) ([]CashFlowResponse, error) {
	filter := settlement.CashFlowFilter{
		Filter:    pageFilter(in.Page, in.PageSize),
		AccountID: in.AccountID,
		From:      in.From,
		To:        in.To,
	}
	if in.Status != "" {
		status := settlement.CashFlowStatus(in.Status)
		filter.Status = &status
	}
	var events []settlement.CashFlowEvent
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		events, err = repos.CashFlows().FindAll(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]CashFlowResponse, len(events))
	for i := range events {
		out[i] = ToCashFlowResponse(&events[i])
	}
	return out, nil
}

// PostCashFlow records a manual ledger line in the account's currency
func (s *AccountService) PostCashFlow(ctx context.Context, by uuid.UUID, in CashFlowInput) (*CashFlowResponse, error) {
	var event *settlement.CashFlowEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByID(ctx, in.AccountID)
		if err != nil {
			return err
		}
		voucher := in.VoucherNumber
		if voucher == "" {
			voucher = NewVoucherNumber(in.Date)
		}
		event, _, err = s.ledger.Post(ctx, repos, Posting{
			AccountID:     account.ID,
			Type:          settlement.CashFlowType(in.Type),
			Amount:        in.Amount,
			Currency:      account.Currency,
			Date:          in.Date,
			RelatedType:   settlement.RelatedManual,
			VoucherNumber: voucher,
			Description:   in.Description,
			CreatedBy:     by,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("manual cash flow posted",
		zap.String("cash_flow_id", event.ID.String()),
		zap.String("account_id", event.AccountID.String()),
		zap.String("type", string(event.Type)),
		zap.String("amount", event.Amount.String()),
	)
	resp := ToCashFlowResponse(event)
	return &resp, nil
}

// ReverseCashFlow voids a ledger line and refreshes the balances
func (s *AccountService) ReverseCashFlow(ctx context.Context, id, by uuid.UUID, reason string) (*CashFlowResponse, error) {
	var event *settlement.CashFlowEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		event, err = repos.CashFlows().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := event.Reverse(reason, by); err != nil {
			return err
		}
		if err := repos.CashFlows().MarkReversed(ctx, event); err != nil {
			return err
		}
		_, err = s.ledger.Refresh(ctx, repos)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash flow reversed",
		zap.String("cash_flow_id", event.ID.String()),
		zap.String("reason", event.ReversalReason),
	)
	resp := ToCashFlowResponse(event)
	return &resp, nil
}

// ExchangeRates returns the cached live rates
func (s *AccountService) ExchangeRates(ctx context.Context) (map[valueobject.Currency]decimal.Decimal, error) {
	if s.rates == nil {
		return map[valueobject.Currency]decimal.Decimal{}, nil
	}
	return s.rates.GetRates(ctx, s.opts.BaseCurrency)
}

// SetExchangeRates stores caller-resolved live rates
func (s *AccountService) SetExchangeRates(ctx context.Context, in ExchangeRatesInput) (map[valueobject.Currency]decimal.Decimal, error) {
	if s.rates == nil {
		return nil, shared.NewValidationError("live exchange rates are not configured")
	}
	rates := make(map[valueobject.Currency]decimal.Decimal, len(in.Rates))
	for code, rate := range in.Rates {
		currency, err := valueobject.ParseCurrency(code)
		if err != nil {
			return nil, shared.NewValidationError("%s", err.Error())
		}
		if !rate.IsPositive() {
			return nil, shared.NewValidationError("rate for %s must be positive", currency)
		}
		rates[currency] = rate
	}
	if err := s.rates.SetRates(ctx, s.opts.BaseCurrency, rates); err != nil {
		return nil, fmt.Errorf("failed to store exchange rates: %w", err)
	}
	s.logger.Info("live exchange rates updated", zap.Int("currencies", len(rates)))
	return rates, nil
}

func toAccountResponses(accounts []settlement.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i])
	}
	return out
}
