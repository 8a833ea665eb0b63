package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerPoster is the only writer of the account ledger. Every posting checks
// the target account, appends one CashFlowEvent and refreshes the cached
// account balances inside the caller's transaction.
type LedgerPoster struct {
	rates  ExchangeRateProvider
	opts   Options
	logger *zap.Logger
}

// NewLedgerPoster creates a LedgerPoster; rates may be nil
func NewLedgerPoster(rates ExchangeRateProvider, opts Options, logger *zap.Logger) *LedgerPoster {
	return &LedgerPoster{rates: rates, opts: opts.normalized(), logger: logger}
}

// Posting describes one ledger line in the document's currency
type Posting struct {
	AccountID     uuid.UUID
	Type          settlement.CashFlowType
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Date          time.Time
	ExchangeRate  *decimal.Decimal
	RelatedID     *uuid.UUID
	RelatedType   settlement.RelatedType
	VoucherNumber string
	Description   string
	CreatedBy     uuid.UUID
}

// Post validates and appends a posting, returning the event and the target
// account. The account row stays locked until the caller's transaction ends,
// so the balance check and the append see every earlier posting to it.
func (p *LedgerPoster) Post(ctx context.Context, repos TransactionalRepositories, in Posting) (*settlement.CashFlowEvent, *settlement.Account, error) {
	account, err := repos.Accounts().FindByIDForUpdate(ctx, in.AccountID)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := repos.Accounts().FindAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if settlement.ParentsWithChildren(accounts)[account.ID] {
		return nil, nil, shared.NewValidationError("account %s aggregates its sub-accounts and cannot be posted to directly", account.Name)
	}
	if !account.AcceptsCurrency(in.Currency, p.opts.BaseCurrency) {
		return nil, nil, shared.NewValidationError("account %s holds %s and cannot take a %s posting", account.Name, account.Currency, in.Currency)
	}

	params := settlement.NewCashFlowEventParams{
		Date:          in.Date,
		Type:          in.Type,
		Amount:        in.Amount,
		Account:       account,
		RelatedID:     in.RelatedID,
		RelatedType:   in.RelatedType,
		VoucherNumber: in.VoucherNumber,
		Description:   in.Description,
		CreatedBy:     in.CreatedBy,
	}
	if in.Currency != account.Currency {
		rate, err := p.resolveRate(ctx, in.Currency, in.ExchangeRate)
		if err != nil {
			return nil, nil, err
		}
		params.Amount = in.Amount.Mul(rate).Round(2)
		params.OriginalAmount = in.Amount
		params.OriginalCurrency = in.Currency
		params.ExchangeRate = rate
	}

	events, err := repos.CashFlows().FindAll(ctx, settlement.CashFlowFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cash flows: %w", err)
	}
	liveRates := p.liveRates(ctx)

	if in.Type == settlement.CashFlowExpense {
		current, _ := settlement.FindBalance(settlement.ComputeBalances(accounts, events, p.balanceOptions(liveRates)), account.ID)
		if current.OriginalBalance.LessThan(params.Amount) {
			return nil, nil, shared.NewInsufficientBalanceError(account.ID.String(), current.OriginalBalance.String(), params.Amount.String())
		}
	}

	event, err := settlement.NewCashFlowEvent(params)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.CashFlows().Append(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("failed to append cash flow: %w", err)
	}

	balances := settlement.ComputeBalances(accounts, append(events, *event), p.balanceOptions(liveRates))
	if err := repos.Accounts().UpdateBalances(ctx, balances); err != nil {
		return nil, nil, fmt.Errorf("failed to update account balances: %w", err)
	}
	return event, account, nil
}

// Refresh recomputes and stores every account balance from the ledger
func (p *LedgerPoster) Refresh(ctx context.Context, repos TransactionalRepositories) ([]settlement.AccountBalance, error) {
	accounts, err := repos.Accounts().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	events, err := repos.CashFlows().FindAll(ctx, settlement.CashFlowFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load cash flows: %w", err)
	}
	balances := settlement.ComputeBalances(accounts, events, p.balanceOptions(p.liveRates(ctx)))
	if err := repos.Accounts().UpdateBalances(ctx, balances); err != nil {
		return nil, fmt.Errorf("failed to update account balances: %w", err)
	}
	return balances, nil
}

func (p *LedgerPoster) balanceOptions(live map[valueobject.Currency]decimal.Decimal) settlement.BalanceOptions {
	return settlement.BalanceOptions{BaseCurrency: p.opts.BaseCurrency, LiveRates: live}
}

// liveRates returns the cached live rates; a cache failure falls back to static rates
func (p *LedgerPoster) liveRates(ctx context.Context) map[valueobject.Currency]decimal.Decimal {
	if p.rates == nil {
		return nil
	}
	rates, err := p.rates.GetRates(ctx, p.opts.BaseCurrency)
	if err != nil {
		p.logger.Warn("live exchange rates unavailable, using static account rates", zap.Error(err))
		return nil
	}
	return rates
}

func (p *LedgerPoster) resolveRate(ctx context.Context, from valueobject.Currency, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		if !explicit.IsPositive() {
			return decimal.Zero, shared.NewValidationError("exchange rate must be positive")
		}
		return *explicit, nil
	}
	if rate, ok := p.liveRates(ctx)[from]; ok && rate.IsPositive() {
		return rate, nil
	}
	return decimal.Zero, shared.NewValidationError("an exchange rate from %s to %s is required", from, p.opts.BaseCurrency)
}

// NewVoucherNumber generates a payment voucher number such as PV20260315A1B2C3D4
func NewVoucherNumber(date time.Time) string {
	return "PV" + date.Format("20060102") + strings.ToUpper(uuid.NewString()[:8])
}
