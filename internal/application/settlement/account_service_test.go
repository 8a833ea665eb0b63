package settlement_test

import (
	"context"
	"errors"
	"testing"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/erp/settlement/internal/infrastructure/persistence/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubRates struct {
	rates map[valueobject.Currency]decimal.Decimal
	err   error
}

func (s *stubRates) GetRates(context.Context, valueobject.Currency) (map[valueobject.Currency]decimal.Decimal, error) {
	return s.rates, s.err
}

func (s *stubRates) SetRates(_ context.Context, _ valueobject.Currency, rates map[valueobject.Currency]decimal.Decimal) error {
	if s.err != nil {
		return s.err
	}
	s.rates = rates
	return nil
}

func TestAccountService_PrimaryAggregatesVirtualChildren(t *testing.T) {
	h := newHarness(t)
	primaryID, childID := uuid.New(), uuid.New()
	_, err := h.accounts.SaveAll(h.ctx, []appsettlement.AccountInput{
		{ID: &primaryID, Name: "A", Currency: "CNY", Category: string(settlement.AccountCategoryPrimary)},
		{ID: &childID, Name: "B", Currency: "CNY", Category: string(settlement.AccountCategoryVirtual), ParentID: &primaryID, InitialCapital: decimal.NewFromInt(1000)},
	})
	require.NoError(t, err)

	_, err = h.accounts.PostCashFlow(h.ctx, h.actor, appsettlement.CashFlowInput{
		AccountID: childID,
		Type:      string(settlement.CashFlowIncome),
		Amount:    decimal.NewFromInt(200),
		Date:      march,
	})
	require.NoError(t, err)

	balances, err := h.accounts.Balances(h.ctx)
	require.NoError(t, err)
	a, ok := settlement.FindBalance(balances.Accounts, primaryID)
	require.True(t, ok)
	b, ok := settlement.FindBalance(balances.Accounts, childID)
	require.True(t, ok)
	assert.True(t, a.OriginalBalance.Equal(decimal.NewFromInt(1200)), "A got %s", a.OriginalBalance)
	assert.True(t, b.OriginalBalance.Equal(decimal.NewFromInt(1200)), "B got %s", b.OriginalBalance)
	assert.True(t, balances.TotalBase.Equal(decimal.NewFromInt(1200)), "total got %s", balances.TotalBase)
}

func TestAccountService_SaveAllRejectsBadHierarchy(t *testing.T) {
	h := newHarness(t)
	standaloneID, childID := uuid.New(), uuid.New()

	_, err := h.accounts.SaveAll(h.ctx, []appsettlement.AccountInput{
		{ID: &standaloneID, Name: "Solo", Currency: "CNY", Category: string(settlement.AccountCategoryStandalone)},
		{ID: &childID, Name: "Child", Currency: "CNY", Category: string(settlement.AccountCategoryVirtual), ParentID: &standaloneID},
	})
	assert.True(t, shared.IsValidation(err))

	_, err = h.accounts.SaveAll(h.ctx, []appsettlement.AccountInput{
		{Name: "Orphan", Currency: "CNY", Category: string(settlement.AccountCategoryVirtual)},
	})
	assert.True(t, shared.IsValidation(err))

	accounts, err := h.accounts.List(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAccountService_SaveAllReplacesList(t *testing.T) {
	h := newHarness(t)
	keepID := h.createAccount(t, "Keep", 100)

	_, err := h.accounts.SaveAll(h.ctx, []appsettlement.AccountInput{
		{ID: &keepID, Name: "Keep Renamed", Currency: "CNY", Category: string(settlement.AccountCategoryStandalone), InitialCapital: decimal.NewFromInt(100)},
		{Name: "New", Currency: "USD", ExchangeRate: decimal.NewFromFloat(7.1), Category: string(settlement.AccountCategoryStandalone)},
	})
	require.NoError(t, err)

	accounts, err := h.accounts.List(h.ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	names := []string{accounts[0].Name, accounts[1].Name}
	assert.ElementsMatch(t, []string{"Keep Renamed", "New"}, names)
	for _, a := range accounts {
		if a.ID == keepID {
			assert.Equal(t, 2, a.Version)
			assert.True(t, a.OriginalBalance.Equal(decimal.NewFromInt(100)))
		}
	}
}

func TestAccountService_ReverseCashFlowOnce(t *testing.T) {
	h := newHarness(t)
	accountID := h.createAccount(t, "Operating", 0)

	posted, err := h.accounts.PostCashFlow(h.ctx, h.actor, appsettlement.CashFlowInput{
		AccountID: accountID,
		Type:      string(settlement.CashFlowIncome),
		Amount:    decimal.NewFromInt(300),
		Date:      march,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^PV20260315[0-9A-F]{8}$`, posted.VoucherNumber)

	reversed, err := h.accounts.ReverseCashFlow(h.ctx, posted.ID, h.actor, "duplicate entry")
	require.NoError(t, err)
	assert.True(t, reversed.IsReversal)

	_, err = h.accounts.ReverseCashFlow(h.ctx, posted.ID, h.actor, "again")
	assert.Error(t, err)

	accounts, err := h.accounts.List(h.ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].OriginalBalance.IsZero(), "got %s", accounts[0].OriginalBalance)
}

func TestAccountService_ManualExpenseNeedsBalance(t *testing.T) {
	h := newHarness(t)
	accountID := h.createAccount(t, "Operating", 50)

	_, err := h.accounts.PostCashFlow(h.ctx, h.actor, appsettlement.CashFlowInput{
		AccountID: accountID,
		Type:      string(settlement.CashFlowExpense),
		Amount:    decimal.NewFromInt(80),
		Date:      march,
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
}

func TestAccountService_LiveRatesDriveBaseBalance(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	rates := &stubRates{}
	opts := appsettlement.DefaultOptions()
	ledger := appsettlement.NewLedgerPoster(rates, opts, logger)
	svc := appsettlement.NewAccountService(store, ledger, rates, opts, logger)
	ctx := context.Background()

	usdID := uuid.New()
	_, err := svc.SaveAll(ctx, []appsettlement.AccountInput{{
		ID:             &usdID,
		Name:           "USD Wallet",
		Currency:       "USD",
		ExchangeRate:   decimal.NewFromInt(7),
		Category:       string(settlement.AccountCategoryStandalone),
		InitialCapital: decimal.NewFromInt(100),
	}})
	require.NoError(t, err)

	balances, err := svc.Balances(ctx)
	require.NoError(t, err)
	b, ok := settlement.FindBalance(balances.Accounts, usdID)
	require.True(t, ok)
	assert.True(t, b.BaseBalance.Equal(decimal.NewFromInt(700)), "static got %s", b.BaseBalance)

	_, err = svc.SetExchangeRates(ctx, appsettlement.ExchangeRatesInput{Rates: map[string]decimal.Decimal{"USD": decimal.NewFromFloat(7.5)}})
	require.NoError(t, err)

	balances, err = svc.Balances(ctx)
	require.NoError(t, err)
	b, ok = settlement.FindBalance(balances.Accounts, usdID)
	require.True(t, ok)
	assert.True(t, b.BaseBalance.Equal(decimal.NewFromInt(750)), "live got %s", b.BaseBalance)

	rates.err = errors.New("cache down")
	balances, err = svc.Balances(ctx)
	require.NoError(t, err)
	b, ok = settlement.FindBalance(balances.Accounts, usdID)
	require.True(t, ok)
	assert.True(t, b.BaseBalance.Equal(decimal.NewFromInt(700)), "fallback got %s", b.BaseBalance)
}

func TestAccountService_SetExchangeRatesValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.accounts.SetExchangeRates(h.ctx, appsettlement.ExchangeRatesInput{Rates: map[string]decimal.Decimal{"USD": decimal.NewFromInt(7)}})
	assert.True(t, shared.IsValidation(err))

	logger := zaptest.NewLogger(t)
	rates := &stubRates{}
	svc := appsettlement.NewAccountService(memory.NewStore(), appsettlement.NewLedgerPoster(rates, appsettlement.DefaultOptions(), logger), rates, appsettlement.DefaultOptions(), logger)
	_, err = svc.SetExchangeRates(context.Background(), appsettlement.ExchangeRatesInput{Rates: map[string]decimal.Decimal{"USD": decimal.Zero}})
	assert.True(t, shared.IsValidation(err))
}
