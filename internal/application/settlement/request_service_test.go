package settlement_test

import (
	"testing"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseRequest(amount int64) appsettlement.RequestInput {
	return appsettlement.RequestInput{
		Kind:      string(settlement.RequestKindExpense),
		Title:     "Office rent",
		Category:  "rent",
		PartyName: "Landlord Ltd",
		Amount:    decimal.NewFromInt(amount),
		Currency:  "CNY",
	}
}

func (h *harness) approveRequest(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := h.requests.SubmitForReview(h.ctx, id, h.actor, "vouchers/apply.pdf")
	require.NoError(t, err)
	_, err = h.requests.FinanceApprove(h.ctx, id, uuid.New())
	require.NoError(t, err)
	_, err = h.requests.Approve(h.ctx, id, uuid.New())
	require.NoError(t, err)
}

func TestRequestService_CreateNumbersByKind(t *testing.T) {
	h := newHarness(t)
	today := time.Now().Format("20060102")

	expense, err := h.requests.Create(h.ctx, h.actor, expenseRequest(100))
	require.NoError(t, err)
	assert.Equal(t, "EXP-"+today+"-0001", expense.RequestNumber)

	in := expenseRequest(100)
	in.Kind = string(settlement.RequestKindIncome)
	income, err := h.requests.Create(h.ctx, h.actor, in)
	require.NoError(t, err)
	assert.Equal(t, "INC-"+today+"-0001", income.RequestNumber)
	assert.Equal(t, settlement.StatusDraft, income.Status)
}

func TestRequestService_PayExpense(t *testing.T) {
	h := newHarness(t)
	accountID := h.createAccount(t, "Operating", 1000)
	req, err := h.requests.Create(h.ctx, h.actor, expenseRequest(400))
	require.NoError(t, err)
	h.approveRequest(t, req.ID)

	entries, err := h.entries.List(h.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	paid, err := h.requests.Pay(h.ctx, req.ID, h.actor, appsettlement.PayInput{AccountID: accountID})
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusPaid, paid.Status)
	require.NotNil(t, paid.CashFlowID)

	accounts, err := h.accounts.List(h.ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].OriginalBalance.Equal(decimal.NewFromInt(600)))

	_, err = h.requests.Pay(h.ctx, req.ID, h.actor, appsettlement.PayInput{AccountID: accountID})
	assert.True(t, shared.IsStateConflict(err))
}

func TestRequestService_RejectionPaths(t *testing.T) {
	h := newHarness(t)

	returned, err := h.requests.Create(h.ctx, h.actor, expenseRequest(100))
	require.NoError(t, err)
	_, err = h.requests.SubmitForReview(h.ctx, returned.ID, h.actor, "vouchers/apply.pdf")
	require.NoError(t, err)
	got, err := h.requests.FinanceReject(h.ctx, returned.ID, uuid.New(), "missing invoice")
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusDraft, got.Status)

	rejected, err := h.requests.Create(h.ctx, h.actor, expenseRequest(100))
	require.NoError(t, err)
	_, err = h.requests.SubmitForReview(h.ctx, rejected.ID, h.actor, "vouchers/apply.pdf")
	require.NoError(t, err)
	_, err = h.requests.FinanceApprove(h.ctx, rejected.ID, uuid.New())
	require.NoError(t, err)
	got, err = h.requests.Reject(h.ctx, rejected.ID, uuid.New(), "over budget")
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusRejected, got.Status)

	_, err = h.requests.SubmitForReview(h.ctx, rejected.ID, h.actor, "vouchers/apply.pdf")
	assert.True(t, shared.IsStateConflict(err))
}

func TestRequestService_IncomeCannotBePaid(t *testing.T) {
	h := newHarness(t)
	accountID := h.createAccount(t, "Operating", 1000)
	in := expenseRequest(100)
	in.Kind = string(settlement.RequestKindIncome)
	req, err := h.requests.Create(h.ctx, h.actor, in)
	require.NoError(t, err)
	h.approveRequest(t, req.ID)

	_, err = h.requests.Pay(h.ctx, req.ID, h.actor, appsettlement.PayInput{AccountID: accountID})
	assert.True(t, shared.IsValidation(err))
}

func TestRequestService_ListFilters(t *testing.T) {
	h := newHarness(t)
	_, err := h.requests.Create(h.ctx, h.actor, expenseRequest(100))
	require.NoError(t, err)
	in := expenseRequest(200)
	in.Kind = string(settlement.RequestKindIncome)
	in.Title = "Consulting fee"
	_, err = h.requests.Create(h.ctx, h.actor, in)
	require.NoError(t, err)

	all, total, err := h.requests.List(h.ctx, appsettlement.RequestListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	income, total, err := h.requests.List(h.ctx, appsettlement.RequestListFilter{Kind: string(settlement.RequestKindIncome)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Consulting fee", income[0].Title)

	found, _, err := h.requests.List(h.ctx, appsettlement.RequestListFilter{Search: "rent"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Office rent", found[0].Title)
}
