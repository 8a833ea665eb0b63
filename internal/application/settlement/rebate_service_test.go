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

// accrueTwo approves two ad rebate bills and returns the agency; the
// receivables hold 500 and 100 in approval order
func accrueTwo(t *testing.T, h *harness) uuid.UUID {
	t.Helper()
	agencyID := h.createAgency(t, "Blue Agency", 5)
	first := h.createBill(t, adRebateBill(agencyID, "recharge-1", 10000))
	h.approveBill(t, first.ID)
	second := h.createBill(t, adRebateBill(agencyID, "recharge-2", 2000))
	h.approveBill(t, second.ID)
	h.deliverApprovals(t)
	return agencyID
}

func TestRebateService_ApplyConsumptionOldestFirst(t *testing.T) {
	h := newHarness(t)
	agencyID := accrueTwo(t, h)
	in := appsettlement.ConsumptionInput{
		ID:          "consumption-1",
		AgencyID:    agencyID,
		AdAccountID: "act_1",
		Date:        time.Now().Add(time.Hour),
		Amount:      decimal.NewFromInt(550),
	}

	result, err := h.rebates.ApplyConsumption(h.ctx, in)
	require.NoError(t, err)
	require.Len(t, result.Applied, 2)
	assert.True(t, result.Applied[0].Record.WriteoffAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, result.Applied[1].Record.WriteoffAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Unapplied.IsZero())

	settled, err := h.rebates.GetByID(h.ctx, result.Applied[0].ReceivableID)
	require.NoError(t, err)
	assert.Equal(t, settlement.RebateStatusSettled, settled.Status)

	partial, err := h.rebates.GetByID(h.ctx, result.Applied[1].ReceivableID)
	require.NoError(t, err)
	assert.Equal(t, settlement.RebateStatusWritingOff, partial.Status)
	assert.True(t, partial.CurrentBalance.Equal(decimal.NewFromInt(50)))
}

func TestRebateService_ApplyConsumptionReplayIsIdempotent(t *testing.T) {
	h := newHarness(t)
	agencyID := accrueTwo(t, h)
	in := appsettlement.ConsumptionInput{
		ID:          "consumption-1",
		AgencyID:    agencyID,
		AdAccountID: "act_1",
		Date:        time.Now().Add(time.Hour),
		Amount:      decimal.NewFromInt(550),
	}

	_, err := h.rebates.ApplyConsumption(h.ctx, in)
	require.NoError(t, err)
	replay, err := h.rebates.ApplyConsumption(h.ctx, in)
	require.NoError(t, err)
	assert.Empty(t, replay.Applied)
	assert.True(t, replay.Unapplied.IsZero())

	rebates, _, err := h.rebates.List(h.ctx, appsettlement.RebateListFilter{AgencyID: &agencyID})
	require.NoError(t, err)
	remaining := decimal.Zero
	for _, r := range rebates {
		remaining = remaining.Add(r.CurrentBalance)
	}
	assert.True(t, remaining.Equal(decimal.NewFromInt(50)), "got %s", remaining)
}

func TestRebateService_ApplyConsumptionReportsUnapplied(t *testing.T) {
	h := newHarness(t)
	agencyID := accrueTwo(t, h)

	result, err := h.rebates.ApplyConsumption(h.ctx, appsettlement.ConsumptionInput{
		ID:          "consumption-1",
		AgencyID:    agencyID,
		AdAccountID: "act_1",
		Date:        time.Now().Add(time.Hour),
		Amount:      decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.Len(t, result.Applied, 2)
	assert.True(t, result.Unapplied.Equal(decimal.NewFromInt(400)))
}

func TestRebateService_ApplyConsumptionBeforeActiveWindow(t *testing.T) {
	h := newHarness(t)
	agencyID := accrueTwo(t, h)

	result, err := h.rebates.ApplyConsumption(h.ctx, appsettlement.ConsumptionInput{
		ID:          "consumption-1",
		AgencyID:    agencyID,
		AdAccountID: "act_1",
		Date:        time.Now().AddDate(0, -1, 0),
		Amount:      decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.True(t, result.Unapplied.Equal(decimal.NewFromInt(100)))
}

func TestRebateService_ApplyConsumptionValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.rebates.ApplyConsumption(h.ctx, appsettlement.ConsumptionInput{AgencyID: uuid.New(), Amount: decimal.NewFromInt(1)})
	assert.True(t, shared.IsValidation(err))

	_, err = h.rebates.ApplyConsumption(h.ctx, appsettlement.ConsumptionInput{ID: "c", AgencyID: uuid.New(), Amount: decimal.Zero})
	assert.True(t, shared.IsValidation(err))
}

func TestRebateService_WriteOffClampsToBalance(t *testing.T) {
	h := newHarness(t)
	agencyID := accrueTwo(t, h)
	rebates, _, err := h.rebates.List(h.ctx, appsettlement.RebateListFilter{AgencyID: &agencyID, Status: string(settlement.RebateStatusPendingWriteoff)})
	require.NoError(t, err)
	require.NotEmpty(t, rebates)
	target := rebates[0]

	got, err := h.rebates.WriteOff(h.ctx, target.ID, appsettlement.WriteOffInput{
		ConsumptionID: "manual-1",
		Date:          time.Now().Add(time.Hour),
		Amount:        target.CurrentBalance.Add(decimal.NewFromInt(999)),
	})
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.IsZero())
	assert.Equal(t, settlement.RebateStatusSettled, got.Status)
	require.Len(t, got.WriteoffRecords, 1)
	assert.True(t, got.WriteoffRecords[0].WriteoffAmount.Equal(target.RebateAmount))

	_, err = h.rebates.WriteOff(h.ctx, target.ID, appsettlement.WriteOffInput{
		ConsumptionID: "manual-2",
		Date:          time.Now().Add(time.Hour),
		Amount:        decimal.NewFromInt(1),
	})
	assert.True(t, shared.IsStateConflict(err))
}

func TestRebateService_AdjustReopensReceivable(t *testing.T) {
	h := newHarness(t)
	agencyID := accrueTwo(t, h)
	rebates, _, err := h.rebates.List(h.ctx, appsettlement.RebateListFilter{AgencyID: &agencyID})
	require.NoError(t, err)
	require.NotEmpty(t, rebates)
	target := rebates[0]

	adjusted, err := h.rebates.Adjust(h.ctx, target.ID, h.actor, appsettlement.AdjustInput{
		Amount: target.CurrentBalance.Neg(),
		Reason: "agency dispute",
	})
	require.NoError(t, err)
	assert.True(t, adjusted.CurrentBalance.IsZero())
	assert.Equal(t, settlement.RebateStatusSettled, adjusted.Status)

	reopened, err := h.rebates.Adjust(h.ctx, target.ID, h.actor, appsettlement.AdjustInput{
		Amount: decimal.NewFromInt(20),
		Reason: "dispute resolved",
	})
	require.NoError(t, err)
	assert.True(t, reopened.CurrentBalance.Equal(decimal.NewFromInt(20)))
	assert.NotEqual(t, settlement.RebateStatusSettled, reopened.Status)
	assert.Len(t, reopened.Adjustments, 2)
}

func TestRebateService_GetByIDNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.rebates.GetByID(h.ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}
