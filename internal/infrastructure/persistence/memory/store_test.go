package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBill(t *testing.T, number string) *settlement.Bill {
	t.Helper()
	bill, err := settlement.NewBill(number, uuid.New(), settlement.BillParams{
		Month:        "2026-03",
		Category:     settlement.BillCategoryPayable,
		Type:         settlement.BillTypeLogistics,
		SupplierName: "Fast Freight",
		TotalAmount:  decimal.NewFromInt(1000),
		Currency:     valueobject.CNY,
	})
	require.NoError(t, err)
	return bill
}

func TestStore_ExecuteCommitsOrDiscards(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	kept := newBill(t, "BILL-202603-00001")
	dropped := newBill(t, "BILL-202603-00002")

	require.NoError(t, store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.Bills().Save(ctx, kept)
	}))

	boom := errors.New("boom")
	err := store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		require.NoError(t, repos.Bills().Save(ctx, dropped))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, store.Snapshot(ctx, func(repos appsettlement.TransactionalRepositories) error {
		_, err := repos.Bills().FindByID(ctx, kept.ID)
		assert.NoError(t, err)
		_, err = repos.Bills().FindByID(ctx, dropped.ID)
		assert.True(t, shared.IsNotFound(err))
		return nil
	}))
}

func TestStore_SnapshotIsReadOnly(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Snapshot(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.Bills().Save(ctx, newBill(t, "BILL-202603-00001"))
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestStore_ReadsAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	bill := newBill(t, "BILL-202603-00001")
	bill.RechargeIDs = []string{"r-1"}

	require.NoError(t, store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.Bills().Save(ctx, bill)
	}))
	bill.RechargeIDs[0] = "mutated"

	require.NoError(t, store.Snapshot(ctx, func(repos appsettlement.TransactionalRepositories) error {
		found, err := repos.Bills().FindByID(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"r-1"}, found.RechargeIDs)
		assert.Empty(t, found.GetDomainEvents())
		found.RechargeIDs[0] = "mutated"

		again, err := repos.Bills().FindByID(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"r-1"}, again.RechargeIDs)
		return nil
	}))
}

func TestStore_SaveWithLockRejectsStaleVersion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	bill := newBill(t, "BILL-202603-00001")
	actor := uuid.New()

	require.NoError(t, store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.Bills().Save(ctx, bill)
	}))

	stale := *bill
	require.NoError(t, bill.SubmitForReview(actor, "voucher.pdf"))
	require.NoError(t, store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.Bills().SaveWithLock(ctx, bill)
	}))

	require.NoError(t, stale.SubmitForReview(actor, "other.pdf"))
	err := store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.Bills().SaveWithLock(ctx, &stale)
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestStore_DraftAggregatorUniqueness(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key := settlement.AggregatorKey{Month: "2026-03", AgencyID: uuid.New(), AdAccountID: "act_1", Currency: valueobject.CNY}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
				number, err := repos.Bills().GenerateBillNumber(ctx, key.Month)
				if err != nil {
					return err
				}
				bill, err := settlement.NewRebateAggregatorBill(number, key, "Blue Agency", decimal.NewFromInt(100), uuid.NewString(), uuid.New())
				if err != nil {
					return err
				}
				ok, err := repos.Bills().CreateAggregatorIfAbsent(ctx, bill)
				if ok {
					mu.Lock()
					created++
					mu.Unlock()
				}
				return err
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestStore_RebateAndPendingEntryKeys(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	agencyID := uuid.New()

	newRebate := func(rechargeID string, from time.Time) *settlement.RebateReceivable {
		r, err := settlement.NewRebateReceivable(settlement.NewRebateReceivableParams{
			AgencyID:     agencyID,
			AdAccountID:  "act_1",
			RechargeID:   rechargeID,
			Month:        "2026-03",
			RebateRate:   decimal.NewFromFloat(0.05),
			RebateAmount: decimal.NewFromInt(50),
			Currency:     valueobject.CNY,
			ActiveFrom:   from,
		})
		require.NoError(t, err)
		return r
	}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		for _, r := range []*settlement.RebateReceivable{
			newRebate("r-2", base.AddDate(0, 0, 2)),
			newRebate("r-1", base),
			newRebate("r-1", base),
		} {
			if _, err := repos.Rebates().CreateIfAbsent(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.Snapshot(ctx, func(repos appsettlement.TransactionalRepositories) error {
		open, err := repos.Rebates().FindOpen(ctx, agencyID, "act_1")
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, "r-1", open[0].RechargeID)
		assert.Equal(t, "r-2", open[1].RechargeID)

		all, total, err := repos.Rebates().FindAll(ctx, settlement.RebateFilter{Filter: shared.Filter{PageSize: 1, Page: 2, OrderBy: "active_from", OrderDir: "asc"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, all, 1)
		assert.Equal(t, "r-2", all[0].RechargeID)
		return nil
	}))
}

func TestStore_CashFlowReversedOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	event := settlement.CashFlowEvent{ID: uuid.New(), Date: time.Now(), Amount: decimal.NewFromInt(10)}

	require.NoError(t, store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
		return repos.CashFlows().Append(ctx, &event)
	}))

	reverse := func() error {
		return store.Execute(ctx, func(repos appsettlement.TransactionalRepositories) error {
			e, err := repos.CashFlows().FindByID(ctx, event.ID)
			if err != nil {
				return err
			}
			e.IsReversal = true
			e.ReversalReason = "duplicate"
			return repos.CashFlows().MarkReversed(ctx, e)
		})
	}
	require.NoError(t, reverse())
	assert.ErrorIs(t, reverse(), shared.ErrConcurrencyConflict)
}

func TestStore_CanceledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Execute(ctx, func(appsettlement.TransactionalRepositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
