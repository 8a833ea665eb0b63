package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActiveFrom = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// TestSaveWithLock_OptimisticLocking checks the version guard each SaveWithLock sends
func TestSaveWithLock_OptimisticLocking(t *testing.T) {
	t.Run("successful save with correct version", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormBillRepository(db.DB)

		bill := newTestBill(t, "BILL-202603-00001", settlement.BillCategoryPayable)
		require.NoError(t, bill.SubmitForReview(uuid.New(), "voucher.pdf"))
		require.Equal(t, 2, bill.Version)

		mock.ExpectExec(`UPDATE "bills" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SaveWithLock(context.Background(), bill))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails when version mismatch (concurrent modification)", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormRebateReceivableRepository(db.DB)

		receivable := newTestRebate(t, uuid.New(), "r-1", testActiveFrom)
		receivable.IncrementVersion()

		mock.ExpectExec(`UPDATE "rebate_receivables" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), receivable)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, shared.IsStateConflict(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is returned unchanged", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormPendingEntryRepository(db.DB)

		bill := newTestBill(t, "BILL-202603-00001", settlement.BillCategoryReceivable)
		actor := uuid.New()
		require.NoError(t, bill.SubmitForReview(actor, "voucher.pdf"))
		require.NoError(t, bill.FinanceApprove(actor))
		require.NoError(t, bill.Approve(actor))
		entry, err := settlement.NewPendingEntryForBill(bill)
		require.NoError(t, err)
		entry.IncrementVersion()

		dbErr := errors.New("connection reset")
		mock.ExpectExec(`UPDATE "pending_entries" SET`).WillReturnError(dbErr)

		err = repo.SaveWithLock(context.Background(), entry)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCashFlowRepository_MarkReversedOnce(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormCashFlowRepository(db.DB)

	event := &settlement.CashFlowEvent{ID: uuid.New(), IsReversal: true}

	mock.ExpectExec(`UPDATE "cash_flow_events" SET .*is_reversal.* WHERE .*is_reversal = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkReversed(context.Background(), event)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("locks the account row", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db.DB)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "currency", "category"}).
				AddRow(id.String(), "招商银行", "CNY", string(settlement.AccountCategoryStandalone)))

		account, err := repo.FindByIDForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, account.ID)
		assert.Equal(t, "招商银行", account.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db.DB)

		mock.ExpectQuery(`SELECT \* FROM "accounts" .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByIDForUpdate(context.Background(), uuid.New())
		assert.True(t, shared.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
