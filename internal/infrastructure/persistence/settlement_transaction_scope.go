package persistence

import (
	"context"
	"database/sql"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Snapshot runs fn in a read-only REPEATABLE READ transaction on PostgreSQL.
// SQLite transactions are already serializable.
func (s *GormTransactionScope) Snapshot(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	var opts *sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}, opts)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Bills returns the bill repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Bills() settlement.BillRepository {
	return NewGormBillRepository(r.tx)
}

// Requests returns the request repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Requests() settlement.RequestRepository {
	return NewGormRequestRepository(r.tx)
}

// Rebates returns the rebate receivable repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Rebates() settlement.RebateReceivableRepository {
	return NewGormRebateReceivableRepository(r.tx)
}

// PendingEntries returns the pending-entry repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PendingEntries() settlement.PendingEntryRepository {
	return NewGormPendingEntryRepository(r.tx)
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Accounts() settlement.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// CashFlows returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CashFlows() settlement.CashFlowRepository {
	return NewGormCashFlowRepository(r.tx)
}

// Agencies returns the agency repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Agencies() settlement.AgencyRepository {
	return NewGormAgencyRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appsettlement.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appsettlement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
