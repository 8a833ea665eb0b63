package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
)

// TransactionScope provides transactional access to the settlement repositories.
// All repository operations inside fn share one database transaction and are
// committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a read-write transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
	// Snapshot runs fn within a read-only transaction that sees one consistent
	// snapshot of the data (REPEATABLE READ where the database supports it).
	Snapshot(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to every settlement repository bound to
// the current transaction.
//
// Aggregate boundary notes:
//   - Bills and Requests own their workflow state; only the services mutate them.
//   - Rebates and PendingEntries are derived records keyed by unique indexes,
//     so CreateIfAbsent is the only way they are inserted.
//   - CashFlows is append-only apart from the reversal flag.
type TransactionalRepositories interface {
	Bills() settlement.BillRepository
	Requests() settlement.RequestRepository
	Rebates() settlement.RebateReceivableRepository
	PendingEntries() settlement.PendingEntryRepository
	Accounts() settlement.AccountRepository
	CashFlows() settlement.CashFlowRepository
	Agencies() settlement.AgencyRepository
}
