// Package memory provides an in-process settlement store for development and tests.
//
// Every Execute works on a private copy of the data set and publishes it only
// when fn succeeds, so a failed transaction leaves nothing behind. Writers are
// serialized by one mutex; Snapshot readers share a read lock.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
)

// ErrReadOnly is returned when a repository obtained from Snapshot is asked to write
var ErrReadOnly = errors.New("memory: write attempted in a read-only snapshot")

// Store is the in-memory TransactionScope
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newDataset()}
}

type dataset struct {
	bills     map[uuid.UUID]settlement.Bill
	requests  map[uuid.UUID]settlement.Request
	rebates   map[uuid.UUID]settlement.RebateReceivable
	entries   map[uuid.UUID]settlement.PendingEntry
	accounts  map[uuid.UUID]settlement.Account
	cashFlows map[uuid.UUID]settlement.CashFlowEvent
	agencies  map[uuid.UUID]settlement.Agency
}

func newDataset() *dataset {
	return &dataset{
		bills:     make(map[uuid.UUID]settlement.Bill),
		requests:  make(map[uuid.UUID]settlement.Request),
		rebates:   make(map[uuid.UUID]settlement.RebateReceivable),
		entries:   make(map[uuid.UUID]settlement.PendingEntry),
		accounts:  make(map[uuid.UUID]settlement.Account),
		cashFlows: make(map[uuid.UUID]settlement.CashFlowEvent),
		agencies:  make(map[uuid.UUID]settlement.Agency),
	}
}

// clone copies the maps; stored values are already private copies and are
// replaced, never mutated, so a shallow map copy is enough
func (d *dataset) clone() *dataset {
	return &dataset{
		bills:     maps.Clone(d.bills),
		requests:  maps.Clone(d.requests),
		rebates:   maps.Clone(d.rebates),
		entries:   maps.Clone(d.entries),
		accounts:  maps.Clone(d.accounts),
		cashFlows: maps.Clone(d.cashFlows),
		agencies:  maps.Clone(d.agencies),
	}
}

// Execute runs fn against a working copy and commits it when fn returns nil
func (s *Store) Execute(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(&repositories{data: working}); err != nil {
		return err
	}
	s.data = working
	return nil
}

// Snapshot runs fn against the committed data; writes fail with ErrReadOnly
func (s *Store) Snapshot(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&repositories{data: s.data, readOnly: true})
}

type repositories struct {
	data     *dataset
	readOnly bool
}

func (r *repositories) Bills() settlement.BillRepository {
	return &billRepository{repositories: r}
}

func (r *repositories) Requests() settlement.RequestRepository {
	return &requestRepository{repositories: r}
}

func (r *repositories) Rebates() settlement.RebateReceivableRepository {
	return &rebateRepository{repositories: r}
}

func (r *repositories) PendingEntries() settlement.PendingEntryRepository {
	return &pendingEntryRepository{repositories: r}
}

func (r *repositories) Accounts() settlement.AccountRepository {
	return &accountRepository{repositories: r}
}

func (r *repositories) CashFlows() settlement.CashFlowRepository {
	return &cashFlowRepository{repositories: r}
}

func (r *repositories) Agencies() settlement.AgencyRepository {
	return &agencyRepository{repositories: r}
}

func (r *repositories) writable() error {
	if r.readOnly {
		return ErrReadOnly
	}
	return nil
}

var (
	_ appsettlement.TransactionScope          = (*Store)(nil)
	_ appsettlement.TransactionalRepositories = (*repositories)(nil)
)
