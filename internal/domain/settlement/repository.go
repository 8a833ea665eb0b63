package settlement

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AggregatorKey identifies the rolling rebate bill for one agency ad account and month
type AggregatorKey struct {
	Month       string
	AgencyID    uuid.UUID
	AdAccountID string
	Currency    valueobject.Currency
}

// BillFilter defines filtering options for bill queries
type BillFilter struct {
	shared.Filter
	Status             *DocumentStatus
	Category           *BillCategory
	Type               *BillType
	Month              string
	AgencyID           *uuid.UUID
	IsRebateAggregator *bool
}

// BillRepository persists Bill aggregates
type BillRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	FindAll(ctx context.Context, filter BillFilter) ([]Bill, int64, error)
	FindByStatus(ctx context.Context, status DocumentStatus) ([]Bill, error)
	// Save inserts a new bill
	Save(ctx context.Context, bill *Bill) error
	// SaveWithLock updates a bill whose Version was incremented by one domain transition
	SaveWithLock(ctx context.Context, bill *Bill) error
	// FindDraftAggregator returns the DRAFT rebate aggregator for key or ErrNotFound
	FindDraftAggregator(ctx context.Context, key AggregatorKey) (*Bill, error)
	// FindAggregators returns every rebate aggregator for key regardless of status
	FindAggregators(ctx context.Context, key AggregatorKey) ([]Bill, error)
	// FindAggregatorsByRecharge returns every rebate aggregator that already
	// merged rechargeID, whatever its key
	FindAggregatorsByRecharge(ctx context.Context, rechargeID string) ([]Bill, error)
	// CreateAggregatorIfAbsent inserts a draft aggregator; created is false when
	// another draft for the same key already exists
	CreateAggregatorIfAbsent(ctx context.Context, bill *Bill) (created bool, err error)
	GenerateBillNumber(ctx context.Context, month string) (string, error)
}

// RequestFilter defines filtering options for request queries
type RequestFilter struct {
	shared.Filter
	Kind   *RequestKind
	Status *DocumentStatus
}

// RequestRepository persists Request aggregates
type RequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)
	FindAll(ctx context.Context, filter RequestFilter) ([]Request, int64, error)
	FindByStatus(ctx context.Context, status DocumentStatus) ([]Request, error)
	Save(ctx context.Context, request *Request) error
	SaveWithLock(ctx context.Context, request *Request) error
	GenerateRequestNumber(ctx context.Context, kind RequestKind) (string, error)
}

// RebateFilter defines filtering options for rebate receivable queries
type RebateFilter struct {
	shared.Filter
	AgencyID    *uuid.UUID
	AdAccountID string
	Status      *RebateStatus
}

// RebateReceivableRepository persists the rebate sub-ledger
type RebateReceivableRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RebateReceivable, error)
	FindAll(ctx context.Context, filter RebateFilter) ([]RebateReceivable, int64, error)
	FindByKey(ctx context.Context, key RebateKey) (*RebateReceivable, error)
	// CreateIfAbsent inserts r unless its key exists; created reports which happened
	CreateIfAbsent(ctx context.Context, r *RebateReceivable) (created bool, err error)
	SaveWithLock(ctx context.Context, r *RebateReceivable) error
	SaveAll(ctx context.Context, receivables []RebateReceivable) error
	// FindOpen returns unsettled receivables for an agency ad account ordered by ActiveFrom
	FindOpen(ctx context.Context, agencyID uuid.UUID, adAccountID string) ([]RebateReceivable, error)
}

// PendingEntryRepository persists the pending-entry queue
type PendingEntryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PendingEntry, error)
	FindByStatus(ctx context.Context, status PendingEntryStatus) ([]PendingEntry, error)
	FindByRelated(ctx context.Context, entryType PendingEntryType, relatedID uuid.UUID) (*PendingEntry, error)
	// CreateIfAbsent inserts e unless (type, related id) exists
	CreateIfAbsent(ctx context.Context, e *PendingEntry) (created bool, err error)
	SaveWithLock(ctx context.Context, e *PendingEntry) error
}

// AccountRepository persists accounts
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByIDForUpdate loads an account and holds its row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAll(ctx context.Context) ([]Account, error)
	Save(ctx context.Context, account *Account) error
	// SaveAll replaces the whole account list
	SaveAll(ctx context.Context, accounts []Account) error
	// UpdateBalances writes derived balances without touching other fields
	UpdateBalances(ctx context.Context, balances []AccountBalance) error
}

// CashFlowFilter defines filtering options for cash-flow queries
type CashFlowFilter struct {
	shared.Filter
	AccountID *uuid.UUID
	Status    *CashFlowStatus
	From      *time.Time
	To        *time.Time
	RelatedID *uuid.UUID
}

// CashFlowRepository is the append-only ledger
type CashFlowRepository interface {
	Append(ctx context.Context, event *CashFlowEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*CashFlowEvent, error)
	FindAll(ctx context.Context, filter CashFlowFilter) ([]CashFlowEvent, error)
	// MarkReversed persists the reversal flag of an existing event
	MarkReversed(ctx context.Context, event *CashFlowEvent) error
}

// AgencyRepository looks up agencies
type AgencyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Agency, error)
	FindAll(ctx context.Context) ([]Agency, error)
	Save(ctx context.Context, agency *Agency) error
}
