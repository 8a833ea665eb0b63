package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

type accountRepository struct {
	*repositories
}

func cloneAccount(a *settlement.Account) *settlement.Account {
	c := *a
	c.ClearDomainEvents()
	return &c
}

func (r *accountRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.Account, error) {
	account, ok := r.data.accounts[id]
	if !ok {
		return nil, shared.NewNotFoundError("account", id.String())
	}
	return cloneAccount(&account), nil
}

// FindByIDForUpdate needs no row lock: Execute already runs one writer at a time
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *accountRepository) FindAll(_ context.Context) ([]settlement.Account, error) {
	accounts := collect(r.data.accounts, nil)
	slices.SortStableFunc(accounts, func(a, b settlement.Account) int { return compareTime(a.CreatedAt, b.CreatedAt) })
	for i := range accounts {
		accounts[i] = *cloneAccount(&accounts[i])
	}
	return accounts, nil
}

func (r *accountRepository) Save(_ context.Context, account *settlement.Account) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.data.accounts[account.ID] = *cloneAccount(account)
	return nil
}

// SaveAll replaces the account list
func (r *accountRepository) SaveAll(_ context.Context, accounts []settlement.Account) error {
	if err := r.writable(); err != nil {
		return err
	}
	next := make(map[uuid.UUID]settlement.Account, len(accounts))
	for i := range accounts {
		next[accounts[i].ID] = *cloneAccount(&accounts[i])
	}
	r.data.accounts = next
	return nil
}

func (r *accountRepository) UpdateBalances(_ context.Context, balances []settlement.AccountBalance) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, b := range balances {
		account, ok := r.data.accounts[b.AccountID]
		if !ok {
			continue
		}
		account.OriginalBalance = b.OriginalBalance
		account.BaseBalance = b.BaseBalance
		r.data.accounts[b.AccountID] = account
	}
	return nil
}

type cashFlowRepository struct {
	*repositories
}

func (r *cashFlowRepository) Append(_ context.Context, event *settlement.CashFlowEvent) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.data.cashFlows[event.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.data.cashFlows[event.ID] = *event
	return nil
}

func (r *cashFlowRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.CashFlowEvent, error) {
	event, ok := r.data.cashFlows[id]
	if !ok {
		return nil, shared.NewNotFoundError("cash flow", id.String())
	}
	return &event, nil
}

func (r *cashFlowRepository) FindAll(_ context.Context, filter settlement.CashFlowFilter) ([]settlement.CashFlowEvent, error) {
	events := collect(r.data.cashFlows, func(e *settlement.CashFlowEvent) bool {
		return (filter.AccountID == nil || e.AccountID == *filter.AccountID) &&
			(filter.Status == nil || e.Status == *filter.Status) &&
			(filter.From == nil || !e.Date.Before(*filter.From)) &&
			(filter.To == nil || !e.Date.After(*filter.To)) &&
			(filter.RelatedID == nil || (e.RelatedID != nil && *e.RelatedID == *filter.RelatedID))
	})
	slices.SortStableFunc(events, func(a, b settlement.CashFlowEvent) int {
		if c := compareTime(a.Date, b.Date); c != 0 {
			return c
		}
		return compareTime(a.CreatedAt, b.CreatedAt)
	})
	if filter.PageSize <= 0 {
		return events, nil
	}
	start := filter.Offset()
	if start >= len(events) {
		return []settlement.CashFlowEvent{}, nil
	}
	return events[start:min(start+filter.PageSize, len(events))], nil
}

// MarkReversed flips the reversal flag once; a second reversal is a conflict
func (r *cashFlowRepository) MarkReversed(_ context.Context, event *settlement.CashFlowEvent) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.cashFlows[event.ID]
	if !ok || current.IsReversal {
		return shared.ErrConcurrencyConflict
	}
	current.IsReversal = true
	current.ReversalReason = event.ReversalReason
	current.ReversedBy = event.ReversedBy
	current.ReversedAt = event.ReversedAt
	r.data.cashFlows[event.ID] = current
	return nil
}

type agencyRepository struct {
	*repositories
}

func (r *agencyRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.Agency, error) {
	agency, ok := r.data.agencies[id]
	if !ok {
		return nil, shared.NewNotFoundError("agency", id.String())
	}
	agency.ClearDomainEvents()
	return &agency, nil
}

func (r *agencyRepository) FindAll(_ context.Context) ([]settlement.Agency, error) {
	agencies := collect(r.data.agencies, nil)
	slices.SortStableFunc(agencies, func(a, b settlement.Agency) int { return strings.Compare(a.Name, b.Name) })
	return agencies, nil
}

func (r *agencyRepository) Save(_ context.Context, agency *settlement.Agency) error {
	if err := r.writable(); err != nil {
		return err
	}
	for id, other := range r.data.agencies {
		if id != agency.ID && other.Name == agency.Name {
			return shared.ErrAlreadyExists
		}
	}
	stored := *agency
	stored.ClearDomainEvents()
	r.data.agencies[agency.ID] = stored
	return nil
}

var (
	_ settlement.AccountRepository  = (*accountRepository)(nil)
	_ settlement.CashFlowRepository = (*cashFlowRepository)(nil)
	_ settlement.AgencyRepository   = (*agencyRepository)(nil)
)
