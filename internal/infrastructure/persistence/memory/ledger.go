package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

var rebateOrdering = ordering[settlement.RebateReceivable]{
	"id":              func(a, b *settlement.RebateReceivable) int { return strings.Compare(a.ID.String(), b.ID.String()) },
	"created_at":      func(a, b *settlement.RebateReceivable) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"updated_at":      func(a, b *settlement.RebateReceivable) int { return compareTime(a.UpdatedAt, b.UpdatedAt) },
	"month":           func(a, b *settlement.RebateReceivable) int { return strings.Compare(a.Month, b.Month) },
	"active_from":     func(a, b *settlement.RebateReceivable) int { return compareTime(a.ActiveFrom, b.ActiveFrom) },
	"rebate_amount":   func(a, b *settlement.RebateReceivable) int { return compareDecimal(a.RebateAmount, b.RebateAmount) },
	"current_balance": func(a, b *settlement.RebateReceivable) int { return compareDecimal(a.CurrentBalance, b.CurrentBalance) },
	"status":          func(a, b *settlement.RebateReceivable) int { return strings.Compare(string(a.Status), string(b.Status)) },
}

func cloneRebate(r *settlement.RebateReceivable) *settlement.RebateReceivable {
	c := *r
	c.WriteoffRecords = slices.Clone(r.WriteoffRecords)
	c.Adjustments = slices.Clone(r.Adjustments)
	c.ClearDomainEvents()
	return &c
}

type rebateRepository struct {
	*repositories
}

func (r *rebateRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.RebateReceivable, error) {
	rebate, ok := r.data.rebates[id]
	if !ok {
		return nil, shared.NewNotFoundError("rebate receivable", id.String())
	}
	return cloneRebate(&rebate), nil
}

func (r *rebateRepository) FindAll(_ context.Context, filter settlement.RebateFilter) ([]settlement.RebateReceivable, int64, error) {
	rebates := collect(r.data.rebates, func(rebate *settlement.RebateReceivable) bool {
		return (filter.AgencyID == nil || rebate.AgencyID == *filter.AgencyID) &&
			(filter.AdAccountID == "" || rebate.AdAccountID == filter.AdAccountID) &&
			(filter.Status == nil || rebate.Status == *filter.Status)
	})
	total := int64(len(rebates))
	return clonedRebates(sortAndPage(rebates, filter.Filter, rebateOrdering)), total, nil
}

func (r *rebateRepository) FindByKey(_ context.Context, key settlement.RebateKey) (*settlement.RebateReceivable, error) {
	if found := r.byKey(key); found != nil {
		return cloneRebate(found), nil
	}
	return nil, shared.ErrNotFound
}

func (r *rebateRepository) byKey(key settlement.RebateKey) *settlement.RebateReceivable {
	matches := collect(r.data.rebates, func(rebate *settlement.RebateReceivable) bool { return rebate.Key().Matches(key) })
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

func (r *rebateRepository) CreateIfAbsent(_ context.Context, receivable *settlement.RebateReceivable) (bool, error) {
	if err := r.writable(); err != nil {
		return false, err
	}
	if _, ok := r.data.rebates[receivable.ID]; ok {
		return false, nil
	}
	if r.byKey(receivable.Key()) != nil {
		return false, nil
	}
	r.data.rebates[receivable.ID] = *cloneRebate(receivable)
	return true, nil
}

func (r *rebateRepository) SaveWithLock(_ context.Context, receivable *settlement.RebateReceivable) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.rebates[receivable.ID]
	if !ok || current.Version != receivable.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored := cloneRebate(receivable)
	stored.CreatedAt = current.CreatedAt
	r.data.rebates[receivable.ID] = *stored
	return nil
}

func (r *rebateRepository) SaveAll(_ context.Context, receivables []settlement.RebateReceivable) error {
	if err := r.writable(); err != nil {
		return err
	}
	for i := range receivables {
		if existing := r.byKey(receivables[i].Key()); existing != nil && existing.ID != receivables[i].ID {
			return shared.ErrAlreadyExists
		}
		r.data.rebates[receivables[i].ID] = *cloneRebate(&receivables[i])
	}
	return nil
}

func (r *rebateRepository) FindOpen(_ context.Context, agencyID uuid.UUID, adAccountID string) ([]settlement.RebateReceivable, error) {
	rebates := collect(r.data.rebates, func(rebate *settlement.RebateReceivable) bool {
		return rebate.AgencyID == agencyID && rebate.AdAccountID == adAccountID && !rebate.IsSettled()
	})
	slices.SortStableFunc(rebates, func(a, b settlement.RebateReceivable) int {
		if c := compareTime(a.ActiveFrom, b.ActiveFrom); c != 0 {
			return c
		}
		return compareTime(a.CreatedAt, b.CreatedAt)
	})
	return clonedRebates(rebates), nil
}

func clonedRebates(rebates []settlement.RebateReceivable) []settlement.RebateReceivable {
	for i := range rebates {
		rebates[i] = *cloneRebate(&rebates[i])
	}
	return rebates
}

type pendingEntryRepository struct {
	*repositories
}

func clonePendingEntry(e *settlement.PendingEntry) *settlement.PendingEntry {
	c := *e
	c.ClearDomainEvents()
	return &c
}

func (r *pendingEntryRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.PendingEntry, error) {
	entry, ok := r.data.entries[id]
	if !ok {
		return nil, shared.NewNotFoundError("pending entry", id.String())
	}
	return clonePendingEntry(&entry), nil
}

func (r *pendingEntryRepository) FindByStatus(_ context.Context, status settlement.PendingEntryStatus) ([]settlement.PendingEntry, error) {
	entries := collect(r.data.entries, func(e *settlement.PendingEntry) bool { return e.Status == status })
	slices.SortStableFunc(entries, func(a, b settlement.PendingEntry) int { return compareTime(a.CreatedAt, b.CreatedAt) })
	for i := range entries {
		entries[i] = *clonePendingEntry(&entries[i])
	}
	return entries, nil
}

func (r *pendingEntryRepository) FindByRelated(_ context.Context, entryType settlement.PendingEntryType, relatedID uuid.UUID) (*settlement.PendingEntry, error) {
	matches := collect(r.data.entries, func(e *settlement.PendingEntry) bool {
		return e.Type == entryType && e.RelatedID == relatedID
	})
	if len(matches) == 0 {
		return nil, shared.ErrNotFound
	}
	return clonePendingEntry(&matches[0]), nil
}

func (r *pendingEntryRepository) CreateIfAbsent(ctx context.Context, entry *settlement.PendingEntry) (bool, error) {
	if err := r.writable(); err != nil {
		return false, err
	}
	if _, ok := r.data.entries[entry.ID]; ok {
		return false, nil
	}
	if _, err := r.FindByRelated(ctx, entry.Type, entry.RelatedID); err == nil {
		return false, nil
	}
	r.data.entries[entry.ID] = *clonePendingEntry(entry)
	return true, nil
}

func (r *pendingEntryRepository) SaveWithLock(_ context.Context, entry *settlement.PendingEntry) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.entries[entry.ID]
	if !ok || current.Version != entry.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored := clonePendingEntry(entry)
	stored.CreatedAt = current.CreatedAt
	r.data.entries[entry.ID] = *stored
	return nil
}

var (
	_ settlement.RebateReceivableRepository = (*rebateRepository)(nil)
	_ settlement.PendingEntryRepository     = (*pendingEntryRepository)(nil)
)
