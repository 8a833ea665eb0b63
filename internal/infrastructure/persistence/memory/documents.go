package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

var billOrdering = ordering[settlement.Bill]{
	"id":           func(a, b *settlement.Bill) int { return strings.Compare(a.ID.String(), b.ID.String()) },
	"created_at":   func(a, b *settlement.Bill) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"updated_at":   func(a, b *settlement.Bill) int { return compareTime(a.UpdatedAt, b.UpdatedAt) },
	"bill_number":  func(a, b *settlement.Bill) int { return strings.Compare(a.BillNumber, b.BillNumber) },
	"month":        func(a, b *settlement.Bill) int { return strings.Compare(a.Month, b.Month) },
	"status":       func(a, b *settlement.Bill) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"total_amount": func(a, b *settlement.Bill) int { return compareDecimal(a.TotalAmount, b.TotalAmount) },
	"net_amount":   func(a, b *settlement.Bill) int { return compareDecimal(a.NetAmount, b.NetAmount) },
	"approved_at":  func(a, b *settlement.Bill) int { return compareOptionalTime(a.ApprovedAt, b.ApprovedAt) },
}

var requestOrdering = ordering[settlement.Request]{
	"id":             func(a, b *settlement.Request) int { return strings.Compare(a.ID.String(), b.ID.String()) },
	"created_at":     func(a, b *settlement.Request) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"updated_at":     func(a, b *settlement.Request) int { return compareTime(a.UpdatedAt, b.UpdatedAt) },
	"request_number": func(a, b *settlement.Request) int { return strings.Compare(a.RequestNumber, b.RequestNumber) },
	"status":         func(a, b *settlement.Request) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"amount":         func(a, b *settlement.Request) int { return compareDecimal(a.Amount, b.Amount) },
	"approved_at":    func(a, b *settlement.Request) int { return compareOptionalTime(a.ApprovedAt, b.ApprovedAt) },
}

func cloneBill(b *settlement.Bill) *settlement.Bill {
	c := *b
	c.RechargeIDs = slices.Clone(b.RechargeIDs)
	c.ConsumptionIDs = slices.Clone(b.ConsumptionIDs)
	c.ClearDomainEvents()
	return &c
}

func cloneRequest(r *settlement.Request) *settlement.Request {
	c := *r
	c.Vouchers = slices.Clone(r.Vouchers)
	c.ClearDomainEvents()
	return &c
}

func isDraftAggregator(b *settlement.Bill, key settlement.AggregatorKey) bool {
	return isAggregatorFor(b, key) && b.Status == settlement.StatusDraft
}

func isAggregatorFor(b *settlement.Bill, key settlement.AggregatorKey) bool {
	return b.IsRebateAggregator &&
		b.Type == settlement.BillTypeAdRebate &&
		b.Month == key.Month &&
		b.AgencyID != nil && *b.AgencyID == key.AgencyID &&
		b.AdAccountID == key.AdAccountID &&
		b.Currency == key.Currency
}

func aggregatorKeyOf(b *settlement.Bill) (settlement.AggregatorKey, bool) {
	if !b.IsRebateAggregator || b.AgencyID == nil {
		return settlement.AggregatorKey{}, false
	}
	return settlement.AggregatorKey{Month: b.Month, AgencyID: *b.AgencyID, AdAccountID: b.AdAccountID, Currency: b.Currency}, true
}

type billRepository struct {
	*repositories
}

func (r *billRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.Bill, error) {
	b, ok := r.data.bills[id]
	if !ok {
		return nil, shared.NewNotFoundError("bill", id.String())
	}
	return cloneBill(&b), nil
}

func (r *billRepository) FindAll(_ context.Context, filter settlement.BillFilter) ([]settlement.Bill, int64, error) {
	bills := collect(r.data.bills, func(b *settlement.Bill) bool {
		return (filter.Status == nil || b.Status == *filter.Status) &&
			(filter.Category == nil || b.Category == *filter.Category) &&
			(filter.Type == nil || b.Type == *filter.Type) &&
			(filter.Month == "" || b.Month == filter.Month) &&
			(filter.AgencyID == nil || (b.AgencyID != nil && *b.AgencyID == *filter.AgencyID)) &&
			(filter.IsRebateAggregator == nil || b.IsRebateAggregator == *filter.IsRebateAggregator) &&
			containsFold(filter.Search, b.BillNumber, b.AgencyName, b.SupplierName, b.FactoryName)
	})
	total := int64(len(bills))
	return clonedBills(sortAndPage(bills, filter.Filter, billOrdering)), total, nil
}

func (r *billRepository) FindByStatus(_ context.Context, status settlement.DocumentStatus) ([]settlement.Bill, error) {
	bills := collect(r.data.bills, func(b *settlement.Bill) bool { return b.Status == status })
	slices.SortStableFunc(bills, func(a, b settlement.Bill) int { return compareTime(a.CreatedAt, b.CreatedAt) })
	return clonedBills(bills), nil
}

func (r *billRepository) Save(_ context.Context, bill *settlement.Bill) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.data.bills[bill.ID]; ok {
		return shared.ErrAlreadyExists
	}
	if err := r.checkUnique(bill); err != nil {
		return err
	}
	r.data.bills[bill.ID] = *cloneBill(bill)
	return nil
}

func (r *billRepository) SaveWithLock(_ context.Context, bill *settlement.Bill) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.bills[bill.ID]
	if !ok || current.Version != bill.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	if err := r.checkUnique(bill); err != nil {
		return err
	}
	stored := cloneBill(bill)
	stored.CreatedAt = current.CreatedAt
	r.data.bills[bill.ID] = *stored
	return nil
}

// checkUnique mirrors the bill_number and draft aggregator unique indexes
func (r *billRepository) checkUnique(bill *settlement.Bill) error {
	key, isAggregator := aggregatorKeyOf(bill)
	for id, other := range r.data.bills {
		if id == bill.ID {
			continue
		}
		if other.BillNumber == bill.BillNumber {
			return fmt.Errorf("bill number %s: %w", bill.BillNumber, shared.ErrAlreadyExists)
		}
		if isAggregator && bill.Status == settlement.StatusDraft && isDraftAggregator(&other, key) {
			return fmt.Errorf("draft rebate aggregator for %s: %w", key.Month, shared.ErrAlreadyExists)
		}
	}
	return nil
}

func (r *billRepository) FindDraftAggregator(_ context.Context, key settlement.AggregatorKey) (*settlement.Bill, error) {
	drafts := collect(r.data.bills, func(b *settlement.Bill) bool { return isDraftAggregator(b, key) })
	if len(drafts) == 0 {
		return nil, shared.ErrNotFound
	}
	return cloneBill(&drafts[0]), nil
}

func (r *billRepository) FindAggregators(_ context.Context, key settlement.AggregatorKey) ([]settlement.Bill, error) {
	bills := collect(r.data.bills, func(b *settlement.Bill) bool { return isAggregatorFor(b, key) })
	slices.SortStableFunc(bills, func(a, b settlement.Bill) int { return compareTime(a.CreatedAt, b.CreatedAt) })
	return clonedBills(bills), nil
}

func (r *billRepository) FindAggregatorsByRecharge(_ context.Context, rechargeID string) ([]settlement.Bill, error) {
	bills := collect(r.data.bills, func(b *settlement.Bill) bool { return b.IsRebateAggregator && b.HasRecharge(rechargeID) })
	slices.SortStableFunc(bills, func(a, b settlement.Bill) int { return compareTime(a.CreatedAt, b.CreatedAt) })
	return clonedBills(bills), nil
}

func (r *billRepository) CreateAggregatorIfAbsent(ctx context.Context, bill *settlement.Bill) (bool, error) {
	if err := r.writable(); err != nil {
		return false, err
	}
	if key, ok := aggregatorKeyOf(bill); ok {
		if _, err := r.FindDraftAggregator(ctx, key); err == nil {
			return false, nil
		}
	}
	if err := r.Save(ctx, bill); err != nil {
		return false, err
	}
	return true, nil
}

func (r *billRepository) GenerateBillNumber(_ context.Context, month string) (string, error) {
	count := len(collect(r.data.bills, func(b *settlement.Bill) bool { return b.Month == month }))
	return fmt.Sprintf("BILL-%s-%05d", strings.ReplaceAll(month, "-", ""), count+1), nil
}

func clonedBills(bills []settlement.Bill) []settlement.Bill {
	for i := range bills {
		bills[i] = *cloneBill(&bills[i])
	}
	return bills
}

type requestRepository struct {
	*repositories
}

func (r *requestRepository) FindByID(_ context.Context, id uuid.UUID) (*settlement.Request, error) {
	req, ok := r.data.requests[id]
	if !ok {
		return nil, shared.NewNotFoundError("request", id.String())
	}
	return cloneRequest(&req), nil
}

func (r *requestRepository) FindAll(_ context.Context, filter settlement.RequestFilter) ([]settlement.Request, int64, error) {
	requests := collect(r.data.requests, func(req *settlement.Request) bool {
		return (filter.Kind == nil || req.Kind == *filter.Kind) &&
			(filter.Status == nil || req.Status == *filter.Status) &&
			containsFold(filter.Search, req.RequestNumber, req.Title, req.PartyName)
	})
	total := int64(len(requests))
	return clonedRequests(sortAndPage(requests, filter.Filter, requestOrdering)), total, nil
}

func (r *requestRepository) FindByStatus(_ context.Context, status settlement.DocumentStatus) ([]settlement.Request, error) {
	requests := collect(r.data.requests, func(req *settlement.Request) bool { return req.Status == status })
	slices.SortStableFunc(requests, func(a, b settlement.Request) int { return compareTime(a.CreatedAt, b.CreatedAt) })
	return clonedRequests(requests), nil
}

func (r *requestRepository) Save(_ context.Context, request *settlement.Request) error {
	if err := r.writable(); err != nil {
		return err
	}
	for id, other := range r.data.requests {
		if id == request.ID || other.RequestNumber == request.RequestNumber {
			return shared.ErrAlreadyExists
		}
	}
	r.data.requests[request.ID] = *cloneRequest(request)
	return nil
}

func (r *requestRepository) SaveWithLock(_ context.Context, request *settlement.Request) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.requests[request.ID]
	if !ok || current.Version != request.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored := cloneRequest(request)
	stored.CreatedAt = current.CreatedAt
	r.data.requests[request.ID] = *stored
	return nil
}

func (r *requestRepository) GenerateRequestNumber(_ context.Context, kind settlement.RequestKind) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind.NumberPrefix(), time.Now().Format("20060102"))
	count := len(collect(r.data.requests, func(req *settlement.Request) bool {
		return strings.HasPrefix(req.RequestNumber, prefix)
	}))
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func clonedRequests(requests []settlement.Request) []settlement.Request {
	for i := range requests {
		requests[i] = *cloneRequest(&requests[i])
	}
	return requests
}

var (
	_ settlement.BillRepository    = (*billRepository)(nil)
	_ settlement.RequestRepository = (*requestRepository)(nil)
)
