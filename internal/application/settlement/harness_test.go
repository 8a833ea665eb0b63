package settlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingPublisher keeps every published event for later inspection
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	ctx       context.Context
	store     *memory.Store
	publisher *recordingPublisher
	bills     *appsettlement.BillService
	requests  *appsettlement.RequestService
	rebates   *appsettlement.RebateService
	entries   *appsettlement.PendingEntryService
	accounts  *appsettlement.AccountService
	agencies  *appsettlement.AgencyService
	accrual   *appsettlement.RebateAccrualHandler
	actor     uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	opts := appsettlement.DefaultOptions()
	orchestrator := appsettlement.NewApprovalOrchestrator(store, logger)
	ledger := appsettlement.NewLedgerPoster(nil, opts, logger)
	publisher := &recordingPublisher{}

	h := &harness{
		ctx:       context.Background(),
		store:     store,
		publisher: publisher,
		bills:     appsettlement.NewBillService(store, orchestrator, ledger, logger),
		requests:  appsettlement.NewRequestService(store, orchestrator, ledger, logger),
		rebates:   appsettlement.NewRebateService(store, logger),
		entries:   appsettlement.NewPendingEntryService(store, orchestrator, ledger, logger),
		accounts:  appsettlement.NewAccountService(store, ledger, nil, opts, logger),
		agencies:  appsettlement.NewAgencyService(store, logger),
		accrual:   appsettlement.NewRebateAccrualHandler(store, opts, logger),
		actor:     uuid.New(),
	}
	h.bills.SetEventPublisher(publisher)
	h.requests.SetEventPublisher(publisher)
	h.entries.SetEventPublisher(publisher)
	return h
}

func (h *harness) createAgency(t *testing.T, name string, rate int64) uuid.UUID {
	t.Helper()
	agency, err := h.agencies.Create(h.ctx, appsettlement.AgencyInput{
		Name:       name,
		RebateRate: decimal.NewFromInt(rate),
		Currency:   "CNY",
	})
	require.NoError(t, err)
	return agency.ID
}

// createAccount saves a standalone account with the given starting capital
func (h *harness) createAccount(t *testing.T, name string, capital int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := h.accounts.SaveAll(h.ctx, []appsettlement.AccountInput{{
		ID:             &id,
		Name:           name,
		Currency:       "CNY",
		Category:       string(settlement.AccountCategoryStandalone),
		InitialCapital: decimal.NewFromInt(capital),
	}})
	require.NoError(t, err)
	return id
}

func (h *harness) createBill(t *testing.T, in appsettlement.BillInput) *appsettlement.BillResponse {
	t.Helper()
	bill, err := h.bills.Create(h.ctx, h.actor, in)
	require.NoError(t, err)
	return bill
}

// approveBill walks a draft bill through review and final approval
func (h *harness) approveBill(t *testing.T, id uuid.UUID) *appsettlement.BillResponse {
	t.Helper()
	_, err := h.bills.SubmitForReview(h.ctx, id, h.actor, "vouchers/apply.pdf")
	require.NoError(t, err)
	_, err = h.bills.FinanceApprove(h.ctx, id, uuid.New())
	require.NoError(t, err)
	bill, err := h.bills.Approve(h.ctx, id, uuid.New())
	require.NoError(t, err)
	return bill
}

// deliverApprovals hands every captured approval event to the accrual handler
func (h *harness) deliverApprovals(t *testing.T) {
	t.Helper()
	for _, e := range h.publisher.ofType(settlement.EventTypeBillApproved) {
		require.NoError(t, h.accrual.Handle(h.ctx, e))
	}
}

func adRebateBill(agencyID uuid.UUID, rechargeID string, total int64) appsettlement.BillInput {
	return appsettlement.BillInput{
		Month:       "2026-03",
		Category:    string(settlement.BillCategoryPayable),
		Type:        string(settlement.BillTypeAdRebate),
		AgencyID:    &agencyID,
		AgencyName:  "Blue Agency",
		AdAccountID: "act_1",
		TotalAmount: decimal.NewFromInt(total),
		Currency:    "CNY",
		RechargeIDs: []string{rechargeID},
	}
}

func payableBill(total int64) appsettlement.BillInput {
	return appsettlement.BillInput{
		Month:        "2026-03",
		Category:     string(settlement.BillCategoryPayable),
		Type:         string(settlement.BillTypeLogistics),
		SupplierName: "Fast Freight",
		TotalAmount:  decimal.NewFromInt(total),
		Currency:     "CNY",
	}
}

func receivableBill(total int64) appsettlement.BillInput {
	in := payableBill(total)
	in.Category = string(settlement.BillCategoryReceivable)
	in.Type = string(settlement.BillTypeStoreRepayment)
	in.SupplierName = ""
	in.FactoryName = "North Factory"
	return in
}

var march = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
