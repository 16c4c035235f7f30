package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/tax"
)

func testNow() time.Time {
	return time.Date(2026, time.August, 27, 12, 0, 0, 0, time.UTC)
}

type fakeAgentStore struct {
	mu     sync.Mutex
	agents map[int]models.Agent
}

func (f *fakeAgentStore) GetByID(_ context.Context, id int) (models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agents[id]
	if !ok {
		return models.Agent{}, models.ErrAgentNotFound
	}
	return a, nil
}

func (f *fakeAgentStore) BalanceBreakdown(_ context.Context, id int, _ string) (models.BalanceBreakdown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agents[id]
	if !ok {
		return models.BalanceBreakdown{}, models.ErrAgentNotFound
	}
	return models.BalanceBreakdown{Available: a.Balance}, nil
}

// fakePaymentCreator mirrors the repository contract: the balance check and
// debit happen under one lock, so concurrent requests serialize.
type fakePaymentCreator struct {
	mu       sync.Mutex
	agents   *fakeAgentStore
	nextID   int
	payments []models.Payment
}

func (f *fakePaymentCreator) CreateWithDebit(_ context.Context, agentID int, gross int64, snapshot tax.Breakdown, status models.TaxStatus, route models.PayoutRoute) (models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents.mu.Lock()
	defer f.agents.mu.Unlock()

	a := f.agents.agents[agentID]
	if a.Balance < gross {
		return models.Payment{}, &models.InsufficientFundsError{Available: a.Balance, Requested: gross}
	}
	a.Balance -= gross
	f.agents.agents[agentID] = a

	f.nextID++
	p := models.Payment{
		ID:        f.nextID,
		AgentID:   agentID,
		Gross:     gross,
		TaxStatus: status,
		Tax:       snapshot.Tax,
		Social:    snapshot.Social,
		Net:       snapshot.Net,
		Status:    models.PaymentPending,
		Route:     route,
	}
	f.payments = append(f.payments, p)
	return p, nil
}

type fakeRecomputer struct {
	agentID int
	month   string
	tiers   []models.CommissionTier
}

func (f *fakeRecomputer) RecomputeMonth(_ context.Context, agentID int, month string, tiers []models.CommissionTier) (int, int64, error) {
	f.agentID, f.month, f.tiers = agentID, month, tiers
	return 3, 1500, nil
}

type fakeTierAdmin struct {
	tiers []models.CommissionTier
}

func (f *fakeTierAdmin) GetAll(context.Context) ([]models.CommissionTier, error) { return f.tiers, nil }
func (f *fakeTierAdmin) Replace(_ context.Context, tiers []models.CommissionTier) error {
	f.tiers = tiers
	return nil
}

func newLedgerService(agents map[int]models.Agent, minPayout int64) (*LedgerService, *fakePaymentCreator) {
	store := &fakeAgentStore{agents: agents}
	creator := &fakePaymentCreator{agents: store}
	svc := &LedgerService{
		Agents:    store,
		Payments:  creator,
		Ledger:    &fakeRecomputer{},
		Tiers:     &fakeTierAdmin{},
		MinPayout: minPayout,
	}
	return svc, creator
}

func TestRequestPaymentBelowMinimum(t *testing.T) {
	svc, _ := newLedgerService(map[int]models.Agent{
		1: {ID: 1, TaxStatus: models.TaxIndividual, Balance: 500000, Active: true},
	}, 100000)

	_, err := svc.RequestPayment(context.Background(), 1, 99999, models.RouteManual)
	if !errors.Is(err, models.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
}

func TestRequestPaymentUnknownTaxStatusRefused(t *testing.T) {
	svc, creator := newLedgerService(map[int]models.Agent{
		1: {ID: 1, TaxStatus: models.TaxUnknown, Balance: 500000, Active: true},
	}, 0)

	_, err := svc.RequestPayment(context.Background(), 1, 10000, models.RouteManual)
	if !errors.Is(err, models.ErrUnknownTaxStatus) {
		t.Fatalf("expected ErrUnknownTaxStatus, got %v", err)
	}
	if len(creator.payments) != 0 {
		t.Fatalf("no payment must be created for undeclared status")
	}
}

func TestRequestPaymentInsufficientFunds(t *testing.T) {
	svc, _ := newLedgerService(map[int]models.Agent{
		1: {ID: 1, TaxStatus: models.TaxSelfEmployed, Balance: 1200, Active: true},
	}, 0)

	_, err := svc.RequestPayment(context.Background(), 1, 1500, models.RouteManual)
	var insufficient *models.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Available != 1200 || insufficient.Requested != 1500 {
		t.Fatalf("unexpected error payload: %+v", insufficient)
	}

	bb, err := svc.BalanceBreakdown(context.Background(), 1, testNow())
	if err != nil {
		t.Fatalf("balance breakdown: %v", err)
	}
	if bb.Available != 1200 {
		t.Fatalf("balance must be unchanged after rejection, got %d", bb.Available)
	}
}

func TestRequestPaymentTaxSnapshot(t *testing.T) {
	svc, _ := newLedgerService(map[int]models.Agent{
		1: {ID: 1, TaxStatus: models.TaxIndividual, Balance: 100000, Active: true},
		2: {ID: 2, TaxStatus: models.TaxSelfEmployed, Balance: 100000, Active: true},
	}, 0)

	individual, err := svc.RequestPayment(context.Background(), 1, 10000, models.RouteManual)
	if err != nil {
		t.Fatalf("individual request: %v", err)
	}
	if individual.Tax != 1300 || individual.Social != 3000 || individual.Net != 5700 {
		t.Fatalf("individual snapshot = tax %d social %d net %d", individual.Tax, individual.Social, individual.Net)
	}

	selfEmployed, err := svc.RequestPayment(context.Background(), 2, 10000, models.RouteManual)
	if err != nil {
		t.Fatalf("self-employed request: %v", err)
	}
	if selfEmployed.Tax != 0 || selfEmployed.Social != 0 || selfEmployed.Net != 10000 {
		t.Fatalf("self-employed snapshot = tax %d social %d net %d", selfEmployed.Tax, selfEmployed.Social, selfEmployed.Net)
	}
}

// The snapshot belongs to the payment, not the agent: a later status change
// must not leak into an already-created payment.
func TestTaxSnapshotFrozenAtRequestTime(t *testing.T) {
	agents := map[int]models.Agent{
		1: {ID: 1, TaxStatus: models.TaxIndividual, Balance: 100000, Active: true},
	}
	svc, creator := newLedgerService(agents, 0)

	first, err := svc.RequestPayment(context.Background(), 1, 10000, models.RouteManual)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}

	store := svc.Agents.(*fakeAgentStore)
	store.mu.Lock()
	a := store.agents[1]
	a.TaxStatus = models.TaxSelfEmployed
	store.agents[1] = a
	store.mu.Unlock()

	second, err := svc.RequestPayment(context.Background(), 1, 10000, models.RouteManual)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.Net != 10000 {
		t.Fatalf("second payment must use the new status, net = %d", second.Net)
	}
	if got := creator.payments[0]; got.Tax != first.Tax || got.Net != 5700 {
		t.Fatalf("first payment snapshot changed: %+v", got)
	}
}

func TestRequestPaymentConcurrentNoOverdraw(t *testing.T) {
	svc, creator := newLedgerService(map[int]models.Agent{
		1: {ID: 1, TaxStatus: models.TaxSelfEmployed, Balance: 100000, Active: true},
	}, 0)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RequestPayment(context.Background(), 1, 30000, models.RouteManual); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 3 {
		t.Fatalf("balance 100000 admits exactly 3 payouts of 30000, got %d", successes)
	}
	if len(creator.payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(creator.payments))
	}
	bb, _ := svc.BalanceBreakdown(context.Background(), 1, testNow())
	if bb.Available != 10000 {
		t.Fatalf("remaining balance = %d, want 10000", bb.Available)
	}
}

func TestRecomputeMonthPassesCurrentTiers(t *testing.T) {
	svc, _ := newLedgerService(map[int]models.Agent{}, 0)
	tiers := []models.CommissionTier{{MinRevenue: 0, RateBps: 700}, {MinRevenue: 100000000, RateBps: 1000}}
	if err := svc.ReplaceTierTable(context.Background(), tiers); err != nil {
		t.Fatalf("replace tiers: %v", err)
	}

	updated, delta, err := svc.RecomputeMonth(context.Background(), 7, "2026-08")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if updated != 3 || delta != 1500 {
		t.Fatalf("unexpected recompute result: %d, %d", updated, delta)
	}

	rec := svc.Ledger.(*fakeRecomputer)
	if rec.agentID != 7 || rec.month != "2026-08" || len(rec.tiers) != 2 {
		t.Fatalf("recomputer received %d %q %v", rec.agentID, rec.month, rec.tiers)
	}
}
