package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/fsm"
	"medrefBack/internal/settlement/payout"
)

// fakePaymentStore mirrors the repository contract, including the optimistic
// transition rule and the exactly-once refund on failure.
type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[int]*models.Payment
	acts     map[int]*models.Act
	balances map[int]int64
	nextAct  int
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments: make(map[int]*models.Payment),
		acts:     make(map[int]*models.Act),
		balances: make(map[int]int64),
	}
}

func (f *fakePaymentStore) GetByID(_ context.Context, id int) (models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return models.Payment{}, models.ErrPaymentNotFound
	}
	return *p, nil
}

func (f *fakePaymentStore) ListByAgent(_ context.Context, agentID, _, _ int) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.AgentID == agentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) GenerateAct(_ context.Context, paymentID int, now time.Time) (models.Act, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return models.Act{}, models.ErrPaymentNotFound
	}
	if p.ActID != nil {
		return *f.acts[*p.ActID], nil
	}
	if p.Status != models.PaymentPending {
		return models.Act{}, &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
	}
	f.nextAct++
	act := &models.Act{
		ID:        f.nextAct,
		PaymentID: paymentID,
		Number:    fmt.Sprintf("ACT-%s-%06d", now.UTC().Format("200601"), paymentID),
		Date:      now.UTC(),
		Total:     p.Gross,
		OTPKey:    fmt.Sprintf("otp-key-%d", f.nextAct),
	}
	f.acts[act.ID] = act
	id := act.ID
	p.ActID = &id
	p.Status = models.PaymentActGenerated
	return *act, nil
}

func (f *fakePaymentStore) ActByPayment(_ context.Context, paymentID int) (models.Act, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, act := range f.acts {
		if act.PaymentID == paymentID {
			return *act, nil
		}
	}
	return models.Act{}, models.ErrActNotFound
}

func (f *fakePaymentStore) Transition(_ context.Context, paymentID int, from, to models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transitionLocked(paymentID, from, to)
}

func (f *fakePaymentStore) transitionLocked(paymentID int, from, to models.PaymentStatus) error {
	p, ok := f.payments[paymentID]
	if !ok {
		return models.ErrPaymentNotFound
	}
	if p.Status != from || !fsm.CanTransition(from, to) {
		return &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
	}
	p.Status = to
	return nil
}

func (f *fakePaymentStore) MarkSigned(_ context.Context, paymentID int, from models.PaymentStatus, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transitionLocked(paymentID, from, models.PaymentSigned); err != nil {
		return err
	}
	if actID := f.payments[paymentID].ActID; actID != nil {
		signed := now.UTC()
		f.acts[*actID].SignedAt = &signed
	}
	return nil
}

func (f *fakePaymentStore) Complete(_ context.Context, paymentID int, payoutRef string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transitionLocked(paymentID, models.PaymentReadyForPayment, models.PaymentCompleted); err != nil {
		return err
	}
	p := f.payments[paymentID]
	p.PayoutRef = &payoutRef
	completed := now.UTC()
	p.CompletedAt = &completed
	return nil
}

func (f *fakePaymentStore) MarkFailed(_ context.Context, paymentID int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return models.ErrPaymentNotFound
	}
	if p.Status.IsTerminal() {
		return &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
	}
	p.Status = models.PaymentFailed
	p.FailReason = &reason
	f.balances[p.AgentID] += p.Gross
	return nil
}

func (f *fakePaymentStore) SetJumpStatus(_ context.Context, paymentID, jumpStatus int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return models.ErrPaymentNotFound
	}
	p.JumpStatus = jumpStatus
	return nil
}

type fakeOTP struct {
	issued   []string
	verified []string
	code     string
}

func (f *fakeOTP) Issue(_ context.Context, key string, _ models.OTPChannel, _ string, _ time.Time) error {
	f.issued = append(f.issued, key)
	return nil
}

func (f *fakeOTP) Verify(_ context.Context, key, code string, _ time.Time) error {
	if code != f.code {
		return models.ErrOTPMismatch
	}
	f.verified = append(f.verified, key)
	return nil
}

type recordedEvent struct {
	paymentID int
	status    models.PaymentStatus
}

type recordingNotifier struct {
	mu       sync.Mutex
	settled  []int
	payments []recordedEvent
}

func (n *recordingNotifier) ReferralSettled(_, referralID int, _ int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settled = append(n.settled, referralID)
}

func (n *recordingNotifier) PaymentStatusChanged(p models.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, recordedEvent{paymentID: p.ID, status: p.Status})
}

type fakeRouter struct {
	route models.PayoutRoute
	ref   string
	err   error
}

func (r *fakeRouter) Route() models.PayoutRoute { return r.route }
func (r *fakeRouter) Initiate(context.Context, models.Payment) (string, error) {
	return r.ref, r.err
}
func (r *fakeRouter) DisplayStatus(p models.Payment) string { return payout.StatusLabel(p.Status) }

func newPaymentService(store *fakePaymentStore, agents map[int]models.Agent) (*PaymentService, *fakeOTP, *recordingNotifier) {
	code := &fakeOTP{code: "123456"}
	notifier := &recordingNotifier{}
	svc := &PaymentService{
		Payments: store,
		Agents:   &fakeAgentStore{agents: agents},
		OTP:      code,
		Routers: map[models.PayoutRoute]payout.Router{
			models.RouteManual:   payout.Manual{},
			models.RouteProvider: &fakeRouter{route: models.RouteProvider, ref: "jump-778"},
		},
		Notifier: notifier,
		ErrorLog: log.New(os.Stderr, "ERROR\t", 0),
	}
	return svc, code, notifier
}

func seedPayment(store *fakePaymentStore, id int, status models.PaymentStatus, taxStatus models.TaxStatus) {
	store.payments[id] = &models.Payment{
		ID:        id,
		AgentID:   1,
		Gross:     150000,
		TaxStatus: taxStatus,
		Status:    status,
		Route:     models.RouteManual,
	}
}

func verifiedAgent() map[int]models.Agent {
	return map[int]models.Agent{
		1: {ID: 1, Active: true, OTPChannel: models.ChannelTelegram, OTPDestination: "4455", TaxStatus: models.TaxIndividual},
	}
}

func TestGenerateActIdempotent(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentPending, models.TaxIndividual)
	svc, _, _ := newPaymentService(store, verifiedAgent())

	first, err := svc.GenerateAct(context.Background(), 10, testNow())
	if err != nil {
		t.Fatalf("first act: %v", err)
	}
	second, err := svc.GenerateAct(context.Background(), 10, testNow().Add(time.Hour))
	if err != nil {
		t.Fatalf("second act: %v", err)
	}
	if first.ID != second.ID || first.Number != second.Number || first.OTPKey != second.OTPKey {
		t.Fatalf("act generation must be idempotent: %+v vs %+v", first, second)
	}

	p, _ := store.GetByID(context.Background(), 10)
	if p.Status != models.PaymentActGenerated {
		t.Fatalf("payment status = %s", p.Status)
	}
}

func TestSendForSigningRequiresVerifiedChannel(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentPending, models.TaxIndividual)
	svc, _, _ := newPaymentService(store, map[int]models.Agent{
		1: {ID: 1, Active: true, TaxStatus: models.TaxIndividual},
	})

	if _, err := svc.GenerateAct(context.Background(), 10, testNow()); err != nil {
		t.Fatalf("act: %v", err)
	}
	err := svc.SendForSigning(context.Background(), 10, testNow())
	if !errors.Is(err, models.ErrNoVerifiedChannel) {
		t.Fatalf("expected ErrNoVerifiedChannel, got %v", err)
	}
}

func TestSignHappyPath(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentPending, models.TaxIndividual)
	svc, code, notifier := newPaymentService(store, verifiedAgent())

	act, err := svc.GenerateAct(context.Background(), 10, testNow())
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if err := svc.SendForSigning(context.Background(), 10, testNow()); err != nil {
		t.Fatalf("send for signing: %v", err)
	}
	if len(code.issued) != 1 || code.issued[0] != act.OTPKey {
		t.Fatalf("code issued for %v, want [%s]", code.issued, act.OTPKey)
	}

	if err := svc.Sign(context.Background(), 10, "000000", testNow()); !errors.Is(err, models.ErrOTPMismatch) {
		t.Fatalf("wrong code must fail with mismatch, got %v", err)
	}
	if err := svc.Sign(context.Background(), 10, "123456", testNow()); err != nil {
		t.Fatalf("sign: %v", err)
	}

	p, _ := store.GetByID(context.Background(), 10)
	if p.Status != models.PaymentSigned {
		t.Fatalf("payment status = %s", p.Status)
	}
	got, _ := store.ActByPayment(context.Background(), 10)
	if got.SignedAt == nil {
		t.Fatalf("act must be stamped on signing")
	}

	last := notifier.payments[len(notifier.payments)-1]
	if last.status != models.PaymentSigned {
		t.Fatalf("last notification = %+v", last)
	}
}

func TestSignRejectsWrongState(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentPending, models.TaxIndividual)
	svc, _, _ := newPaymentService(store, verifiedAgent())

	err := svc.Sign(context.Background(), 10, "123456", testNow())
	var conflict *models.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if conflict.Current != string(models.PaymentPending) {
		t.Fatalf("conflict reports %q", conflict.Current)
	}
}

func TestReceiptPathSelfEmployedOnly(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentPending, models.TaxIndividual)
	seedPayment(store, 11, models.PaymentPending, models.TaxSelfEmployed)
	svc, _, _ := newPaymentService(store, verifiedAgent())

	for _, id := range []int{10, 11} {
		if _, err := svc.GenerateAct(context.Background(), id, testNow()); err != nil {
			t.Fatalf("act %d: %v", id, err)
		}
	}

	if err := svc.ConfirmReceipt(context.Background(), 10, testNow()); err == nil {
		t.Fatalf("individual agent must not pass the receipt path")
	}
	if err := svc.ConfirmReceipt(context.Background(), 11, testNow()); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	p, _ := store.GetByID(context.Background(), 11)
	if p.Status != models.PaymentSigned {
		t.Fatalf("receipt must sign the payment, status = %s", p.Status)
	}
}

func TestMarkReadyBatchIsolatesFailures(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentSigned, models.TaxIndividual)
	seedPayment(store, 11, models.PaymentPending, models.TaxIndividual)
	svc, _, _ := newPaymentService(store, verifiedAgent())

	results := svc.MarkReady(context.Background(), []int{10, 11})
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if !results[0].OK || results[1].OK {
		t.Fatalf("unexpected batch results: %+v", results)
	}
	p, _ := store.GetByID(context.Background(), 10)
	if p.Status != models.PaymentReadyForPayment {
		t.Fatalf("payment 10 status = %s", p.Status)
	}
}

func TestCompleteProviderRouteInitiates(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentReadyForPayment, models.TaxIndividual)
	store.payments[10].Route = models.RouteProvider
	svc, _, _ := newPaymentService(store, verifiedAgent())

	results := svc.Complete(context.Background(), []models.CompletionItem{{PaymentID: 10}}, testNow())
	if !results[0].OK {
		t.Fatalf("complete failed: %+v", results[0])
	}
	p, _ := store.GetByID(context.Background(), 10)
	if p.Status != models.PaymentCompleted {
		t.Fatalf("status = %s", p.Status)
	}
	if p.PayoutRef == nil || *p.PayoutRef != "jump-778" {
		t.Fatalf("payout ref = %v, want provider reference", p.PayoutRef)
	}
	if p.CompletedAt == nil {
		t.Fatalf("completion timestamp missing")
	}
}

func TestFailRefundsExactlyOnce(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentReadyForPayment, models.TaxIndividual)
	svc, _, _ := newPaymentService(store, verifiedAgent())

	if err := svc.Fail(context.Background(), 10, "bank rejected"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if store.balances[1] != 150000 {
		t.Fatalf("refund = %d, want full gross back", store.balances[1])
	}

	err := svc.Fail(context.Background(), 10, "bank rejected again")
	var conflict *models.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("repeated failure must conflict, got %v", err)
	}
	if store.balances[1] != 150000 {
		t.Fatalf("second failure refunded again: %d", store.balances[1])
	}
}

func TestSetProviderStatusValidatesRange(t *testing.T) {
	store := newFakePaymentStore()
	seedPayment(store, 10, models.PaymentReadyForPayment, models.TaxIndividual)
	store.payments[10].Route = models.RouteProvider
	svc, _, _ := newPaymentService(store, verifiedAgent())

	if err := svc.SetProviderStatus(context.Background(), 10, 0); err == nil {
		t.Fatalf("status 0 must be rejected")
	}
	if err := svc.SetProviderStatus(context.Background(), 10, 9); err == nil {
		t.Fatalf("status 9 must be rejected")
	}
	if err := svc.SetProviderStatus(context.Background(), 10, 3); err != nil {
		t.Fatalf("status 3: %v", err)
	}
	p, _ := store.GetByID(context.Background(), 10)
	if p.JumpStatus != 3 {
		t.Fatalf("jump status = %d", p.JumpStatus)
	}
	if p.Status != models.PaymentReadyForPayment {
		t.Fatalf("overlay must not drive the machine, status = %s", p.Status)
	}
}
