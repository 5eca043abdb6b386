package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/platform/payment"
	"github.com/diagnosis/bistro-api/pkg/events"
)

const (
	cart1 = "2b6f0cc9-0d5f-4c55-9a4d-6bd3a8d0e001"
	cart2 = "2b6f0cc9-0d5f-4c55-9a4d-6bd3a8d0e002"
	cart3 = "2b6f0cc9-0d5f-4c55-9a4d-6bd3a8d0e003"
)

func newService(p *mockPayments, c *mockCarts, b *mockBus, g *mockGateway) *PaymentService {
	s := NewPaymentService(p, c, g, b, nil, "USD")
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestReconcile_RemovesPaidEntries(t *testing.T) {
	payments := newMockPayments()
	carts := newMockCarts(cart1, cart2, cart3)
	bus := &mockBus{}
	s := newService(payments, carts, bus, &mockGateway{})

	res, err := s.Reconcile(context.Background(), domain.PaymentRequest{
		Email:   "a@x.com",
		Price:   19.98,
		CartIDs: []string{cart1, cart2},
		Status:  "pending",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if !res.PaymentResult.Acknowledged || res.PaymentResult.InsertedID == nil {
		t.Errorf("paymentResult = %+v", res.PaymentResult)
	}
	if res.DeleteResult.DeletedCount != 2 {
		t.Errorf("deletedCount = %d, want 2", res.DeleteResult.DeletedCount)
	}
	if res.CleanupPending {
		t.Error("cleanupPending should be false")
	}
	if len(carts.entries) != 1 || !carts.entries[cart3] {
		t.Errorf("remaining carts = %v, want only %s", carts.entries, cart3)
	}
	if _, ok := payments.byID[*res.PaymentResult.InsertedID]; !ok {
		t.Error("payment not stored under inserted id")
	}
	if got := bus.subjects(); len(got) != 1 || got[0] != events.PaymentCompleted {
		t.Errorf("published = %v", got)
	}
}

func TestReconcile_MissingCartIDsAreNotAnError(t *testing.T) {
	carts := newMockCarts(cart1)
	s := newService(newMockPayments(), carts, &mockBus{}, &mockGateway{})

	res, err := s.Reconcile(context.Background(), domain.PaymentRequest{
		Email:   "a@x.com",
		Price:   5,
		CartIDs: []string{cart1, cart2},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.DeleteResult.DeletedCount != 1 {
		t.Errorf("deletedCount = %d, want 1", res.DeleteResult.DeletedCount)
	}
}

func TestReconcile_InsertFailureSkipsCartDelete(t *testing.T) {
	payments := newMockPayments()
	payments.insertErr = errors.New("db down")
	carts := newMockCarts(cart1)
	bus := &mockBus{}
	s := newService(payments, carts, bus, &mockGateway{})

	_, err := s.Reconcile(context.Background(), domain.PaymentRequest{
		Email:   "a@x.com",
		Price:   5,
		CartIDs: []string{cart1},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if carts.calls != 0 {
		t.Errorf("cart delete calls = %d, want 0", carts.calls)
	}
	if !carts.entries[cart1] {
		t.Error("cart entry must survive a failed payment insert")
	}
	if len(bus.subjects()) != 0 {
		t.Errorf("nothing should be published, got %v", bus.subjects())
	}
}

func TestReconcile_DeleteFailureQueuesCleanup(t *testing.T) {
	payments := newMockPayments()
	carts := newMockCarts(cart1, cart2)
	carts.failures = 1
	bus := &mockBus{}
	s := newService(payments, carts, bus, &mockGateway{})

	res, err := s.Reconcile(context.Background(), domain.PaymentRequest{
		Email:   "a@x.com",
		Price:   5,
		CartIDs: []string{cart1, cart2},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !res.CleanupPending || res.DeleteResult.DeletedCount != 0 {
		t.Errorf("result = %+v, want cleanup pending with zero deletes", res)
	}
	if len(payments.byID) != 1 {
		t.Errorf("payments stored = %d, want 1", len(payments.byID))
	}

	got := bus.subjects()
	if len(got) != 2 || got[0] != events.CartCleanupRequested || got[1] != events.PaymentCompleted {
		t.Fatalf("published = %v", got)
	}
	ev := bus.messages[0].data.(events.CartCleanupRequestedEvent)
	if len(ev.CartIDs) != 2 || ev.PaymentID != *res.PaymentResult.InsertedID {
		t.Errorf("cleanup event = %+v", ev)
	}
}

func TestReconcile_DeleteAndQueueFailure(t *testing.T) {
	carts := newMockCarts(cart1)
	carts.failures = 1
	bus := &mockBus{failOn: map[string]error{events.CartCleanupRequested: errors.New("nats down")}}
	s := newService(newMockPayments(), carts, bus, &mockGateway{})

	_, err := s.Reconcile(context.Background(), domain.PaymentRequest{
		Email:   "a@x.com",
		Price:   5,
		CartIDs: []string{cart1},
	})
	if err == nil {
		t.Fatal("expected error when cleanup cannot be queued")
	}
}

func TestReconcile_CompletedEventIsBestEffort(t *testing.T) {
	bus := &mockBus{failOn: map[string]error{events.PaymentCompleted: errors.New("nats down")}}
	s := newService(newMockPayments(), newMockCarts(cart1), bus, &mockGateway{})

	if _, err := s.Reconcile(context.Background(), domain.PaymentRequest{
		Email:   "a@x.com",
		Price:   5,
		CartIDs: []string{cart1},
	}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
}

func TestCreateIntent_ConvertsToMinorUnits(t *testing.T) {
	gw := &mockGateway{}
	bus := &mockBus{}
	s := newService(newMockPayments(), newMockCarts(), bus, gw)

	resp, err := s.CreateIntent(context.Background(), domain.PaymentIntentRequest{Price: decimal.RequireFromString("9.99")})
	if err != nil {
		t.Fatalf("CreateIntent() error = %v", err)
	}
	if gw.amount != 999 {
		t.Errorf("amount = %d, want 999", gw.amount)
	}
	if gw.currency != "usd" {
		t.Errorf("currency = %q, want usd", gw.currency)
	}
	if resp.ClientSecret == "" {
		t.Error("empty client secret")
	}
	if got := bus.subjects(); len(got) != 1 || got[0] != events.PaymentIntentCreated {
		t.Errorf("published = %v", got)
	}
}

func TestCreateIntent_Errors(t *testing.T) {
	s := newService(newMockPayments(), newMockCarts(), &mockBus{}, &mockGateway{})
	if _, err := s.CreateIntent(context.Background(), domain.PaymentIntentRequest{Price: decimal.RequireFromString("0.004")}); !errors.Is(err, payment.ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}

	s = newService(newMockPayments(), newMockCarts(), &mockBus{}, &mockGateway{err: errors.New("declined")})
	if _, err := s.CreateIntent(context.Background(), domain.PaymentIntentRequest{Price: decimal.NewFromInt(10)}); err == nil {
		t.Error("expected gateway error")
	}
}

func TestListByEmail_Normalizes(t *testing.T) {
	payments := newMockPayments()
	payments.byID["p1"] = &domain.Payment{ID: "p1", Email: "a@x.com"}
	payments.byID["p2"] = &domain.Payment{ID: "p2", Email: "b@x.com"}
	s := newService(payments, newMockCarts(), &mockBus{}, &mockGateway{})

	got, err := s.ListByEmail(context.Background(), " A@X.com ")
	if err != nil {
		t.Fatalf("ListByEmail() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("got = %+v", got)
	}
}
