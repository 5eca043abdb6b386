package service

import (
	"context"
	"errors"
	"sync"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/platform/payment"
	"github.com/diagnosis/bistro-api/pkg/events"
)

type mockPayments struct {
	mu        sync.Mutex
	byID      map[string]*domain.Payment
	insertErr error
}

func newMockPayments() *mockPayments { return &mockPayments{byID: map[string]*domain.Payment{}} }

func (m *mockPayments) Insert(_ context.Context, p *domain.Payment) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return domain.InsertResult{}, m.insertErr
	}
	m.byID[p.ID] = p
	return domain.Inserted(p.ID), nil
}

func (m *mockPayments) ListByEmail(_ context.Context, email string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range m.byID {
		if p.Email == email {
			out = append(out, *p)
		}
	}
	return out, nil
}

// mockCarts deletes from an in-memory set. failures makes the next N calls fail.
type mockCarts struct {
	mu       sync.Mutex
	entries  map[string]bool
	failures int
	calls    int
}

func newMockCarts(ids ...string) *mockCarts {
	m := &mockCarts{entries: map[string]bool{}}
	for _, id := range ids {
		m.entries[id] = true
	}
	return m
}

func (m *mockCarts) DeleteByIDs(_ context.Context, ids []string) (domain.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return domain.DeleteResult{}, errors.New("connection reset")
	}
	var n int64
	for _, id := range ids {
		if m.entries[id] {
			delete(m.entries, id)
			n++
		}
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

type published struct {
	subject string
	data    interface{}
}

type mockBus struct {
	mu       sync.Mutex
	messages []published
	failOn   map[string]error
}

func (b *mockBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failOn[subject]; err != nil {
		return err
	}
	b.messages = append(b.messages, published{subject, data})
	return nil
}

func (b *mockBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.subject
	}
	return out
}

type mockGateway struct {
	amount   int64
	currency string
	err      error
}

func (g *mockGateway) CreateIntent(_ context.Context, amount int64, currency string) (*payment.Intent, error) {
	g.amount, g.currency = amount, currency
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

var _ events.Publisher = (*mockBus)(nil)
