package handlers_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/platform/payment"
)

type mockUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
}

func newMockUsersRepo() *mockUsersRepo {
	return &mockUsersRepo{byEmail: map[string]*domain.User{}}
}

func (m *mockUsersRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsersRepo) InsertIfAbsent(_ context.Context, u *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return false, nil
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.byEmail[u.Email] = &cp
	return true, nil
}

func (m *mockUsersRepo) PromoteToAdmin(_ context.Context, id string) (domain.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID != id {
			continue
		}
		if u.Role == domain.RoleAdmin {
			return domain.UpdateResult{Acknowledged: true, MatchedCount: 1}, nil
		}
		u.Role = domain.RoleAdmin
		return domain.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return domain.UpdateResult{Acknowledged: true}, nil
}

func (m *mockUsersRepo) DeleteByID(_ context.Context, id string) (domain.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.byEmail {
		if u.ID == id {
			delete(m.byEmail, email)
			return domain.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
		}
	}
	return domain.DeleteResult{Acknowledged: true}, nil
}

func (m *mockUsersRepo) List(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for _, u := range m.byEmail {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockUsersRepo) put(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[u.Email] = &u
}

type mockMenuRepo struct {
	items map[string]*domain.MenuItem
}

func (m *mockMenuRepo) List(context.Context) ([]domain.MenuItem, error) {
	out := []domain.MenuItem{}
	for _, it := range m.items {
		out = append(out, *it)
	}
	return out, nil
}

func (m *mockMenuRepo) GetByID(_ context.Context, id string) (*domain.MenuItem, error) {
	return m.items[id], nil
}

func (m *mockMenuRepo) Insert(_ context.Context, item *domain.MenuItem) (domain.InsertResult, error) {
	m.items[item.ID] = item
	return domain.Inserted(item.ID), nil
}

func (m *mockMenuRepo) Update(_ context.Context, id string, in domain.MenuItemInput) (domain.UpdateResult, error) {
	it, ok := m.items[id]
	if !ok {
		return domain.UpdateResult{Acknowledged: true}, nil
	}
	it.Name, it.Category, it.Price, it.Recipe, it.Image = in.Name, in.Category, in.Price, in.Recipe, in.Image
	return domain.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *mockMenuRepo) DeleteByID(_ context.Context, id string) (domain.DeleteResult, error) {
	if _, ok := m.items[id]; !ok {
		return domain.DeleteResult{Acknowledged: true}, nil
	}
	delete(m.items, id)
	return domain.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

type mockReviewsRepo struct{ reviews []domain.Review }

func (m *mockReviewsRepo) List(context.Context) ([]domain.Review, error) { return m.reviews, nil }

type mockCartsRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.CartEntry
}

func newMockCartsRepo() *mockCartsRepo {
	return &mockCartsRepo{entries: map[string]*domain.CartEntry{}}
}

func (m *mockCartsRepo) Insert(_ context.Context, e *domain.CartEntry) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return domain.Inserted(e.ID), nil
}

func (m *mockCartsRepo) ListByEmail(_ context.Context, email string) ([]domain.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CartEntry{}
	for _, e := range m.entries {
		if e.Email == email {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockCartsRepo) DeleteByID(_ context.Context, id string) (domain.DeleteResult, error) {
	return m.DeleteByIDs(context.Background(), []string{id})
}

func (m *mockCartsRepo) DeleteByIDs(_ context.Context, ids []string) (domain.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.entries[id]; ok {
			delete(m.entries, id)
			n++
		}
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

type mockPaymentsRepo struct {
	mu       sync.Mutex
	payments []domain.Payment
}

func (m *mockPaymentsRepo) Insert(_ context.Context, p *domain.Payment) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, *p)
	return domain.Inserted(p.ID), nil
}

func (m *mockPaymentsRepo) ListByEmail(_ context.Context, email string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range m.payments {
		if p.Email == email {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentsRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

type mockGateway struct {
	mu     sync.Mutex
	amount int64
}

func (g *mockGateway) CreateIntent(_ context.Context, amount int64, _ string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.amount = amount
	return &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret_xyz"}, nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, string, interface{}) error { return nil }

type memIdempotency struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memIdempotency) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memIdempotency) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memIdempotency) Reserve(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
