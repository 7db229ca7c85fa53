package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rocketharbor/wdpay/internal/domain"
)

// MockPaymentRepository is a mock implementation of usecase.PaymentRepository.
// By default it behaves like a small in-memory store; individual methods can
// be overridden through the *Func fields.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	CreateFunc            func(ctx context.Context, payment *domain.Payment) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Payment, error)
	AttachTxHashFunc      func(ctx context.Context, reference, txHash string) (*domain.Payment, error)
	MarkConfirmedFunc     func(ctx context.Context, id string, confirmedAt time.Time) (*domain.Payment, error)
	MarkFailedFunc        func(ctx context.Context, id string) (*domain.Payment, error)
	ListHashedPendingFunc func(ctx context.Context, limit int) ([]*domain.Payment, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment.Clone()
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return p.Clone(), nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *MockPaymentRepository) AttachTxHash(ctx context.Context, reference, txHash string) (*domain.Payment, error) {
	if m.AttachTxHashFunc != nil {
		return m.AttachTxHashFunc(ctx, reference, txHash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Payment
	for _, p := range m.payments {
		if p.Reference == reference && !p.Terminal() {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	if len(matched) > 1 {
		return nil, domain.ErrAmbiguousReference
	}
	if err := matched[0].AttachTxHash(txHash); err != nil {
		return nil, err
	}
	return matched[0].Clone(), nil
}

func (m *MockPaymentRepository) MarkConfirmed(ctx context.Context, id string, confirmedAt time.Time) (*domain.Payment, error) {
	if m.MarkConfirmedFunc != nil {
		return m.MarkConfirmedFunc(ctx, id, confirmedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p.MarkConfirmed(confirmedAt)
	return p.Clone(), nil
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, id string) (*domain.Payment, error) {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p.MarkFailed()
	return p.Clone(), nil
}

func (m *MockPaymentRepository) ListHashedPending(ctx context.Context, limit int) ([]*domain.Payment, error) {
	if m.ListHashedPendingFunc != nil {
		return m.ListHashedPendingFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusPending && p.TxHash != "" {
			result = append(result, p.Clone())
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// MockIDGenerator is a mock implementation of usecase.IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("pay-%d", m.counter)
}

// MockCache is a mock implementation of usecase.Cache.
type MockCache struct {
	mu     sync.RWMutex
	values map[string]string

	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
