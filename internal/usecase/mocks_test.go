//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/model"
	"paypal-billing/internal/domain/ports/adapter"
	"paypal-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Gateway
// =============================

type MockGateway struct {
	CreateOrderFunc            func(ctx context.Context, spec adapter.OrderSpec, idempotencyKey string) (string, error)
	CaptureOrderFunc           func(ctx context.Context, remoteOrderID string) (string, error)
	CreateSubscriptionFunc     func(ctx context.Context, planID string, sub adapter.Subscriber, idempotencyKey string) (string, error)
	CancelSubscriptionFunc     func(ctx context.Context, remoteSubscriptionID, reason string) error
	GetSubscriptionFunc        func(ctx context.Context, remoteSubscriptionID string) (*adapter.SubscriptionDetail, error)
	VerifyWebhookSignatureFunc func(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders, webhookID string) (string, error)
}

var _ adapter.GatewayClient = (*MockGateway)(nil)

func (m *MockGateway) CreateOrder(ctx context.Context, spec adapter.OrderSpec, idempotencyKey string) (string, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, spec, idempotencyKey)
	}
	return "ORDER-" + uuid.NewString(), nil
}

func (m *MockGateway) CaptureOrder(ctx context.Context, remoteOrderID string) (string, error) {
	if m.CaptureOrderFunc != nil {
		return m.CaptureOrderFunc(ctx, remoteOrderID)
	}
	return "COMPLETED", nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, planID string, sub adapter.Subscriber, idempotencyKey string) (string, error) {
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, planID, sub, idempotencyKey)
	}
	return "I-" + uuid.NewString(), nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, remoteSubscriptionID, reason string) error {
	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, remoteSubscriptionID, reason)
	}
	return nil
}

func (m *MockGateway) GetSubscription(ctx context.Context, remoteSubscriptionID string) (*adapter.SubscriptionDetail, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, remoteSubscriptionID)
	}
	return &adapter.SubscriptionDetail{ID: remoteSubscriptionID, Status: "ACTIVE"}, nil
}

func (m *MockGateway) VerifyWebhookSignature(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders, webhookID string) (string, error) {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(ctx, rawEvent, headers, webhookID)
	}
	return adapter.VerificationSuccess, nil
}

// =============================
// Repositories
// =============================

// MockPaymentRepo is an in-memory PaymentRepository with overridable hooks.
type MockPaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Payment

	CreateFunc       func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.RemoteTransactionID != nil {
		for _, existing := range m.store {
			if existing.RemoteTransactionID != nil && *existing.RemoteTransactionID == *p.RemoteTransactionID {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindByRemoteOrderID(ctx context.Context, tx repository.Tx, remoteOrderID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.RemoteOrderID != nil && *p.RemoteOrderID == remoteOrderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus) (bool, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = to
	return true, nil
}

// All reads a copy of every stored payment.
func (m *MockPaymentRepo) All() []*model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Payment, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// MockSubscriptionRepo is an in-memory SubscriptionRepository with hooks.
type MockSubscriptionRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription

	CreateFunc      func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	ApplyStatusFunc func(ctx context.Context, tx repository.Tx, id string, change repository.StatusChange) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *MockSubscriptionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindByRemoteID(ctx context.Context, tx repository.Tx, remoteSubscriptionID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.RemoteSubscriptionID != nil && *s.RemoteSubscriptionID == remoteSubscriptionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) ApplyStatus(ctx context.Context, tx repository.Tx, id string, change repository.StatusChange) (bool, error) {
	if m.ApplyStatusFunc != nil {
		return m.ApplyStatusFunc(ctx, tx, id, change)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return false, nil
	}
	match := false
	for _, from := range change.From {
		if s.Status == from {
			match = true
			break
		}
	}
	if !match {
		return false, nil
	}
	s.Status = change.To
	if change.EndDate != nil {
		s.EndDate = change.EndDate
	}
	if change.LastPaymentDate != nil {
		s.LastPaymentDate = change.LastPaymentDate
	}
	return true, nil
}

// Get returns the stored row (no copy) for assertions.
func (m *MockSubscriptionRepo) Get(id string) *model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id]
}

// MockUserRepo resolves users from an in-memory map.
type MockUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User

	FindByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

func (m *MockUserRepo) Add(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
}

func (m *MockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// =============================
// Transaction manager and event cache
// =============================

// MockTxManager runs the callback immediately with a nil executor.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// MockEventCache remembers event ids in memory.
type MockEventCache struct {
	mu   sync.Mutex
	seen map[string]bool

	MarkProcessedFunc func(ctx context.Context, eventID string) (bool, error)
	ForgetFunc        func(ctx context.Context, eventID string) error
}

var _ repository.WebhookEventCache = (*MockEventCache)(nil)

func NewMockEventCache() *MockEventCache {
	return &MockEventCache{seen: make(map[string]bool)}
}

func (m *MockEventCache) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *MockEventCache) Forget(ctx context.Context, eventID string) error {
	if m.ForgetFunc != nil {
		return m.ForgetFunc(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, eventID)
	return nil
}

// =============================
// Notifier
// =============================

// MockNotifier counts deliveries per notification kind.
type MockNotifier struct {
	mu     sync.Mutex
	Calls  map[string]int
	Emails []string

	FailWith error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Calls: make(map[string]int)}
}

func (m *MockNotifier) record(kind, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[kind]++
	m.Emails = append(m.Emails, email)
	return m.FailWith
}

func (m *MockNotifier) Count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[kind]
}

func (m *MockNotifier) SubscriptionCreated(_ context.Context, email string) error {
	return m.record("created", email)
}
func (m *MockNotifier) SubscriptionActivated(_ context.Context, email string) error {
	return m.record("activated", email)
}
func (m *MockNotifier) SubscriptionUpdated(_ context.Context, email string) error {
	return m.record("updated", email)
}
func (m *MockNotifier) SubscriptionCancelled(_ context.Context, email string) error {
	return m.record("cancelled", email)
}
func (m *MockNotifier) SubscriptionSuspended(_ context.Context, email string) error {
	return m.record("suspended", email)
}
func (m *MockNotifier) PaymentFailed(_ context.Context, email string) error {
	return m.record("payment_failed", email)
}
func (m *MockNotifier) PaymentCompleted(_ context.Context, email string) error {
	return m.record("payment_completed", email)
}
func (m *MockNotifier) SubscriptionFailed(_ context.Context, email, errorMessage string) error {
	return m.record("subscription_failed", email)
}
