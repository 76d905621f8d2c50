package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/cache"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

var testNow = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func ptr(v int64) *int64 { return &v }

func testLookups() domain.Lookups {
	return domain.Lookups{
		Categories: []domain.Category{
			{ID: 1, Name: "Salary", Type: domain.TransactionTypeIncome},
			{ID: 2, Name: "Freelance", Type: domain.TransactionTypeIncome},
			{ID: 3, Name: "Groceries", Type: domain.TransactionTypeExpense},
			{ID: 4, Name: "Rent", Type: domain.TransactionTypeExpense},
		},
		Wallets: []domain.Wallet{
			{ID: 10, Name: "Checking", Type: "bank", Balance: decimal.RequireFromString("1500.00")},
			{ID: 11, Name: "Cash", Type: "cash", Balance: decimal.RequireFromString("80.00")},
		},
	}
}

// -- fakes --

// fakeReader serves the ledger lists and counts fetches.
type fakeReader struct {
	mu           sync.Mutex
	lookups      domain.Lookups
	transactions []domain.Transaction
	err          error
	fetches      int
}

func newFakeReader() *fakeReader {
	return &fakeReader{lookups: testLookups()}
}

func (f *fakeReader) ListCategories(_ context.Context) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Category(nil), f.lookups.Categories...), nil
}

func (f *fakeReader) ListWallets(_ context.Context) ([]domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Wallet(nil), f.lookups.Wallets...), nil
}

func (f *fakeReader) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Transaction(nil), f.transactions...), nil
}

func (f *fakeReader) set(fn func(f *fakeReader)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeReader) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// mockGateway is a testify mock of port.PersistenceGateway.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateTransaction(ctx context.Context, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	args := m.Called(ctx, payload)
	tx, _ := args.Get(0).(*domain.Transaction)
	return tx, args.Error(1)
}

func (m *mockGateway) UpdateTransaction(ctx context.Context, id int64, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	args := m.Called(ctx, id, payload)
	tx, _ := args.Get(0).(*domain.Transaction)
	return tx, args.Error(1)
}

func (m *mockGateway) DeleteTransaction(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// -- fixture --

type wizardFixture struct {
	reader  *fakeReader
	gateway *mockGateway
	catalog *service.Catalog
	toasts  *service.NotificationQueue
	wizard  *service.Wizard
	metrics *observability.Metrics
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	reader := newFakeReader()
	gateway := &mockGateway{}

	c := cache.New[*service.CatalogSnapshot](time.Minute)
	t.Cleanup(c.Close)

	catalog := service.NewCatalog(reader, c, metrics, logger)
	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)

	toasts := service.NewNotificationQueue(service.NotificationConfig{
		Duration: time.Minute,
	}, metrics, logger)
	t.Cleanup(toasts.Close)

	wizard := service.NewWizard(gateway, catalog, toasts, metrics, logger, service.WizardConfig{
		SuccessDelay:  20 * time.Millisecond,
		ExitDelay:     10 * time.Millisecond,
		SubmitTimeout: time.Second,
		Clock:         fixedClock,
	})

	return &wizardFixture{
		reader:  reader,
		gateway: gateway,
		catalog: catalog,
		toasts:  toasts,
		wizard:  wizard,
		metrics: metrics,
	}
}

// openReadyExpense opens a create session that has walked to the confirm step
// with a complete, valid expense draft.
func (f *wizardFixture) openReadyExpense(t *testing.T, onClose func()) *service.Session {
	t.Helper()

	s, err := f.wizard.Open(service.OpenOptions{
		Mode:    domain.WizardModeCreate,
		Type:    domain.TransactionTypeExpense,
		OnClose: onClose,
	})
	require.NoError(t, err)

	advance(t, s)
	require.NoError(t, s.SetAmount("42.50"))
	for i := 0; i < 4; i++ {
		advance(t, s)
	}
	require.Equal(t, domain.StepConfirm, s.Snapshot().State.Step)
	return s
}

func advance(t *testing.T, s *service.Session) {
	t.Helper()
	ok, err := s.Advance()
	require.NoError(t, err)
	require.True(t, ok, "expected advance from step %s", s.Snapshot().State.Step)
}

func zapNop() *zap.Logger { return zap.NewNop() }
