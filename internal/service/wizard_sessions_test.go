package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

func newTestSessions(t *testing.T) (*service.WizardSessions, *wizardFixture) {
	t.Helper()
	f := newWizardFixture(t)
	f.reader.set(func(r *fakeReader) { r.transactions = sampleTransactions() })
	require.NoError(t, f.catalog.RefreshAfterMutation(context.Background()))

	m := service.NewWizardSessions(f.wizard, f.catalog, resilience.NewBulkhead(2), f.metrics, zap.NewNop())
	t.Cleanup(m.CloseAll)
	return m, f
}

func TestWizardSessions_OpenGetClose(t *testing.T) {
	m, f := newTestSessions(t)

	s, err := m.Open(context.Background(), domain.WizardModeCreate, domain.TransactionTypeIncome, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, int64(1), f.metrics.GetEntrySnapshot().OpenSessions)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Close(s.ID()))
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(s.ID())
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
	assert.ErrorAs(t, m.Close(s.ID()), &nf)
}

func TestWizardSessions_OpenEdit(t *testing.T) {
	m, _ := newTestSessions(t)

	s, err := m.Open(context.Background(), domain.WizardModeEdit, "", ptr(2))
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, domain.StepConfirm, snap.State.Step)
	assert.Equal(t, "54.9", snap.Draft.Amount)

	_, err = m.Open(context.Background(), domain.WizardModeEdit, "", ptr(999))
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)

	_, err = m.Open(context.Background(), domain.WizardModeEdit, "", nil)
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestWizardSessions_BroadcastsLookups(t *testing.T) {
	m, f := newTestSessions(t)

	s, err := m.Open(context.Background(), domain.WizardModeCreate, domain.TransactionTypeExpense, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetWallet(ptr(11)))

	f.reader.set(func(r *fakeReader) {
		r.lookups.Wallets = append(r.lookups.Wallets, domain.Wallet{ID: 12, Name: "Savings", Balance: decimal.Zero})
		r.lookups.Categories = r.lookups.Categories[:2]
	})
	require.NoError(t, f.catalog.RefreshAfterMutation(context.Background()))

	// Wallet 12 is now selectable because the session saw the new lookups.
	require.NoError(t, s.SetWallet(ptr(12)))
	require.NoError(t, s.SetType(domain.TransactionTypeIncome))
	assert.Equal(t, int64(1), *s.Snapshot().Draft.CategoryID)
}

func TestWizardSessions_SubmitReleasesAfterAutoClose(t *testing.T) {
	m, f := newTestSessions(t)

	s, err := m.Open(context.Background(), domain.WizardModeCreate, domain.TransactionTypeExpense, nil)
	require.NoError(t, err)
	advance(t, s)
	require.NoError(t, s.SetAmount("7.25"))
	for i := 0; i < 4; i++ {
		advance(t, s)
	}

	f.gateway.On("CreateTransaction", mock.Anything, mock.Anything).
		Return(&domain.Transaction{ID: 88}, nil).Once()

	tx, err := m.Submit(context.Background(), s.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(88), tx.ID)

	assert.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)

	_, err = m.Submit(context.Background(), s.ID())
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestWizardSessions_CloseAll(t *testing.T) {
	m, _ := newTestSessions(t)

	for i := 0; i < 3; i++ {
		_, err := m.Open(context.Background(), domain.WizardModeCreate, domain.TransactionTypeExpense, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, m.Count())

	m.CloseAll()
	assert.Equal(t, 0, m.Count())
}
