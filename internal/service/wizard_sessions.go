package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/resilience"
)

// WizardSessions tracks the open wizard sessions of the process, keeps their
// lookups current and bounds how many submits reach the ledger at once.
type WizardSessions struct {
	wizard   *Wizard
	catalog  *Catalog
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewWizardSessions creates the registry and subscribes it to catalog changes.
func NewWizardSessions(
	wizard *Wizard,
	catalog *Catalog,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *WizardSessions {
	m := &WizardSessions{
		wizard:   wizard,
		catalog:  catalog,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	catalog.OnChange(m.broadcastLookups)
	return m
}

// Open starts a session. Edit mode loads transactionID from the catalog.
func (m *WizardSessions) Open(ctx context.Context, mode domain.WizardMode, txType domain.TransactionType, transactionID *int64) (*Session, error) {
	opts := OpenOptions{Mode: mode, Type: txType}
	if mode == domain.WizardModeEdit {
		if transactionID == nil {
			return nil, &domain.ErrValidation{Field: "transaction_id", Message: "required in edit mode"}
		}
		tx, err := m.catalog.Transaction(ctx, *transactionID)
		if err != nil {
			return nil, err
		}
		opts.Source = tx
	}

	var id string
	opts.OnClose = func() { m.remove(id) }

	s, err := m.wizard.Open(opts)
	if err != nil {
		return nil, err
	}
	id = s.ID()

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetOpenSessions(n)
	return s, nil
}

// Get returns an open session.
func (m *WizardSessions) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "wizard session", ID: id}
	}
	return s, nil
}

// Submit runs the session's submit inside the bulkhead.
func (m *WizardSessions) Submit(ctx context.Context, id string) (*domain.Transaction, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if err := m.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "waiting for a submit slot"}
	}
	defer m.bulkhead.Release()

	return s.Submit(ctx)
}

// Close ends the session; it leaves the registry through its close callback.
func (m *WizardSessions) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

// CloseAll ends every open session.
func (m *WizardSessions) CloseAll() {
	m.mu.RLock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	for _, s := range open {
		s.Close()
	}
}

// Count returns the number of open sessions.
func (m *WizardSessions) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *WizardSessions) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetOpenSessions(n)
	m.logger.Debug("wizard session released", zap.String("session_id", id))
}

func (m *WizardSessions) broadcastLookups(lookups domain.Lookups) {
	m.mu.RLock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	for _, s := range open {
		s.OnLookupsChanged(lookups)
	}
}
