package service

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/port"
)

// Wizard timing defaults.
const (
	DefaultSuccessDelay  = 1500 * time.Millisecond
	DefaultExitDelay     = 300 * time.Millisecond
	DefaultSubmitTimeout = 30 * time.Second
)

// WizardConfig tunes session timing.
type WizardConfig struct {
	SuccessDelay  time.Duration // how long the success state is shown
	ExitDelay     time.Duration // exit transition before the close callback
	SubmitTimeout time.Duration // bound on the gateway call
	Clock         func() time.Time
}

// Wizard opens entry sessions bound to a persistence gateway and a data context.
type Wizard struct {
	gateway port.PersistenceGateway
	data    port.DataContext
	toasts  *NotificationQueue
	metrics *observability.Metrics
	logger  *zap.Logger
	cfg     WizardConfig
}

// NewWizard creates a Wizard. Zero durations in cfg fall back to the defaults.
func NewWizard(
	gateway port.PersistenceGateway,
	data port.DataContext,
	toasts *NotificationQueue,
	metrics *observability.Metrics,
	logger *zap.Logger,
	cfg WizardConfig,
) *Wizard {
	if cfg.SuccessDelay <= 0 {
		cfg.SuccessDelay = DefaultSuccessDelay
	}
	if cfg.ExitDelay <= 0 {
		cfg.ExitDelay = DefaultExitDelay
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Wizard{
		gateway: gateway,
		data:    data,
		toasts:  toasts,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// OpenOptions selects what a new session captures.
type OpenOptions struct {
	Mode    domain.WizardMode
	Type    domain.TransactionType // initial type in create mode; expense when empty
	Source  *domain.Transaction    // required in edit mode
	OnClose func()                 // invoked at most once when the session ends
}

// Session is one run of the entry wizard. All methods are safe for concurrent use.
type Session struct {
	id     string
	wizard *Wizard

	mu          sync.Mutex
	state       domain.SessionState
	draft       domain.Draft
	lookups     domain.Lookups
	fieldErrors map[domain.Field]string
	exiting     bool
	closed      bool
	autoClose   *time.Timer
	onClose     func()
}

// Open starts a session. In edit mode the draft is seeded from opts.Source and
// the session starts on the confirm step.
func (w *Wizard) Open(opts OpenOptions) (*Session, error) {
	s := &Session{
		id:      uuid.NewString(),
		wizard:  w,
		lookups: w.data.Lookups().Clone(),
		onClose: opts.OnClose,
	}

	switch opts.Mode {
	case domain.WizardModeEdit:
		if opts.Source == nil {
			return nil, &domain.ErrValidation{Field: "transaction_id", Message: "edit mode requires a source transaction"}
		}
		src := opts.Source
		id := src.ID
		categoryID, walletID := src.CategoryID, src.WalletID
		s.state = domain.SessionState{
			Step:                domain.StepConfirm,
			Mode:                domain.WizardModeEdit,
			SourceTransactionID: &id,
			Outcome:             domain.OutcomeIdle,
		}
		s.draft = domain.Draft{
			Type:        src.Type,
			CategoryID:  &categoryID,
			WalletID:    &walletID,
			Amount:      FormatAmount(src.Amount),
			Description: src.Description,
			Date:        startOfDay(src.Date),
		}
	case domain.WizardModeCreate, "":
		t := opts.Type
		if t == "" {
			t = domain.TransactionTypeExpense
		}
		if !t.Valid() {
			return nil, &domain.ErrValidation{Field: string(domain.FieldType), Message: "must be income or expense"}
		}
		s.state = domain.SessionState{
			Step:    domain.StepType,
			Mode:    domain.WizardModeCreate,
			Outcome: domain.OutcomeIdle,
		}
		s.draft = domain.Draft{
			Type: t,
			Date: startOfDay(w.cfg.Clock()),
		}
	default:
		return nil, &domain.ErrValidation{Field: "mode", Message: "must be create or edit"}
	}

	s.draft = ResolveDefaults(s.draft, s.lookups)

	w.logger.Info("wizard session opened",
		zap.String("session_id", s.id),
		zap.String("mode", string(s.state.Mode)),
	)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns a consistent copy of the session.
func (s *Session) Snapshot() domain.WizardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.WizardSnapshot {
	snap := domain.WizardSnapshot{
		ID:         s.id,
		State:      s.state,
		Draft:      s.draft,
		CanAdvance: s.canAdvanceLocked(),
		Exiting:    s.exiting,
		Closed:     s.closed,
	}
	if s.state.SourceTransactionID != nil {
		id := *s.state.SourceTransactionID
		snap.State.SourceTransactionID = &id
	}
	if s.draft.CategoryID != nil {
		id := *s.draft.CategoryID
		snap.Draft.CategoryID = &id
	}
	if s.draft.WalletID != nil {
		id := *s.draft.WalletID
		snap.Draft.WalletID = &id
	}
	if len(s.fieldErrors) > 0 {
		snap.FieldErrors = make(map[domain.Field]string, len(s.fieldErrors))
		for f, msg := range s.fieldErrors {
			snap.FieldErrors[f] = msg
		}
	}
	return snap
}

// CanAdvance reports whether Advance would move forward.
func (s *Session) CanAdvance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAdvanceLocked()
}

func (s *Session) canAdvanceLocked() bool {
	switch s.state.Step {
	case domain.StepAmount:
		return strings.TrimSpace(s.draft.Amount) != ""
	case domain.StepCategory:
		return s.draft.CategoryID != nil
	case domain.StepWallet:
		return s.draft.WalletID != nil
	case domain.StepConfirm:
		return false
	default:
		return true
	}
}

// Advance moves one step forward. It reports false, leaving the step unchanged,
// on the confirm step or while the current step's required field is unset.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return false, err
	}
	if !s.canAdvanceLocked() {
		return false, nil
	}
	s.state.Step++
	return true, nil
}

// Retreat moves one step back. It reports false on the first step.
func (s *Session) Retreat() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return false, err
	}
	if s.state.Step <= domain.StepType {
		return false, nil
	}
	s.state.Step--
	return true, nil
}

// SetField parses raw and applies it to the named draft field.
// An empty raw value clears the category or wallet selection.
func (s *Session) SetField(field domain.Field, raw string) error {
	switch field {
	case domain.FieldType:
		return s.SetType(domain.TransactionType(raw))
	case domain.FieldAmount:
		return s.SetAmount(raw)
	case domain.FieldCategory:
		id, err := parseOptionalID(field, raw)
		if err != nil {
			return err
		}
		return s.SetCategory(id)
	case domain.FieldWallet:
		id, err := parseOptionalID(field, raw)
		if err != nil {
			return err
		}
		return s.SetWallet(id)
	case domain.FieldDescription:
		return s.SetDescription(raw)
	case domain.FieldDate:
		d, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(raw), s.wizard.cfg.Clock().Location())
		if err != nil {
			return &domain.ErrValidation{Field: string(field), Message: "must be a YYYY-MM-DD date"}
		}
		return s.SetDate(d)
	default:
		return &domain.ErrValidation{Field: string(field), Message: "unknown field"}
	}
}

// SetType changes the transaction type. A selected category of the other type
// is cleared and the defaults are re-derived.
func (s *Session) SetType(t domain.TransactionType) error {
	if !t.Valid() {
		return &domain.ErrValidation{Field: string(domain.FieldType), Message: "must be income or expense"}
	}
	return s.edit(domain.FieldType, func() error {
		s.draft.Type = t
		if s.draft.CategoryID != nil {
			if c, ok := s.lookups.CategoryByID(*s.draft.CategoryID); !ok || c.Type != t {
				s.draft.CategoryID = nil
			}
		}
		s.draft = ResolveDefaults(s.draft, s.lookups)
		return nil
	})
}

// SetAmount applies raw input through the amount filter. Rejected keystrokes
// leave the amount unchanged without error.
func (s *Session) SetAmount(raw string) error {
	return s.edit(domain.FieldAmount, func() error {
		s.draft.Amount = FilterAmountInput(s.draft.Amount, raw)
		return nil
	})
}

// SetCategory selects a category of the draft's type. nil clears the selection.
func (s *Session) SetCategory(id *int64) error {
	return s.edit(domain.FieldCategory, func() error {
		if id == nil {
			s.draft.CategoryID = nil
			return nil
		}
		c, ok := s.lookups.CategoryByID(*id)
		if !ok {
			return &domain.ErrValidation{Field: string(domain.FieldCategory), Message: "unknown category"}
		}
		if c.Type != s.draft.Type {
			return &domain.ErrValidation{Field: string(domain.FieldCategory), Message: "category does not match the transaction type"}
		}
		v := *id
		s.draft.CategoryID = &v
		return nil
	})
}

// SetWallet selects a wallet. nil clears the selection.
func (s *Session) SetWallet(id *int64) error {
	return s.edit(domain.FieldWallet, func() error {
		if id == nil {
			s.draft.WalletID = nil
			return nil
		}
		if _, ok := s.lookups.WalletByID(*id); !ok {
			return &domain.ErrValidation{Field: string(domain.FieldWallet), Message: "unknown wallet"}
		}
		v := *id
		s.draft.WalletID = &v
		return nil
	})
}

// SetDescription replaces the description. Text over MaxDescriptionLength
// characters is rejected and the previous value kept.
func (s *Session) SetDescription(text string) error {
	return s.edit(domain.FieldDescription, func() error {
		if utf8.RuneCountInString(text) > MaxDescriptionLength {
			return &domain.ErrValidation{Field: string(domain.FieldDescription), Message: "must be 200 characters or fewer"}
		}
		s.draft.Description = text
		return nil
	})
}

// SetDate sets the calendar day of the transaction.
func (s *Session) SetDate(d time.Time) error {
	return s.edit(domain.FieldDate, func() error {
		s.draft.Date = startOfDay(d)
		return nil
	})
}

// OnLookupsChanged replaces the session's view of categories and wallets
// and re-derives defaults against it.
func (s *Session) OnLookupsChanged(lookups domain.Lookups) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lookups = lookups.Clone()
	s.draft = ResolveDefaults(s.draft, s.lookups)
}

// Close ends the session, cancelling any pending auto-close. The close
// callback runs at most once no matter how the session ends.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.autoClose != nil {
		s.autoClose.Stop()
		s.autoClose = nil
	}
	onClose := s.onClose
	s.mu.Unlock()

	s.wizard.logger.Debug("wizard session closed", zap.String("session_id", s.id))
	if onClose != nil {
		onClose()
	}
}

// edit runs apply under the lock and clears the field's inline error on success.
func (s *Session) edit(field domain.Field, apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}
	delete(s.fieldErrors, field)
	return nil
}

func (s *Session) mutableLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state.Submitting {
		return domain.ErrSubmitInFlight
	}
	if s.state.Outcome == domain.OutcomeSuccess {
		return &domain.ErrConflict{Message: "transaction already saved"}
	}
	return nil
}

func parseOptionalID(field domain.Field, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &domain.ErrValidation{Field: string(field), Message: "must be a numeric id"}
	}
	return &id, nil
}
