package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
)

var tracer = otel.Tracer("finance-entry-bfa/service")

const genericSaveFailure = "Failed to save transaction. Please try again."

// Submit validates the draft and persists it. It is only accepted on the
// confirm step; earlier steps get *domain.ErrConflict.
//
// Field violations are stored on the session and returned as
// *domain.ErrInvalidDraft without contacting the gateway. A category or wallet
// that no longer resolves against the data context's current lookups is
// reported as *domain.ErrStaleReference and a gateway failure as
// *domain.ErrPersistence; both also raise an error toast and leave the
// session open for another attempt. On success the data context is
// refreshed and the session closes itself after the success and exit delays.
func (s *Session) Submit(ctx context.Context) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Session.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	start := time.Now()
	w := s.wizard
	lookups := w.data.Lookups()

	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.state.Step != domain.StepConfirm {
		s.mu.Unlock()
		return nil, &domain.ErrConflict{Message: "submit is only available on the confirm step"}
	}
	draft := s.draft
	mode := s.state.Mode
	var sourceID int64
	if s.state.SourceTransactionID != nil {
		sourceID = *s.state.SourceTransactionID
	}

	if errs := ValidateDraft(draft, w.cfg.Clock()); len(errs) > 0 {
		s.fieldErrors = errs
		s.mu.Unlock()
		w.metrics.IncrSubmission(observability.SubmitInvalid)
		fields := make(map[domain.Field]string, len(errs))
		for f, msg := range errs {
			fields[f] = msg
		}
		return nil, &domain.ErrInvalidDraft{Fields: fields}
	}
	s.fieldErrors = nil

	if stale := staleReference(draft, lookups); stale != nil {
		s.mu.Unlock()
		w.metrics.IncrSubmission(observability.SubmitStale)
		w.logger.Warn("draft references a missing lookup",
			zap.String("session_id", s.id),
			zap.String("resource", stale.Resource),
			zap.Int64("id", stale.ID),
		)
		w.toasts.Error(staleMessage(stale), WithTitle("Error"))
		return nil, stale
	}

	payload := buildPayload(draft)
	s.state.Submitting = true
	s.state.Outcome = domain.OutcomeIdle
	s.mu.Unlock()

	record, err := w.persist(ctx, mode, sourceID, payload)
	if err != nil {
		s.mu.Lock()
		s.state.Submitting = false
		s.state.Outcome = domain.OutcomeError
		s.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.metrics.IncrSubmission(observability.SubmitPersistence)
		w.metrics.RecordRequestDuration("submit", time.Since(start))
		w.logger.Error("failed to persist transaction",
			zap.String("session_id", s.id),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		w.toasts.Error(persistenceMessage(err), WithTitle("Error"))
		return nil, err
	}

	if err := w.data.RefreshAfterMutation(ctx); err != nil {
		w.logger.Warn("refresh after mutation failed",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	s.state.Submitting = false
	s.state.Outcome = domain.OutcomeSuccess
	if !s.closed {
		s.autoClose = time.AfterFunc(w.cfg.SuccessDelay, s.beginExit)
	}
	s.mu.Unlock()

	w.metrics.IncrSubmission(observability.SubmitSuccess)
	w.metrics.RecordRequestDuration("submit", time.Since(start))
	w.logger.Info("transaction saved",
		zap.String("session_id", s.id),
		zap.String("mode", string(mode)),
		zap.Int64("transaction_id", record.ID),
	)
	return record, nil
}

// beginExit runs after the success delay and schedules the close callback.
func (s *Session) beginExit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.exiting = true
	s.autoClose = time.AfterFunc(s.wizard.cfg.ExitDelay, s.Close)
}

func (w *Wizard) persist(ctx context.Context, mode domain.WizardMode, sourceID int64, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.SubmitTimeout)
	defer cancel()

	var (
		record    *domain.Transaction
		err       error
		operation = "create transaction"
	)
	if mode == domain.WizardModeEdit {
		operation = "update transaction"
		record, err = w.gateway.UpdateTransaction(ctx, sourceID, payload)
	} else {
		record, err = w.gateway.CreateTransaction(ctx, payload)
	}

	switch {
	case err == nil && record == nil:
		return nil, &domain.ErrPersistence{Operation: operation, Err: errors.New("empty response")}
	case err == nil:
		return record, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		return nil, &domain.ErrPersistence{Operation: operation, Err: &domain.ErrTimeout{Operation: operation}}
	}

	var pe *domain.ErrPersistence
	if errors.As(err, &pe) {
		return nil, err
	}
	return nil, &domain.ErrPersistence{Operation: operation, Err: err}
}

func staleReference(d domain.Draft, lookups domain.Lookups) *domain.ErrStaleReference {
	if c, ok := lookups.CategoryByID(*d.CategoryID); !ok || c.Type != d.Type {
		return &domain.ErrStaleReference{Resource: "category", ID: *d.CategoryID}
	}
	if _, ok := lookups.WalletByID(*d.WalletID); !ok {
		return &domain.ErrStaleReference{Resource: "wallet", ID: *d.WalletID}
	}
	return nil
}

func staleMessage(e *domain.ErrStaleReference) string {
	if e.Resource == "wallet" {
		return "Wallet not found"
	}
	return "Category not found"
}

// persistenceMessage prefers the server's text and falls back to a generic one.
func persistenceMessage(err error) string {
	var pe *domain.ErrPersistence
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return genericSaveFailure
}

// buildPayload converts a validated draft. An empty description is sent as null.
func buildPayload(d domain.Draft) *domain.TransactionPayload {
	amount, _ := ParseAmount(d.Amount)
	p := &domain.TransactionPayload{
		Type:       d.Type,
		Amount:     amount,
		CategoryID: *d.CategoryID,
		WalletID:   *d.WalletID,
		Date:       d.Date.Format(domain.DateLayout),
	}
	if d.Description != "" {
		desc := d.Description
		p.Description = &desc
	}
	return p
}
