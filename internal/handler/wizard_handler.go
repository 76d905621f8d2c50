package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

// ============================================================
// Entry wizard: /v1/wizard/sessions
// ============================================================

type openSessionRequest struct {
	Mode          domain.WizardMode      `json:"mode"`
	Type          domain.TransactionType `json:"type"`
	TransactionID *int64                 `json:"transaction_id"`
}

type setFieldRequest struct {
	Name  domain.Field `json:"name"`
	Value string       `json:"value"`
}

type moveResponse struct {
	Moved   bool                  `json:"moved"`
	Session domain.WizardSnapshot `json:"session"`
}

type submitResponse struct {
	Transaction *domain.Transaction   `json:"transaction"`
	Session     domain.WizardSnapshot `json:"session"`
}

func openSessionHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/wizard/sessions")
		defer span.End()

		var req openSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s, err := svc.Sessions.Open(ctx, req.Mode, req.Type, req.TransactionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("session.id", s.ID()))
		logger.Debug("wizard session requested",
			zap.String("session_id", s.ID()),
			zap.String("subject", SubjectFromContext(ctx)),
		)

		writeJSON(w, http.StatusCreated, s.Snapshot())
	}
}

// withSession resolves {sessionID} before calling fn.
func withSession(svc *Services, logger *zap.Logger, fn func(w http.ResponseWriter, r *http.Request, s *service.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.Sessions.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		fn(w, r, s)
	}
}

func getSessionHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return withSession(svc, logger, func(w http.ResponseWriter, _ *http.Request, s *service.Session) {
		writeJSON(w, http.StatusOK, s.Snapshot())
	})
}

func closeSessionHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return withSession(svc, logger, func(w http.ResponseWriter, _ *http.Request, s *service.Session) {
		s.Close()
		w.WriteHeader(http.StatusNoContent)
	})
}

func advanceHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return withSession(svc, logger, func(w http.ResponseWriter, _ *http.Request, s *service.Session) {
		moved, err := s.Advance()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, moveResponse{Moved: moved, Session: s.Snapshot()})
	})
}

func retreatHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return withSession(svc, logger, func(w http.ResponseWriter, _ *http.Request, s *service.Session) {
		moved, err := s.Retreat()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, moveResponse{Moved: moved, Session: s.Snapshot()})
	})
}

func setFieldHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return withSession(svc, logger, func(w http.ResponseWriter, r *http.Request, s *service.Session) {
		var req setFieldRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.SetField(req.Name, req.Value); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})
}

func submitHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/wizard/sessions/{sessionID}/submit")
		defer span.End()

		id := chi.URLParam(r, "sessionID")
		span.SetAttributes(attribute.String("session.id", id))

		s, err := svc.Sessions.Get(id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.Sessions.Submit(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse{Transaction: tx, Session: s.Snapshot()})
	}
}
