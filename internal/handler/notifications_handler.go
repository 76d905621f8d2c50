package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Toasts: /v1/toasts
// ============================================================

func listToastsHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Toasts.List())
	}
}

func dismissToastHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "toastID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid toast id")
			return
		}
		if !svc.Toasts.Dismiss(id) {
			writeError(w, http.StatusNotFound, "toast not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Confirmations: /v1/confirmations/current
// ============================================================

type resolveConfirmationRequest struct {
	ID        string `json:"id,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

func currentConfirmationHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := svc.Confirmations.Current()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

// resolveConfirmationHandler answers the dialog on screen. When the body
// names an id it must still be the head of the queue.
func resolveConfirmationHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveConfirmationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var err error
		if req.ID != "" {
			err = svc.Confirmations.Resolve(req.ID, req.Confirmed)
		} else {
			err = svc.Confirmations.ResolveCurrent(req.Confirmed)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
