package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

// ============================================================
// Transactions: /v1/transactions
// ============================================================

// listTransactionsHandler serves the transaction table.
//
//	?q=       case-insensitive search
//	?type=    all | income | expense
//	?sort=    date | amount, with ?order= asc | desc
//	?toggle=  date | amount, applies the header-click rule to sort/order
//	?page=    1-based, clamped into range
func listTransactionsHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		q := r.URL.Query()

		facet := service.TypeFacet(q.Get("type"))
		switch facet {
		case "", service.FacetAll, service.FacetIncome, service.FacetExpense:
		default:
			writeError(w, http.StatusBadRequest, "type must be all, income or expense")
			return
		}

		sortState, ok := parseSort(q.Get("sort"), q.Get("order"))
		if !ok {
			writeError(w, http.StatusBadRequest, "sort must be date or amount, order asc or desc")
			return
		}
		if toggle := service.SortKey(q.Get("toggle")); toggle != "" {
			if toggle != service.SortByDate && toggle != service.SortByAmount {
				writeError(w, http.StatusBadRequest, "toggle must be date or amount")
				return
			}
			sortState = sortState.Toggle(toggle)
		}

		snap, err := svc.Catalog.Snapshot(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page := service.QueryTransactions(snap.Transactions, snap.Lookups, service.TransactionQuery{
			Search:   q.Get("q"),
			Type:     facet,
			Sort:     sortState,
			Page:     parsePage(r),
			PageSize: svc.PageSize,
		})
		span.SetAttributes(attribute.Int("transactions.total", page.Total))

		writeJSON(w, http.StatusOK, page)
	}
}

func parseSort(key, order string) (service.SortState, bool) {
	s := service.DefaultSort
	switch service.SortKey(key) {
	case "":
	case service.SortByDate, service.SortByAmount:
		s.Key = service.SortKey(key)
	default:
		return s, false
	}
	switch service.SortDirection(order) {
	case "":
	case service.SortAsc, service.SortDesc:
		s.Direction = service.SortDirection(order)
	default:
		return s, false
	}
	return s, true
}

// deleteTransactionHandler queues a delete confirmation and returns 202.
// The delete runs after the user answers through /v1/confirmations/current;
// the result is reported as a toast.
func deleteTransactionHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionID}")
		defer span.End()

		id, ok := parseID(chi.URLParam(r, "transactionID"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}
		span.SetAttributes(attribute.Int64("transaction.id", id))

		tx, err := svc.Catalog.Transaction(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		label := tx.Description
		if label == "" {
			label = fmt.Sprintf("transaction #%d", tx.ID)
		}

		bg := context.WithoutCancel(ctx)
		go func() {
			outcome, err := svc.Confirmations.ConfirmAndRun(bg, func(ctx context.Context) error {
				if err := svc.Gateway.DeleteTransaction(ctx, id); err != nil {
					return err
				}
				// The delete already happened; a stale list is not a failed delete.
				if err := svc.Catalog.RefreshAfterMutation(ctx); err != nil {
					logger.Warn("refresh after delete failed",
						zap.Int64("transaction_id", id),
						zap.Error(err),
					)
				}
				return nil
			}, label)
			logger.Info("delete confirmation finished",
				zap.Int64("transaction_id", id),
				zap.String("outcome", string(outcome)),
				zap.Error(err),
			)
		}()

		writeJSON(w, http.StatusAccepted, domain.SuccessResponse{
			Message: "delete awaiting confirmation",
			ID:      fmt.Sprintf("%d", id),
		})
	}
}

// ============================================================
// Lookups: /v1/categories, /v1/wallets
// ============================================================

func listCategoriesHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Catalog.Snapshot(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txType := domain.TransactionType(r.URL.Query().Get("type"))
		if txType == "" {
			writeJSON(w, http.StatusOK, snap.Lookups.Categories)
			return
		}
		if !txType.Valid() {
			writeError(w, http.StatusBadRequest, "type must be income or expense")
			return
		}
		writeJSON(w, http.StatusOK, snap.Lookups.CategoriesOfType(txType))
	}
}

func listWalletsHandler(svc *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Catalog.Snapshot(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap.Lookups.Wallets)
	}
}
