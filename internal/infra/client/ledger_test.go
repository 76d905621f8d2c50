package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/client"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) *client.LedgerClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	return client.NewLedgerClient(
		srv.Client(),
		srv.URL+"/",
		resilience.NewCircuitBreaker("ledger-test", logger),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		observability.NewMetrics(),
		logger,
	)
}

func TestLedgerClient_ListTransactions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "type": "expense", "amount": 12.5, "categoryId": 3, "walletId": 10, "description": "Coffee beans", "date": "2026-10-01"},
			{"id": 2, "type": "income", "amount": "3200.00", "categoryId": 1, "walletId": 10, "description": null, "date": "2026-10-02T09:15:00Z"}
		]`))
	}))

	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "Coffee beans", txs[0].Description)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, "", txs[1].Description)
	assert.Equal(t, time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC), txs[1].Date)
}

func TestLedgerClient_ListLookups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/categories", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 3, "name": "Groceries", "type": "expense"}]`))
	})
	mux.HandleFunc("/v1/wallets", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 10, "name": "Checking", "type": "bank", "balance": "1500.25"}]`))
	})
	c := newTestClient(t, mux)

	categories, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: 3, Name: "Groceries", Type: domain.TransactionTypeExpense}}, categories)

	wallets, err := c.ListWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Balance.Equal(decimal.RequireFromString("1500.25")))
}

func TestLedgerClient_ReadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	categories, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLedgerClient_ReadFailureIsExternal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListWallets(context.Background())
	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "ledger", ext.Service)
}

func TestLedgerClient_CreateSendsPayload(t *testing.T) {
	var got map[string]any
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 41, "type": "expense", "amount": 42.5, "categoryId": 3, "walletId": 10, "description": null, "date": "2026-10-18"}`))
	}))

	tx, err := c.CreateTransaction(context.Background(), &domain.TransactionPayload{
		Type:       domain.TransactionTypeExpense,
		Amount:     decimal.RequireFromString("42.50"),
		CategoryID: 3,
		WalletID:   10,
		Date:       "2026-10-18",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), tx.ID)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, "expense", got["type"])
	assert.Equal(t, 42.5, got["amount"])
	assert.Equal(t, float64(3), got["categoryId"])
	assert.Equal(t, float64(10), got["walletId"])
	assert.Nil(t, got["description"])
	assert.Contains(t, got, "description", "empty description is sent as null")
	assert.Equal(t, "2026-10-18", got["date"])
}

func TestLedgerClient_CreateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.CreateTransaction(context.Background(), &domain.TransactionPayload{Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1)})
	var pe *domain.ErrPersistence
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLedgerClient_WriteKeepsServerMessage(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/transactions/7", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Wallet is archived"}`))
	}))

	_, err := c.UpdateTransaction(context.Background(), 7, &domain.TransactionPayload{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(5)})
	var pe *domain.ErrPersistence
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Wallet is archived", pe.Message)
	assert.Equal(t, "update transaction", pe.Operation)
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestLedgerClient_Delete(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/transactions/12", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, c.DeleteTransaction(context.Background(), 12))
}

func TestLedgerClient_DeleteErrorMessageFromErrorField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "transaction is reconciled"}`))
	}))

	err := c.DeleteTransaction(context.Background(), 12)
	var pe *domain.ErrPersistence
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "transaction is reconciled", pe.Message)
}
