package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("finance-entry-bfa/client")

const ledgerService = "ledger"

// LedgerClient talks to the ledger REST API. It implements port.LedgerStore.
type LedgerClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewLedgerClient creates a new LedgerClient.
func NewLedgerClient(
	httpClient *http.Client,
	baseURL string,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerClient {
	return &LedgerClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// -- wire types --

type wireTransaction struct {
	ID          int64                  `json:"id"`
	Type        domain.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	CategoryID  int64                  `json:"categoryId"`
	WalletID    int64                  `json:"walletId"`
	Description *string                `json:"description"`
	Date        string                 `json:"date"`
	CreatedAt   *time.Time             `json:"createdAt,omitempty"`
}

type wirePayload struct {
	Type        domain.TransactionType `json:"type"`
	Amount      json.Number            `json:"amount"`
	CategoryID  int64                  `json:"categoryId"`
	WalletID    int64                  `json:"walletId"`
	Description *string                `json:"description"`
	Date        string                 `json:"date"`
}

type wireError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// apiError is a non-2xx answer from the ledger.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger API returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ledger API returned status %d", e.Status)
}

func (w wireTransaction) toDomain() (domain.Transaction, error) {
	date, err := parseLedgerDate(w.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %d: %w", w.ID, err)
	}
	tx := domain.Transaction{
		ID:         w.ID,
		Type:       w.Type,
		Amount:     w.Amount,
		CategoryID: w.CategoryID,
		WalletID:   w.WalletID,
		Date:       date,
	}
	if w.Description != nil {
		tx.Description = *w.Description
	}
	if w.CreatedAt != nil {
		tx.CreatedAt = *w.CreatedAt
	}
	return tx, nil
}

// parseLedgerDate accepts calendar days and full timestamps, keeping only the day.
func parseLedgerDate(s string) (time.Time, error) {
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func toWirePayload(p *domain.TransactionPayload) wirePayload {
	return wirePayload{
		Type:        p.Type,
		Amount:      json.Number(p.Amount.String()),
		CategoryID:  p.CategoryID,
		WalletID:    p.WalletID,
		Description: p.Description,
		Date:        p.Date,
	}
}

// -- reads --

// ListCategories fetches every category.
func (c *LedgerClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.ListCategories")
	defer span.End()

	var categories []domain.Category
	if err := c.read(ctx, "/v1/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListWallets fetches every wallet with its balance.
func (c *LedgerClient) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.ListWallets")
	defer span.End()

	var wallets []domain.Wallet
	if err := c.read(ctx, "/v1/wallets", &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// ListTransactions fetches every transaction.
func (c *LedgerClient) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.ListTransactions")
	defer span.End()

	var wire []wireTransaction
	if err := c.read(ctx, "/v1/transactions", &wire); err != nil {
		return nil, err
	}

	out := make([]domain.Transaction, 0, len(wire))
	for _, w := range wire {
		tx, err := w.toDomain()
		if err != nil {
			return nil, &domain.ErrExternalService{Service: ledgerService, Err: err}
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *LedgerClient) read(ctx context.Context, path string, out any) error {
	err := c.execute(ctx, http.MethodGet, path, nil, out, c.cfg)
	if err == nil {
		return nil
	}
	c.metrics.IncrExternalError(ledgerService)

	var api *apiError
	if errors.As(err, &api) && api.Status == http.StatusNotFound {
		return &domain.ErrNotFound{Resource: strings.TrimPrefix(path, "/v1/"), ID: path}
	}
	return &domain.ErrExternalService{Service: ledgerService, Err: err}
}

// -- writes --

// CreateTransaction posts a new transaction. Creates are not retried so a
// lost response cannot produce a duplicate record.
func (c *LedgerClient) CreateTransaction(ctx context.Context, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.CreateTransaction")
	defer span.End()

	noRetry := c.cfg
	noRetry.MaxRetries = 0

	var wire wireTransaction
	if err := c.execute(ctx, http.MethodPost, "/v1/transactions", toWirePayload(payload), &wire, noRetry); err != nil {
		return nil, c.writeError("create transaction", err)
	}
	return c.decodeWritten("create transaction", wire)
}

// UpdateTransaction replaces the transaction with the given id.
func (c *LedgerClient) UpdateTransaction(ctx context.Context, id int64, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction.id", id))

	var wire wireTransaction
	path := "/v1/transactions/" + strconv.FormatInt(id, 10)
	if err := c.execute(ctx, http.MethodPut, path, toWirePayload(payload), &wire, c.cfg); err != nil {
		return nil, c.writeError("update transaction", err)
	}
	return c.decodeWritten("update transaction", wire)
}

// DeleteTransaction removes the transaction with the given id.
func (c *LedgerClient) DeleteTransaction(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "LedgerClient.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction.id", id))

	path := "/v1/transactions/" + strconv.FormatInt(id, 10)
	if err := c.execute(ctx, http.MethodDelete, path, nil, nil, c.cfg); err != nil {
		return c.writeError("delete transaction", err)
	}
	return nil
}

func (c *LedgerClient) decodeWritten(operation string, wire wireTransaction) (*domain.Transaction, error) {
	tx, err := wire.toDomain()
	if err != nil {
		return nil, &domain.ErrPersistence{Operation: operation, Err: err}
	}
	return &tx, nil
}

// writeError maps a failed write to *domain.ErrPersistence, keeping the
// server's message for the user when the ledger sent one.
func (c *LedgerClient) writeError(operation string, err error) error {
	c.metrics.IncrExternalError(ledgerService)
	c.logger.Warn("ledger write failed", zap.String("operation", operation), zap.Error(err))

	pe := &domain.ErrPersistence{Operation: operation, Err: err}
	var api *apiError
	switch {
	case errors.As(err, &api):
		pe.Message = api.Message
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		pe.Err = &domain.ErrCircuitOpen{Service: ledgerService}
	}
	return pe
}

// -- transport --

// execute runs one request through the circuit breaker and retry loop.
// 4xx answers are permanent and are neither retried nor counted against the breaker.
func (c *LedgerClient) execute(ctx context.Context, method, path string, body, out any, cfg resilience.Config) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequestDuration("ledger_"+strings.ToLower(method), time.Since(start))
	}()

	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, cfg, func() error {
			return c.roundTrip(ctx, method, path, encoded, out)
		})
	})
	return err
}

func (c *LedgerClient) roundTrip(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		api := &apiError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return resilience.Permanent(api)
		}
		return api
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var we wireError
	if json.Unmarshal(raw, &we) == nil {
		if we.Message != "" {
			return we.Message
		}
		return we.Error
	}
	return ""
}
