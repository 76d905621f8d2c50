package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/port"
)

const catalogCacheKey = "catalog:snapshot"

// CatalogSnapshot is one consistent read of the ledger lists.
type CatalogSnapshot struct {
	Lookups      domain.Lookups
	Transactions []domain.Transaction
	FetchedAt    time.Time
}

// Catalog is the data context: it owns the category, wallet and transaction
// lists, refreshes them from the ledger and tells listeners when they change.
// The cache only decides freshness; the last good snapshot is always served.
type Catalog struct {
	store   port.LedgerReader
	cache   port.Cache[*CatalogSnapshot]
	metrics *observability.Metrics
	logger  *zap.Logger

	mu        sync.RWMutex
	current   *CatalogSnapshot
	listeners []func(domain.Lookups)
}

// NewCatalog creates a Catalog. Call Refresh once before serving.
func NewCatalog(store port.LedgerReader, cache port.Cache[*CatalogSnapshot], metrics *observability.Metrics, logger *zap.Logger) *Catalog {
	return &Catalog{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		current: &CatalogSnapshot{},
	}
}

// OnChange registers fn to receive the lookups after every refresh.
func (c *Catalog) OnChange(fn func(domain.Lookups)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Lookups returns the last fetched categories and wallets.
func (c *Catalog) Lookups() domain.Lookups {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Lookups.Clone()
}

// Snapshot returns fresh lists, refetching when the cached copy has expired.
// A failed refetch falls back to the last good snapshot when there is one.
func (c *Catalog) Snapshot(ctx context.Context) (*CatalogSnapshot, error) {
	if snap, ok := c.cache.Get(catalogCacheKey); ok {
		c.metrics.IncrCacheHit("catalog")
		return snap, nil
	}
	c.metrics.IncrCacheMiss("catalog")

	snap, err := c.Refresh(ctx)
	if err != nil {
		c.mu.RLock()
		last := c.current
		c.mu.RUnlock()
		if !last.FetchedAt.IsZero() {
			c.logger.Warn("serving stale catalog", zap.Error(err))
			return last, nil
		}
		return nil, err
	}
	return snap, nil
}

// Transaction finds a transaction by id in the current lists.
func (c *Catalog) Transaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Transactions {
		if snap.Transactions[i].ID == id {
			tx := snap.Transactions[i]
			return &tx, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: strconv.FormatInt(id, 10)}
}

// Refresh fetches the three lists in parallel and replaces the snapshot.
func (c *Catalog) Refresh(ctx context.Context) (*CatalogSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Catalog.Refresh")
	defer span.End()

	start := time.Now()
	var (
		categories   []domain.Category
		wallets      []domain.Wallet
		transactions []domain.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = c.store.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		wallets, err = c.store.ListWallets(gctx)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		transactions, err = c.store.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	snap := &CatalogSnapshot{
		Lookups:      domain.Lookups{Categories: categories, Wallets: wallets},
		Transactions: transactions,
		FetchedAt:    time.Now(),
	}
	c.cache.Set(catalogCacheKey, snap)

	c.mu.Lock()
	c.current = snap
	listeners := append([]func(domain.Lookups){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.Lookups.Clone())
	}

	c.metrics.RecordRequestDuration("catalog_refresh", time.Since(start))
	c.logger.Debug("catalog refreshed",
		zap.Int("categories", len(categories)),
		zap.Int("wallets", len(wallets)),
		zap.Int("transactions", len(transactions)),
	)
	return snap, nil
}

// RefreshAfterMutation drops the cached lists and refetches them.
func (c *Catalog) RefreshAfterMutation(ctx context.Context) error {
	c.cache.Delete(catalogCacheKey)
	_, err := c.Refresh(ctx)
	return err
}
