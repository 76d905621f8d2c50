// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
)

// PersistenceGateway writes transactions to the remote ledger.
// Failures are reported as *domain.ErrPersistence.
type PersistenceGateway interface {
	CreateTransaction(ctx context.Context, payload *domain.TransactionPayload) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, payload *domain.TransactionPayload) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// LedgerReader reads the lists the data context exposes.
type LedgerReader interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// LedgerStore is the full ledger backend: the HTTP client or the in-memory store.
type LedgerStore interface {
	PersistenceGateway
	LedgerReader
}

// DataContext supplies read-only lookups and the post-mutation refresh hook.
type DataContext interface {
	Lookups() domain.Lookups
	RefreshAfterMutation(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
