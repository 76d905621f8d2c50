// Package memstore is an in-process ledger used when no ledger API is
// configured. It is seeded from a YAML file and keeps wallet balances in step
// with the transactions written through it.
package memstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
)

// Seed is the YAML document loaded at startup.
type Seed struct {
	Categories   []domain.Category `yaml:"categories"`
	Wallets      []seedWallet      `yaml:"wallets"`
	Transactions []seedTransaction `yaml:"transactions"`
}

type seedWallet struct {
	ID      int64  `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Balance string `yaml:"balance"`
}

type seedTransaction struct {
	ID          int64                  `yaml:"id"`
	Type        domain.TransactionType `yaml:"type"`
	Amount      string                 `yaml:"amount"`
	CategoryID  int64                  `yaml:"category_id"`
	WalletID    int64                  `yaml:"wallet_id"`
	Description string                 `yaml:"description"`
	Date        string                 `yaml:"date"`
}

// DefaultSeed is used when no seed file is configured.
const DefaultSeed = `
categories:
  - {id: 1, name: Salary, type: income}
  - {id: 2, name: Freelance, type: income}
  - {id: 3, name: Groceries, type: expense}
  - {id: 4, name: Rent, type: expense}
  - {id: 5, name: Transport, type: expense}
wallets:
  - {id: 1, name: Checking, type: bank, balance: "0"}
  - {id: 2, name: Cash, type: cash, balance: "0"}
transactions: []
`

// LoadSeed reads and parses a seed file.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(raw)
}

// ParseSeed parses a YAML seed document.
func ParseSeed(raw []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// Store implements port.LedgerStore in memory.
type Store struct {
	mu           sync.RWMutex
	categories   []domain.Category
	wallets      []domain.Wallet
	transactions map[int64]domain.Transaction
	nextID       int64
	now          func() time.Time
	logger       *zap.Logger
}

// New builds a store from seed. Seeded transactions are taken as already
// reflected in the seeded wallet balances.
func New(seed *Seed, logger *zap.Logger) (*Store, error) {
	s := &Store{
		transactions: make(map[int64]domain.Transaction),
		now:          time.Now,
		logger:       logger,
	}

	for _, c := range seed.Categories {
		if !c.Type.Valid() {
			return nil, fmt.Errorf("category %d: invalid type %q", c.ID, c.Type)
		}
		s.categories = append(s.categories, c)
	}
	for _, w := range seed.Wallets {
		balance, err := parseSeedDecimal(w.Balance)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: %w", w.ID, err)
		}
		s.wallets = append(s.wallets, domain.Wallet{ID: w.ID, Name: w.Name, Type: w.Type, Balance: balance})
	}
	for _, t := range seed.Transactions {
		amount, err := parseSeedDecimal(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		date, err := time.Parse(domain.DateLayout, t.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: invalid date %q", t.ID, t.Date)
		}
		tx := domain.Transaction{
			ID:          t.ID,
			Type:        t.Type,
			Amount:      amount,
			CategoryID:  t.CategoryID,
			WalletID:    t.WalletID,
			Description: t.Description,
			Date:        date,
			CreatedAt:   date,
		}
		if err := s.checkReferences(tx.Type, tx.CategoryID, tx.WalletID); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		s.transactions[tx.ID] = tx
		if tx.ID > s.nextID {
			s.nextID = tx.ID
		}
	}

	logger.Info("memstore seeded",
		zap.Int("categories", len(s.categories)),
		zap.Int("wallets", len(s.wallets)),
		zap.Int("transactions", len(s.transactions)),
	)
	return s, nil
}

func parseSeedDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ListCategories returns the categories in seed order.
func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category(nil), s.categories...), nil
}

// ListWallets returns the wallets in seed order with current balances.
func (s *Store) ListWallets(_ context.Context) ([]domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Wallet(nil), s.wallets...), nil
}

// ListTransactions returns every transaction ordered by id.
func (s *Store) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateTransaction stores a new transaction and applies it to its wallet.
func (s *Store) CreateTransaction(ctx context.Context, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := s.fromPayload("create transaction", payload)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReferences(tx.Type, tx.CategoryID, tx.WalletID); err != nil {
		return nil, &domain.ErrPersistence{Operation: "create transaction", Message: err.Error(), Err: err}
	}
	s.nextID++
	tx.ID = s.nextID
	tx.CreatedAt = s.now()
	s.transactions[tx.ID] = tx
	s.applyLocked(tx, 1)

	return &tx, nil
}

// UpdateTransaction replaces a transaction, moving its effect between wallets as needed.
func (s *Store) UpdateTransaction(ctx context.Context, id int64, payload *domain.TransactionPayload) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := s.fromPayload("update transaction", payload)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[id]
	if !ok {
		return nil, notFound("update transaction", id)
	}
	if err := s.checkReferences(tx.Type, tx.CategoryID, tx.WalletID); err != nil {
		return nil, &domain.ErrPersistence{Operation: "update transaction", Message: err.Error(), Err: err}
	}
	tx.ID = id
	tx.CreatedAt = old.CreatedAt
	s.applyLocked(old, -1)
	s.applyLocked(tx, 1)
	s.transactions[id] = tx

	return &tx, nil
}

// DeleteTransaction removes a transaction and reverses its wallet effect.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[id]
	if !ok {
		return notFound("delete transaction", id)
	}
	s.applyLocked(old, -1)
	delete(s.transactions, id)
	return nil
}

func (s *Store) fromPayload(operation string, p *domain.TransactionPayload) (domain.Transaction, error) {
	reject := func(msg string) (domain.Transaction, error) {
		return domain.Transaction{}, &domain.ErrPersistence{Operation: operation, Message: msg}
	}
	if !p.Type.Valid() {
		return reject("Type must be income or expense")
	}
	if !p.Amount.IsPositive() {
		return reject("Amount must be greater than zero")
	}
	date, err := time.Parse(domain.DateLayout, p.Date)
	if err != nil {
		return reject("Date must be YYYY-MM-DD")
	}
	tx := domain.Transaction{
		Type:       p.Type,
		Amount:     p.Amount,
		CategoryID: p.CategoryID,
		WalletID:   p.WalletID,
		Date:       date,
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	return tx, nil
}

func (s *Store) checkReferences(t domain.TransactionType, categoryID, walletID int64) error {
	var category *domain.Category
	for i := range s.categories {
		if s.categories[i].ID == categoryID {
			category = &s.categories[i]
			break
		}
	}
	if category == nil {
		return fmt.Errorf("Category %d not found", categoryID)
	}
	if category.Type != t {
		return fmt.Errorf("Category %s is not a %s category", category.Name, t)
	}
	if s.walletIndex(walletID) < 0 {
		return fmt.Errorf("Wallet %d not found", walletID)
	}
	return nil
}

// applyLocked adds (sign 1) or removes (sign -1) tx's effect on its wallet.
func (s *Store) applyLocked(tx domain.Transaction, sign int64) {
	i := s.walletIndex(tx.WalletID)
	if i < 0 {
		return
	}
	delta := tx.Amount.Mul(decimal.NewFromInt(sign))
	if tx.Type == domain.TransactionTypeExpense {
		delta = delta.Neg()
	}
	s.wallets[i].Balance = s.wallets[i].Balance.Add(delta)
}

func (s *Store) walletIndex(id int64) int {
	for i := range s.wallets {
		if s.wallets[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(operation string, id int64) error {
	nf := &domain.ErrNotFound{Resource: "transaction", ID: strconv.FormatInt(id, 10)}
	return &domain.ErrPersistence{Operation: operation, Message: "Transaction not found", Err: nf}
}
