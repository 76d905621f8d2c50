package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day wire format used by the ledger API.
const DateLayout = "2006-01-02"

// ============================================================
// Transactions
// ============================================================

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a persisted ledger record.
type Transaction struct {
	ID          int64           `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  int64           `json:"category_id"`
	WalletID    int64           `json:"wallet_id"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}

// TransactionPayload is the body sent to the ledger on create and update.
// Description is nil when the user left it empty.
type TransactionPayload struct {
	Type        TransactionType
	Amount      decimal.Decimal
	CategoryID  int64
	WalletID    int64
	Description *string
	Date        string // YYYY-MM-DD
}

// ============================================================
// Lookups (categories & wallets)
// ============================================================

// Category classifies a transaction. Its Type must match the transaction's type.
type Category struct {
	ID   int64           `json:"id" yaml:"id"`
	Name string          `json:"name" yaml:"name"`
	Type TransactionType `json:"type" yaml:"type"`
}

// Wallet is a source or destination of funds.
type Wallet struct {
	ID      int64           `json:"id" yaml:"id"`
	Name    string          `json:"name" yaml:"name"`
	Type    string          `json:"type" yaml:"type"`
	Balance decimal.Decimal `json:"balance" yaml:"balance"`
}

// Lookups is a read-only snapshot of the lists owned by the data context.
type Lookups struct {
	Categories []Category `json:"categories"`
	Wallets    []Wallet   `json:"wallets"`
}

// CategoryByID returns the category with the given id, if present.
func (l Lookups) CategoryByID(id int64) (Category, bool) {
	for _, c := range l.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// WalletByID returns the wallet with the given id, if present.
func (l Lookups) WalletByID(id int64) (Wallet, bool) {
	for _, w := range l.Wallets {
		if w.ID == id {
			return w, true
		}
	}
	return Wallet{}, false
}

// CategoriesOfType returns the categories matching t, in lookup order.
func (l Lookups) CategoriesOfType(t TransactionType) []Category {
	out := make([]Category, 0, len(l.Categories))
	for _, c := range l.Categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a copy whose slices do not alias l.
func (l Lookups) Clone() Lookups {
	return Lookups{
		Categories: append([]Category(nil), l.Categories...),
		Wallets:    append([]Wallet(nil), l.Wallets...),
	}
}
