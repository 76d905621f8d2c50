package service

import (
	"sort"
	"strings"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
)

// DefaultPageSize is the number of rows per transaction table page.
const DefaultPageSize = 10

// TypeFacet filters the table by transaction type.
type TypeFacet string

const (
	FacetAll     TypeFacet = "all"
	FacetIncome  TypeFacet = "income"
	FacetExpense TypeFacet = "expense"
)

// SortKey is the column the table is ordered by.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
)

// SortDirection orders a column.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortState is the active ordering.
type SortState struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort shows the newest transactions first.
var DefaultSort = SortState{Key: SortByDate, Direction: SortDesc}

// Toggle selects key. Reselecting the active key flips the direction;
// a new key starts descending.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key {
		if s.Direction == SortDesc {
			return SortState{Key: key, Direction: SortAsc}
		}
		return SortState{Key: key, Direction: SortDesc}
	}
	return SortState{Key: key, Direction: SortDesc}
}

// TransactionQuery is the table state: search, facet, sort and page.
type TransactionQuery struct {
	Search   string
	Type     TypeFacet
	Sort     SortState
	Page     int
	PageSize int
}

// TransactionRow is a transaction joined with its display names.
type TransactionRow struct {
	domain.Transaction
	CategoryName string `json:"category_name"`
	WalletName   string `json:"wallet_name"`
}

// TransactionPage is one page of the filtered, sorted table.
type TransactionPage struct {
	Rows       []TransactionRow `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	Sort       SortState        `json:"sort"`
}

// QueryTransactions filters, sorts and paginates txs. Search is case-insensitive
// over the description, the amount text and the category name. The requested
// page is clamped into [1, TotalPages]; TotalPages is at least 1.
func QueryTransactions(txs []domain.Transaction, lookups domain.Lookups, q TransactionQuery) TransactionPage {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Sort.Key == "" {
		q.Sort = DefaultSort
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		if !matchesFacet(tx.Type, q.Type) {
			continue
		}
		row := TransactionRow{Transaction: tx}
		if c, ok := lookups.CategoryByID(tx.CategoryID); ok {
			row.CategoryName = c.Name
		}
		if w, ok := lookups.WalletByID(tx.WalletID); ok {
			row.WalletName = w.Name
		}
		if needle != "" && !matchesSearch(row, needle) {
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		var less bool
		switch q.Sort.Key {
		case SortByAmount:
			if rows[i].Amount.Equal(rows[j].Amount) {
				return false
			}
			less = rows[i].Amount.LessThan(rows[j].Amount)
		default:
			if rows[i].Date.Equal(rows[j].Date) {
				return false
			}
			less = rows[i].Date.Before(rows[j].Date)
		}
		if q.Sort.Direction == SortAsc {
			return less
		}
		return !less
	})

	total := len(rows)
	totalPages := (total + q.PageSize - 1) / q.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	lo := (page - 1) * q.PageSize
	hi := lo + q.PageSize
	if hi > total {
		hi = total
	}

	return TransactionPage{
		Rows:       rows[lo:hi],
		Total:      total,
		Page:       page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
		Sort:       q.Sort,
	}
}

func matchesFacet(t domain.TransactionType, facet TypeFacet) bool {
	switch facet {
	case FacetIncome:
		return t == domain.TransactionTypeIncome
	case FacetExpense:
		return t == domain.TransactionTypeExpense
	default:
		return true
	}
}

func matchesSearch(row TransactionRow, needle string) bool {
	return strings.Contains(strings.ToLower(row.Description), needle) ||
		strings.Contains(FormatAmount(row.Amount), needle) ||
		strings.Contains(strings.ToLower(row.CategoryName), needle)
}
