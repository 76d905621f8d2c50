package service

import "github.com/boddenberg/finance-entry-bfa-go/internal/domain"

// ResolveDefaults fills the wallet and category selections from the lookups.
//
// The first wallet is chosen when none is selected yet. When categories of the
// draft's type exist, the first of them is chosen if the current selection is
// unset or is not among them. Empty lookups leave the draft untouched.
func ResolveDefaults(d domain.Draft, lookups domain.Lookups) domain.Draft {
	if d.WalletID == nil && len(lookups.Wallets) > 0 {
		id := lookups.Wallets[0].ID
		d.WalletID = &id
	}

	matching := lookups.CategoriesOfType(d.Type)
	if len(matching) == 0 {
		return d
	}
	if d.CategoryID != nil && containsCategory(matching, *d.CategoryID) {
		return d
	}
	id := matching[0].ID
	d.CategoryID = &id
	return d
}

func containsCategory(categories []domain.Category, id int64) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
