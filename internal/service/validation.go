package service

import (
	"time"
	"unicode/utf8"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
)

// MaxDescriptionLength is the longest description accepted, in characters.
const MaxDescriptionLength = 200

// ValidateDraft checks every rule against d and collects all violations.
// An empty map means the draft may be submitted. now decides what "future" means:
// any date after the end of now's calendar day, in now's location, is rejected.
func ValidateDraft(d domain.Draft, now time.Time) map[domain.Field]string {
	errs := make(map[domain.Field]string)

	switch amount, err := ParseAmount(d.Amount); {
	case d.Amount == "":
		errs[domain.FieldAmount] = "Amount is required"
	case err != nil:
		errs[domain.FieldAmount] = "Amount must be a number"
	case !amount.IsPositive():
		errs[domain.FieldAmount] = "Amount must be greater than zero"
	case amount.GreaterThan(MaxAmount):
		errs[domain.FieldAmount] = "Amount cannot exceed 1,000,000,000"
	}

	if d.CategoryID == nil {
		errs[domain.FieldCategory] = "Please select a category"
	}
	if d.WalletID == nil {
		errs[domain.FieldWallet] = "Please select a wallet"
	}

	if d.Date.IsZero() {
		errs[domain.FieldDate] = "Date is required"
	} else if d.Date.After(endOfDay(now)) {
		errs[domain.FieldDate] = "Date cannot be in the future"
	}

	if utf8.RuneCountInString(d.Description) > MaxDescriptionLength {
		errs[domain.FieldDescription] = "Description must be 200 characters or fewer"
	}

	return errs
}

// startOfDay truncates t to midnight in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
