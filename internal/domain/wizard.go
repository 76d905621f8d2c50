package domain

import "time"

// ============================================================
// Entry wizard
// ============================================================

// WizardMode selects between capturing a new transaction and editing one.
type WizardMode string

const (
	WizardModeCreate WizardMode = "create"
	WizardModeEdit   WizardMode = "edit"
)

// Step is one of the six wizard stages.
type Step int

const (
	StepType Step = iota + 1
	StepAmount
	StepCategory
	StepWallet
	StepDescription
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepType:
		return "type"
	case StepAmount:
		return "amount"
	case StepCategory:
		return "category"
	case StepWallet:
		return "wallet"
	case StepDescription:
		return "description"
	case StepConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Outcome is the submission result of a wizard session.
type Outcome string

const (
	OutcomeIdle    Outcome = "idle"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Field names a draft attribute that can be edited.
type Field string

const (
	FieldType        Field = "type"
	FieldAmount      Field = "amount"
	FieldCategory    Field = "category_id"
	FieldWallet      Field = "wallet_id"
	FieldDescription Field = "description"
	FieldDate        Field = "date"
)

// Draft is the in-progress transaction owned by a wizard session.
type Draft struct {
	Type        TransactionType `json:"type"`
	CategoryID  *int64          `json:"category_id"`
	WalletID    *int64          `json:"wallet_id"`
	Amount      string          `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// SessionState is the navigation and submission state of a wizard session.
// Mode and SourceTransactionID are fixed when the session opens.
type SessionState struct {
	Step                Step       `json:"step"`
	Mode                WizardMode `json:"mode"`
	SourceTransactionID *int64     `json:"source_transaction_id,omitempty"`
	Submitting          bool       `json:"submitting"`
	Outcome             Outcome    `json:"outcome"`
}

// WizardSnapshot is a consistent read of a session, safe to hand to a renderer.
type WizardSnapshot struct {
	ID          string           `json:"id"`
	State       SessionState     `json:"state"`
	Draft       Draft            `json:"draft"`
	CanAdvance  bool             `json:"can_advance"`
	FieldErrors map[Field]string `json:"field_errors,omitempty"`
	Exiting     bool             `json:"exiting"` // success shown, close pending
	Closed      bool             `json:"closed"`
}
