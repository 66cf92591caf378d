package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a ledger entry.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// TransferKind is the closed set of legally meaningful categories for a
// movement between two different entities. A same-entity transfer carries
// KindNone.
type TransferKind string

const (
	KindNone                 TransferKind = ""
	KindEquityContribution   TransferKind = "equity_contribution"
	KindOwnerDraw            TransferKind = "owner_draw"
	KindDistribution         TransferKind = "distribution"
	KindLoanToEntity         TransferKind = "loan_to_entity"
	KindLoanFromEntity       TransferKind = "loan_from_entity"
	KindExpenseReimbursement TransferKind = "expense_reimbursement"
)

// Valid reports whether the kind is an accepted inter-entity category.
func (k TransferKind) Valid() bool {
	switch k {
	case KindEquityContribution, KindOwnerDraw, KindDistribution,
		KindLoanToEntity, KindLoanFromEntity, KindExpenseReimbursement:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Corrections are made with new
// offsetting rows, never by editing committed ones. Inter-entity movements
// come in mutually referencing debit/credit pairs with matching kind.
type Transaction struct {
	ID              string
	EntityID        string
	AccountID       string
	Direction       Direction
	Amount          decimal.Decimal
	OccurredAt      time.Time
	Category        string
	Description     string
	IsInterEntity   bool
	InterEntityKind TransferKind
	PairID          *string
	RelatedEntityID *string
	ExecutionID     *string
	ImportSource    string
	CreatedAt       time.Time
}

// TransactionPair is the result of one committed transfer: a debit in the
// source entity's books and a credit in the destination entity's books.
type TransactionPair struct {
	Debit  *Transaction
	Credit *Transaction
}

// Amount returns the transferred amount; both legs are always equal.
func (p *TransactionPair) Amount() decimal.Decimal {
	return p.Debit.Amount
}

// ValidateAmount enforces the ledger's fixed-point precision: strictly
// positive and representable in cents.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
