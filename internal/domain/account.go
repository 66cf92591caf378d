package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies a balance-holding resource.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeCash       AccountType = "cash"
)

// Account is a balance-holding resource owned by exactly one entity.
// Balances are mutated only by the ledger use case; Version guards
// against concurrent stale writes.
type Account struct {
	ID               string
	EntityID         string
	Name             string
	Type             AccountType
	CurrentBalance   decimal.Decimal
	AvailableBalance decimal.Decimal
	Version          int64
	Active           bool
	InstitutionName  string
	MaskedNumber     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateWithdrawal checks that the account can fund a debit of amount.
func (a *Account) ValidateWithdrawal(amount decimal.Decimal) error {
	if !a.Active {
		return ErrAccountInactive
	}
	if a.AvailableBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit reduces both balances by amount.
func (a *Account) ApplyDebit(amount decimal.Decimal) {
	a.CurrentBalance = a.CurrentBalance.Sub(amount)
	a.AvailableBalance = a.AvailableBalance.Sub(amount)
}

// ApplyCredit increases both balances by amount.
func (a *Account) ApplyCredit(amount decimal.Decimal) {
	a.CurrentBalance = a.CurrentBalance.Add(amount)
	a.AvailableBalance = a.AvailableBalance.Add(amount)
}
