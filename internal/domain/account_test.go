package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateWithdrawal(t *testing.T) {
	tests := []struct {
		name        string
		account     Account
		amount      decimal.Decimal
		expectError error
	}{
		{
			name:    "sufficient funds",
			account: Account{Active: true, AvailableBalance: decimal.NewFromInt(500)},
			amount:  decimal.NewFromInt(100),
		},
		{
			name:    "exact balance",
			account: Account{Active: true, AvailableBalance: decimal.NewFromInt(100)},
			amount:  decimal.NewFromInt(100),
		},
		{
			name:        "insufficient funds",
			account:     Account{Active: true, AvailableBalance: decimal.NewFromInt(200)},
			amount:      decimal.NewFromInt(500),
			expectError: ErrInsufficientFunds,
		},
		{
			name:        "inactive account",
			account:     Account{Active: false, AvailableBalance: decimal.NewFromInt(500)},
			amount:      decimal.NewFromInt(100),
			expectError: ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.ValidateWithdrawal(tt.amount)

			if tt.expectError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError != nil && err != tt.expectError {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestAccount_ApplyDebitCredit(t *testing.T) {
	account := Account{
		CurrentBalance:   decimal.NewFromInt(1000),
		AvailableBalance: decimal.NewFromInt(800),
	}

	account.ApplyDebit(decimal.NewFromInt(300))
	if !account.CurrentBalance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected current balance 700, got %s", account.CurrentBalance)
	}
	if !account.AvailableBalance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected available balance 500, got %s", account.AvailableBalance)
	}

	account.ApplyCredit(decimal.NewFromInt(50))
	if !account.CurrentBalance.Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected current balance 750, got %s", account.CurrentBalance)
	}
	if !account.AvailableBalance.Equal(decimal.NewFromInt(550)) {
		t.Errorf("expected available balance 550, got %s", account.AvailableBalance)
	}
}
