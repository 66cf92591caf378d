package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name        string
		amount      decimal.Decimal
		expectError error
	}{
		{
			name:   "whole dollars",
			amount: decimal.NewFromInt(100),
		},
		{
			name:   "cents precision",
			amount: dec("0.01"),
		},
		{
			name:        "zero",
			amount:      decimal.Zero,
			expectError: ErrInvalidAmount,
		},
		{
			name:        "negative",
			amount:      decimal.NewFromInt(-100),
			expectError: ErrInvalidAmount,
		},
		{
			name:        "sub-cent precision",
			amount:      dec("10.005"),
			expectError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)

			if tt.expectError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError != nil && err != tt.expectError {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestTransferKind_Valid(t *testing.T) {
	valid := []TransferKind{
		KindEquityContribution,
		KindOwnerDraw,
		KindDistribution,
		KindLoanToEntity,
		KindLoanFromEntity,
		KindExpenseReimbursement,
	}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("expected kind %q to be valid", k)
		}
	}

	invalid := []TransferKind{KindNone, "gift", "salary"}
	for _, k := range invalid {
		if k.Valid() {
			t.Errorf("expected kind %q to be invalid", k)
		}
	}
}

func TestTransactionPair_Amount(t *testing.T) {
	pair := &TransactionPair{
		Debit:  &Transaction{Amount: dec("250.50")},
		Credit: &Transaction{Amount: dec("250.50")},
	}

	if !pair.Amount().Equal(dec("250.50")) {
		t.Errorf("expected 250.50, got %s", pair.Amount())
	}
}
