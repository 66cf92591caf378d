package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase/mocks"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestEvaluateSplit(t *testing.T) {
	tests := []struct {
		name     string
		branches []domain.SplitBranch
		incoming string
		expect   map[string]string
	}{
		{
			name: "even percents",
			branches: []domain.SplitBranch{
				{Target: "a", Percent: decPtr("60")},
				{Target: "b", Percent: decPtr("40")},
			},
			incoming: "1000",
			expect:   map[string]string{"a": "600", "b": "400"},
		},
		{
			name: "rounding residue lands on last percent branch",
			branches: []domain.SplitBranch{
				{Target: "a", Percent: decPtr("33.33")},
				{Target: "b", Percent: decPtr("33.33")},
				{Target: "c", Percent: decPtr("33.34")},
			},
			incoming: "1",
			expect:   map[string]string{"a": "0.33", "b": "0.33", "c": "0.34"},
		},
		{
			name: "fixed then percent then remainder",
			branches: []domain.SplitBranch{
				{Target: "tax", Amount: decPtr("200")},
				{Target: "savings", Percent: decPtr("30")},
				{Target: "operating", Remainder: true},
			},
			incoming: "1000",
			expect:   map[string]string{"tax": "200", "savings": "300", "operating": "500"},
		},
		{
			name: "remainder takes everything left",
			branches: []domain.SplitBranch{
				{Target: "a", Amount: decPtr("999.99")},
				{Target: "b", Remainder: true},
			},
			incoming: "1000",
			expect:   map[string]string{"a": "999.99", "b": "0.01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc, err := evaluateSplit(&domain.SplitParams{Branches: tt.branches}, dec(tt.incoming))
			require.NoError(t, err)

			total := decimal.Zero
			for target, want := range tt.expect {
				assert.True(t, alloc[target].Equal(dec(want)),
					"branch %s: expected %s, got %s", target, want, alloc[target])
				total = total.Add(alloc[target])
			}
			// Branch shares always sum to exactly the incoming amount.
			assert.True(t, total.Equal(dec(tt.incoming)),
				"shares sum to %s, incoming was %s", total, tt.incoming)
		})
	}
}

func TestEvaluateSplit_FixedSharesExceedIncoming(t *testing.T) {
	params := &domain.SplitParams{Branches: []domain.SplitBranch{
		{Target: "a", Amount: decPtr("800")},
		{Target: "b", Amount: decPtr("300")},
	}}

	_, err := evaluateSplit(params, dec("1000"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestEvaluateCondition(t *testing.T) {
	accounts := mocks.NewMockAccountRepository()
	accounts.Seed(&domain.Account{
		ID:               "acc-1",
		Active:           true,
		CurrentBalance:   dec("5000"),
		AvailableBalance: dec("4200"),
	})

	r := &Runner{accounts: accounts}

	amount := dec("1500")
	trigger := domain.TriggerContext{
		Amount:  &amount,
		FiredAt: time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name   string
		params domain.ConditionParams
		expect string
	}{
		{
			name:   "trigger amount gt true",
			params: domain.ConditionParams{Subject: domain.SubjectTriggerAmount, Operator: domain.OpGreaterThan, Value: dec("1000")},
			expect: domain.BranchTrue,
		},
		{
			name:   "trigger amount gt false",
			params: domain.ConditionParams{Subject: domain.SubjectTriggerAmount, Operator: domain.OpGreaterThan, Value: dec("2000")},
			expect: domain.BranchFalse,
		},
		{
			name:   "gte boundary",
			params: domain.ConditionParams{Subject: domain.SubjectTriggerAmount, Operator: domain.OpGreaterThanEqual, Value: dec("1500")},
			expect: domain.BranchTrue,
		},
		{
			name:   "lt",
			params: domain.ConditionParams{Subject: domain.SubjectTriggerAmount, Operator: domain.OpLessThan, Value: dec("1500")},
			expect: domain.BranchFalse,
		},
		{
			name:   "lte boundary",
			params: domain.ConditionParams{Subject: domain.SubjectTriggerAmount, Operator: domain.OpLessThanEqual, Value: dec("1500")},
			expect: domain.BranchTrue,
		},
		{
			name:   "eq",
			params: domain.ConditionParams{Subject: domain.SubjectTriggerAmount, Operator: domain.OpEqual, Value: dec("1500")},
			expect: domain.BranchTrue,
		},
		{
			name:   "current balance",
			params: domain.ConditionParams{Subject: domain.SubjectBalance, AccountID: "acc-1", Operator: domain.OpGreaterThanEqual, Value: dec("5000")},
			expect: domain.BranchTrue,
		},
		{
			name:   "available balance differs from current",
			params: domain.ConditionParams{Subject: domain.SubjectAvailableBalance, AccountID: "acc-1", Operator: domain.OpGreaterThanEqual, Value: dec("5000")},
			expect: domain.BranchFalse,
		},
		{
			name:   "day of month",
			params: domain.ConditionParams{Subject: domain.SubjectDayOfMonth, Operator: domain.OpEqual, Value: dec("15")},
			expect: domain.BranchTrue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branch, err := r.evaluateCondition(context.Background(), &tt.params, trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, branch)
		})
	}
}

func TestEvaluateCondition_MissingTriggerAmount(t *testing.T) {
	r := &Runner{accounts: mocks.NewMockAccountRepository()}

	// No amount bound by the trigger: subject defaults to zero.
	branch, err := r.evaluateCondition(context.Background(), &domain.ConditionParams{
		Subject:  domain.SubjectTriggerAmount,
		Operator: domain.OpGreaterThan,
		Value:    dec("0"),
	}, domain.TriggerContext{FiredAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, domain.BranchFalse, branch)
}

func TestResolveToAccount(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{
			{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{}},
			{ID: "dst", Kind: domain.NodeKindDestination, Destination: &domain.DestinationParams{AccountID: "acc-9"}},
		},
		Edges: []domain.Edge{{From: "pay", To: "dst"}},
	}

	t.Run("resolves through downstream destination", func(t *testing.T) {
		account, err := resolveToAccount(g, g.NodeByID("pay"))
		require.NoError(t, err)
		assert.Equal(t, "acc-9", account)
	})

	t.Run("explicit override wins", func(t *testing.T) {
		node := &domain.Node{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{ToAccountID: "acc-override"}}
		account, err := resolveToAccount(g, node)
		require.NoError(t, err)
		assert.Equal(t, "acc-override", account)
	})

	t.Run("no destination anywhere", func(t *testing.T) {
		orphan := &domain.Graph{
			Nodes: []domain.Node{{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{}}},
		}
		_, err := resolveToAccount(orphan, orphan.NodeByID("pay"))
		assert.ErrorIs(t, err, domain.ErrNoTargetAccount)
	})
}
