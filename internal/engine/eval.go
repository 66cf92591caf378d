package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
)

// evaluateCondition resolves a predicate against live balances or the
// trigger context and returns the labeled branch to take.
func (r *Runner) evaluateCondition(ctx context.Context, params *domain.ConditionParams, trigger domain.TriggerContext) (string, error) {
	var subject decimal.Decimal

	switch params.Subject {
	case domain.SubjectBalance, domain.SubjectAvailableBalance:
		account, err := r.accounts.GetByID(ctx, params.AccountID)
		if err != nil {
			return "", err
		}
		if params.Subject == domain.SubjectBalance {
			subject = account.CurrentBalance
		} else {
			subject = account.AvailableBalance
		}
	case domain.SubjectTriggerAmount:
		if trigger.Amount != nil {
			subject = *trigger.Amount
		}
	case domain.SubjectDayOfMonth:
		subject = decimal.NewFromInt(int64(trigger.FiredAt.Day()))
	default:
		return "", fmt.Errorf("unknown predicate subject %q: %w", params.Subject, domain.ErrGraphInvalid)
	}

	var result bool
	switch params.Operator {
	case domain.OpGreaterThan:
		result = subject.GreaterThan(params.Value)
	case domain.OpGreaterThanEqual:
		result = subject.GreaterThanOrEqual(params.Value)
	case domain.OpLessThan:
		result = subject.LessThan(params.Value)
	case domain.OpLessThanEqual:
		result = subject.LessThanOrEqual(params.Value)
	case domain.OpEqual:
		result = subject.Equal(params.Value)
	default:
		return "", fmt.Errorf("unknown predicate operator %q: %w", params.Operator, domain.ErrGraphInvalid)
	}

	if result {
		return domain.BranchTrue, nil
	}
	return domain.BranchFalse, nil
}

// evaluateSplit fans the incoming amount out across the node's branches.
// Fixed amounts come off first; percent shares are computed against the
// full incoming amount and rounded to cents; a remainder branch takes what
// is left. When percent shares alone must cover the whole amount, the
// rounding residue lands on the last percent branch so the branch sum
// equals the incoming amount exactly.
func evaluateSplit(params *domain.SplitParams, incoming decimal.Decimal) (map[string]decimal.Decimal, error) {
	hundred := decimal.NewFromInt(100)
	allocation := make(map[string]decimal.Decimal, len(params.Branches))

	fixedTotal := decimal.Zero
	for _, b := range params.Branches {
		if b.Amount != nil {
			fixedTotal = fixedTotal.Add(*b.Amount)
		}
	}
	if fixedTotal.GreaterThan(incoming) {
		return nil, fmt.Errorf("fixed shares total %s exceed incoming amount %s: %w",
			fixedTotal.StringFixed(2), incoming.StringFixed(2), domain.ErrInsufficientFunds)
	}

	allocated := decimal.Zero
	var remainderTarget string
	var lastPercentTarget string
	hasFixed := false

	for _, b := range params.Branches {
		switch {
		case b.Amount != nil:
			hasFixed = true
			allocation[b.Target] = *b.Amount
			allocated = allocated.Add(*b.Amount)
		case b.Percent != nil:
			share := incoming.Mul(*b.Percent).Div(hundred).Round(2)
			allocation[b.Target] = share
			allocated = allocated.Add(share)
			lastPercentTarget = b.Target
		case b.Remainder:
			remainderTarget = b.Target
		}
	}

	rest := incoming.Sub(allocated)
	if rest.IsNegative() {
		return nil, fmt.Errorf("shares total %s exceed incoming amount %s: %w",
			allocated.StringFixed(2), incoming.StringFixed(2), domain.ErrInsufficientFunds)
	}

	switch {
	case remainderTarget != "":
		allocation[remainderTarget] = rest
	case !hasFixed && lastPercentTarget != "" && !rest.IsZero():
		// Percent-only split covering 100%: conserve the rounding residue.
		allocation[lastPercentTarget] = allocation[lastPercentTarget].Add(rest)
	}

	return allocation, nil
}

// resolveToAccount finds the account an action pays into: an explicit
// override on the node, or the destination node its outgoing edge points
// at.
func resolveToAccount(g *domain.Graph, node *domain.Node) (string, error) {
	if node.Action.ToAccountID != "" {
		return node.Action.ToAccountID, nil
	}

	for _, e := range g.Outgoing(node.ID) {
		next := g.NodeByID(e.To)
		if next != nil && next.Kind == domain.NodeKindDestination {
			return next.Destination.AccountID, nil
		}
	}

	return "", domain.ErrNoTargetAccount
}
