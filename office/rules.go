package office

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// RULE BOOK - The incentive tier table
// =============================================================================

// RuleBook is the Rule Store service. The tier table has no partial update:
// every write is a validated full replace.
type RuleBook struct {
	store RuleStore
}

func NewRuleBook(store RuleStore) *RuleBook {
	return &RuleBook{store: store}
}

// List returns the rules in declared order.
func (b *RuleBook) List(ctx context.Context) ([]IncentiveRule, error) {
	rules, err := b.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list incentive rules: %w", err)
	}
	return rules, nil
}

// ReplaceAll validates every candidate and then atomically replaces the
// table. If any candidate is invalid the table is left untouched and a
// *RuleValidationError describing the first offender is returned.
//
// Conditions are stored in canonical form ("3-4" becomes "3~4") and each
// rule receives a fresh id.
func (b *RuleBook) ReplaceAll(ctx context.Context, rules []IncentiveRule) ([]IncentiveRule, error) {
	normalized, err := ValidateRules(rules)
	if err != nil {
		return nil, err
	}
	if err := b.store.ReplaceRules(ctx, normalized); err != nil {
		return nil, fmt.Errorf("failed to replace incentive rules: %w", err)
	}
	return normalized, nil
}

// Reward evaluates successCount against the live table.
func (b *RuleBook) Reward(ctx context.Context, successCount int) (int64, error) {
	rules, err := b.List(ctx)
	if err != nil {
		return 0, err
	}
	return Evaluate(successCount, rules), nil
}

// ValidateRules checks every rule and returns normalized copies with new ids.
func ValidateRules(rules []IncentiveRule) ([]IncentiveRule, error) {
	out := make([]IncentiveRule, len(rules))
	for i, r := range rules {
		if r.Reward < 0 {
			return nil, &RuleValidationError{Index: i, Condition: r.Condition, Reward: r.Reward, Reason: "reward must not be negative"}
		}
		cond, err := ParseCondition(r.Condition)
		if err != nil {
			return nil, &RuleValidationError{Index: i, Condition: r.Condition, Reward: r.Reward, Reason: err.Error()}
		}
		out[i] = IncentiveRule{
			ID:        uuid.NewString(),
			Condition: cond.String(),
			Reward:    r.Reward,
		}
	}
	return out, nil
}
