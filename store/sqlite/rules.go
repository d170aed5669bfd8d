package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/backoffice/office"
)

// =============================================================================
// RULE STORE (office.RuleStore interface)
// =============================================================================

// ListRules returns the incentive tiers in declared order.
func (s *Store) ListRules(ctx context.Context) ([]office.IncentiveRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, condition, reward FROM incentive_rules ORDER BY position ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query incentive rules: %w", err)
	}
	defer rows.Close()

	rules := []office.IncentiveRule{}
	for rows.Next() {
		var r office.IncentiveRule
		if err := rows.Scan(&r.ID, &r.Condition, &r.Reward); err != nil {
			return nil, fmt.Errorf("failed to scan incentive rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ReplaceRules discards every rule and installs rules, in one transaction.
func (s *Store) ReplaceRules(ctx context.Context, rules []office.IncentiveRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM incentive_rules"); err != nil {
			return fmt.Errorf("failed to clear incentive rules: %w", err)
		}
		for i, r := range rules {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO incentive_rules (id, position, condition, reward) VALUES (?, ?, ?, ?)",
				r.ID, i, r.Condition, r.Reward,
			)
			if err != nil {
				return fmt.Errorf("failed to insert incentive rule %d: %w", i, err)
			}
		}
		return nil
	})
}
