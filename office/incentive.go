package office

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// CONDITION - Tagged variant {Threshold(n) | Range(start, end)}
// =============================================================================

type ConditionKind int

const (
	// ConditionThreshold matches when the success count is >= N (a floor,
	// not an exact match).
	ConditionThreshold ConditionKind = iota + 1

	// ConditionRange matches when Start <= success count <= End.
	ConditionRange
)

// Condition is the parsed form of a rule's condition text.
// For ConditionThreshold only Start is meaningful.
type Condition struct {
	Kind  ConditionKind
	Start int
	End   int
}

// Range separators accepted in condition text: "3~4" and "3-4".
const rangeSeparators = "~-"

// ParseCondition parses "N" or "start~end" (also "start-end").
// Whitespace around numbers is ignored; anything else is malformed.
func ParseCondition(raw string) (Condition, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Condition{}, fmt.Errorf("empty condition")
	}

	if isDigits(text) {
		n, err := strconv.Atoi(text)
		if err != nil {
			return Condition{}, fmt.Errorf("threshold %q: %w", text, err)
		}
		return Condition{Kind: ConditionThreshold, Start: n}, nil
	}

	i := strings.IndexAny(text, rangeSeparators)
	if i < 0 {
		return Condition{}, fmt.Errorf("condition %q is neither a number nor a range", text)
	}
	lo, hi := strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	if !isDigits(lo) || !isDigits(hi) {
		return Condition{}, fmt.Errorf("range %q must be start~end with non-negative integers", text)
	}
	start, err := strconv.Atoi(lo)
	if err != nil {
		return Condition{}, fmt.Errorf("range start %q: %w", lo, err)
	}
	end, err := strconv.Atoi(hi)
	if err != nil {
		return Condition{}, fmt.Errorf("range end %q: %w", hi, err)
	}
	if start > end {
		return Condition{}, fmt.Errorf("range %q has start after end", text)
	}
	return Condition{Kind: ConditionRange, Start: start, End: end}, nil
}

// Matches reports whether successCount satisfies the condition.
func (c Condition) Matches(successCount int) bool {
	switch c.Kind {
	case ConditionThreshold:
		return successCount >= c.Start
	case ConditionRange:
		return c.Start <= successCount && successCount <= c.End
	default:
		return false
	}
}

// String renders the canonical text form ("5" or "3~4").
func (c Condition) String() string {
	if c.Kind == ConditionRange {
		return fmt.Sprintf("%d~%d", c.Start, c.End)
	}
	return strconv.Itoa(c.Start)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// EVALUATOR
// =============================================================================

// IncentiveRule maps a condition on the monthly success count to a reward.
type IncentiveRule struct {
	ID        string
	Condition string
	Reward    int64
}

// Evaluate returns the reward for successCount under rules, or 0 when no rule
// matches.
//
// Rules are walked in the given order and the LAST matching rule wins, so the
// store's declared order is significant. Rules whose condition can't be parsed
// (or whose reward is negative) are skipped: legacy rows must never break the
// board.
func Evaluate(successCount int, rules []IncentiveRule) int64 {
	var reward int64
	for _, rule := range rules {
		cond, err := ParseCondition(rule.Condition)
		if err != nil || rule.Reward < 0 {
			continue
		}
		if cond.Matches(successCount) {
			reward = rule.Reward
		}
	}
	return reward
}
