package office_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/backoffice/office"
)

// =============================================================================
// CONDITION PARSING
// =============================================================================

func TestParseCondition(t *testing.T) {
	tests := []struct {
		raw     string
		want    office.Condition
		wantErr bool
	}{
		{raw: "5", want: office.Condition{Kind: office.ConditionThreshold, Start: 5}},
		{raw: " 12 ", want: office.Condition{Kind: office.ConditionThreshold, Start: 12}},
		{raw: "3~4", want: office.Condition{Kind: office.ConditionRange, Start: 3, End: 4}},
		{raw: "1-2", want: office.Condition{Kind: office.ConditionRange, Start: 1, End: 2}},
		{raw: "7 ~ 7", want: office.Condition{Kind: office.ConditionRange, Start: 7, End: 7}},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "4~3", wantErr: true},
		{raw: "~3", wantErr: true},
		{raw: "1~2~3", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "2.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := office.ParseCondition(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCondition_ThresholdIsAFloor(t *testing.T) {
	c, err := office.ParseCondition("5")
	require.NoError(t, err)

	assert.False(t, c.Matches(4))
	assert.True(t, c.Matches(5))
	assert.True(t, c.Matches(50), "a threshold is not an exact match")
}

func TestCondition_CanonicalForm(t *testing.T) {
	c, err := office.ParseCondition(" 3 - 4 ")
	require.NoError(t, err)
	assert.Equal(t, "3~4", c.String())
}

// =============================================================================
// EVALUATOR
// =============================================================================

func TestEvaluate_LastMatchWins(t *testing.T) {
	rules := []office.IncentiveRule{
		{Condition: "1-2", Reward: 1000},
		{Condition: "3-4", Reward: 2000},
		{Condition: "5-6", Reward: 3000},
	}
	assert.Equal(t, int64(3000), office.Evaluate(5, rules))
	assert.Equal(t, int64(2000), office.Evaluate(3, rules))
	assert.Equal(t, int64(0), office.Evaluate(7, rules))
}

func TestEvaluate_OverlapUsesDeclaredOrder(t *testing.T) {
	// GIVEN: A floor rule declared after an overlapping range
	// WHEN: The count satisfies both
	// THEN: The later rule's reward is used, whatever its amount

	rules := []office.IncentiveRule{
		{Condition: "3~10", Reward: 9000},
		{Condition: "3", Reward: 100},
	}
	assert.Equal(t, int64(100), office.Evaluate(4, rules))

	reversed := []office.IncentiveRule{rules[1], rules[0]}
	assert.Equal(t, int64(9000), office.Evaluate(4, reversed))
}

func TestEvaluate_EmptyRules(t *testing.T) {
	assert.Equal(t, int64(0), office.Evaluate(0, nil))
	assert.Equal(t, int64(0), office.Evaluate(0, []office.IncentiveRule{}))
}

func TestEvaluate_SkipsMalformedAndNegative(t *testing.T) {
	rules := []office.IncentiveRule{
		{Condition: "1", Reward: 500},
		{Condition: "lots", Reward: 99999},
		{Condition: "2", Reward: -1},
	}
	assert.Equal(t, int64(500), office.Evaluate(3, rules))
}
