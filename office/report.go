/*
report.go - Reporting aggregator

PURPOSE:
  Read-only views over client ownership/status, performance records and
  the incentive table. Each view is a function of the store state plus the
  "now" passed by the caller, so tests pin the clock explicitly.

VIEWS:
  MySummary:      the caller's clients created this month, by status,
                  plus success rate
  Statistics:     org totals, this month's numbers, top addresses and a
                  trailing monthly contract trend
  IncentiveBoard: per Staff-group member, this month's contracts (by
                  last update) and the reward from the live rule table
  Ranking:        top staff by summed performance value of one record type

EMPTY DATA:
  Every view tolerates empty collections and returns zeros or empty slices.

SEE ALSO:
  - store.go: ReportStore query contracts
  - incentive.go: Evaluate
*/
package office

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default view sizes.
const (
	DefaultTopAddresses = 5
	DefaultTrendMonths  = 6
	DefaultRankingSize  = 3
)

var hundred = decimal.NewFromInt(100)

// Reporter is the Reporting Aggregator.
type Reporter struct {
	store        ReportStore
	rules        RuleStore
	topAddresses int
	trendMonths  int
	rankingSize  int
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithTopAddresses sets how many addresses Statistics returns.
func WithTopAddresses(n int) ReporterOption {
	return func(r *Reporter) {
		if n > 0 {
			r.topAddresses = n
		}
	}
}

// WithTrendMonths sets the length of the Statistics trend.
func WithTrendMonths(n int) ReporterOption {
	return func(r *Reporter) {
		if n > 0 {
			r.trendMonths = n
		}
	}
}

// WithRankingSize sets how many entries Ranking returns.
func WithRankingSize(n int) ReporterOption {
	return func(r *Reporter) {
		if n > 0 {
			r.rankingSize = n
		}
	}
}

func NewReporter(store ReportStore, rules RuleStore, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		store:        store,
		rules:        rules,
		topAddresses: DefaultTopAddresses,
		trendMonths:  DefaultTrendMonths,
		rankingSize:  DefaultRankingSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// PERSONAL SUMMARY
// =============================================================================

// Summary is a staff member's month at a glance.
type Summary struct {
	Total       int
	ByStatus    map[Status]int // every status present, zero when absent
	SuccessRate decimal.Decimal
}

// MySummary counts staff's clients created in the month containing now.
// SuccessRate is (SUCCESS_1 + SUCCESS_2) / total * 100 rounded to two
// places, and 0 when there are no clients.
func (r *Reporter) MySummary(ctx context.Context, staff StaffID, now time.Time) (Summary, error) {
	counts, err := r.store.OwnedStatusCounts(ctx, staff, MonthOf(now))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to count clients by status: %w", err)
	}

	summary := Summary{ByStatus: make(map[Status]int, len(Statuses)), SuccessRate: decimal.Zero}
	for _, s := range Statuses {
		summary.ByStatus[s] = counts[s]
		summary.Total += counts[s]
	}
	if summary.Total > 0 {
		success := summary.ByStatus[StatusSuccess1] + summary.ByStatus[StatusSuccess2]
		summary.SuccessRate = decimal.NewFromInt(int64(success)).
			Div(decimal.NewFromInt(int64(summary.Total))).
			Mul(hundred).
			Round(2)
	}
	return summary, nil
}

// =============================================================================
// ORG STATISTICS
// =============================================================================

// MonthlyContracts is one point of the contract trend.
type MonthlyContracts struct {
	Month     string // "YYYY-MM"
	Contracts int
}

// Statistics is the org-wide dashboard.
type Statistics struct {
	Totals       ClientTotals
	ThisMonth    CreatedCounts
	TopAddresses []AddressCount
	Trend        []MonthlyContracts // oldest first, always trendMonths long
}

// Statistics builds the org dashboard as of now.
func (r *Reporter) Statistics(ctx context.Context, now time.Time) (Statistics, error) {
	totals, err := r.store.ClientTotals(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to count clients: %w", err)
	}
	month, err := r.store.CreatedCounts(ctx, MonthOf(now))
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to count this month's clients: %w", err)
	}
	top, err := r.store.TopAddresses(ctx, r.topAddresses)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to rank addresses: %w", err)
	}
	if top == nil {
		top = []AddressCount{}
	}

	windows := TrailingMonths(now, r.trendMonths)
	trend := make([]MonthlyContracts, len(windows))
	for i, w := range windows {
		counts, err := r.store.CreatedCounts(ctx, w)
		if err != nil {
			return Statistics{}, fmt.Errorf("failed to count contracts for %s: %w", w.Month(), err)
		}
		trend[i] = MonthlyContracts{Month: w.Month(), Contracts: counts.Contracts}
	}

	return Statistics{
		Totals:       totals,
		ThisMonth:    month,
		TopAddresses: top,
		Trend:        trend,
	}, nil
}

// =============================================================================
// INCENTIVE BOARD
// =============================================================================

// BoardRow is one staff member's line on the incentive board.
type BoardRow struct {
	StaffID      StaffID
	Name         string
	SuccessCount int
	Reward       int64
}

// IncentiveBoard evaluates every Staff-group member's contracts this month
// (by last update) against the live rule table, most contracts first.
func (r *Reporter) IncentiveBoard(ctx context.Context, now time.Time) ([]BoardRow, error) {
	staff, err := r.store.ListStaffInGroup(ctx, GroupStaff)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	counts, err := r.store.SuccessCountsByOwner(ctx, MonthOf(now))
	if err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}
	rules, err := r.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list incentive rules: %w", err)
	}

	rows := make([]BoardRow, len(staff))
	for i, s := range staff {
		n := counts[s.ID]
		rows[i] = BoardRow{
			StaffID:      s.ID,
			Name:         s.Name(),
			SuccessCount: n,
			Reward:       Evaluate(n, rules),
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SuccessCount > rows[j].SuccessCount
	})
	return rows, nil
}

// =============================================================================
// RANKING
// =============================================================================

// RankedEntry is a position in the performance ranking.
type RankedEntry struct {
	Rank     int
	StaffID  StaffID
	Username string
	Name     string
	Total    int
}

// Ranking returns the top accounts by summed value of recordType, ranked
// 1..n by position.
func (r *Reporter) Ranking(ctx context.Context, recordType string) ([]RankedEntry, error) {
	recordType = strings.TrimSpace(recordType)
	if recordType == "" {
		return nil, missing("type")
	}
	totals, err := r.store.PerformanceTotals(ctx, recordType, r.rankingSize)
	if err != nil {
		return nil, fmt.Errorf("failed to total performance: %w", err)
	}
	entries := make([]RankedEntry, len(totals))
	for i, t := range totals {
		entries[i] = RankedEntry{
			Rank:     i + 1,
			StaffID:  t.Staff.ID,
			Username: t.Staff.Username,
			Name:     t.Staff.Name(),
			Total:    t.Total,
		}
	}
	return entries, nil
}
