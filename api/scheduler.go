/*
scheduler.go - Periodic dashboard snapshot

PURPOSE:
  Periodically recomputes the org-wide client counts and today's check-in
  headcount and publishes them as Prometheus gauges.

DESIGN:
  - Lives in the server process, next to the router; the office package
    stays request-driven and only sees ordinary reads through Services
  - Runs a background goroutine with a configurable refresh interval
  - Refreshes once immediately on start, then on every tick
  - A failed refresh is logged and leaves the previous values in place
  - "Today" is taken in Location, the office's business zone, so the
    check-in headcount does not depend on the host's TZ

CONFIGURATION:
  - Interval: How often to refresh (default: 1 minute)
  - Enabled:  Whether the scheduler runs at all (default: true)
  - Location: Business time zone (default: the clock's own zone)

USAGE:
  scheduler := NewStatsScheduler(services, metricsManager, log)
  scheduler.Location = cfg.Location()
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - office/report.go: Reporter.Statistics
  - metrics/metrics.go: SetClientCounts, SetCheckedIn
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/metrics"
)

// StatsScheduler refreshes the snapshot gauges.
type StatsScheduler struct {
	Interval time.Duration
	Enabled  bool
	Location *time.Location

	svc     Services
	metrics *metrics.Manager
	log     logger.Logger
	now     func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards ticker and stop

	lastMu  sync.Mutex // guards lastRun, never taken while holding mu
	lastRun time.Time
}

// NewStatsScheduler creates a scheduler publishing to m.
func NewStatsScheduler(svc Services, m *metrics.Manager, log logger.Logger) *StatsScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &StatsScheduler{
		Interval: time.Minute,
		Enabled:  true,
		svc:      svc,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (s *StatsScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info(context.Background(), "stats scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.Info(context.Background(), "stats scheduler started", logger.Any("interval", s.Interval))
}

// Stop halts the scheduler and waits for an in-flight refresh to finish.
func (s *StatsScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info(context.Background(), "stats scheduler stopped")
}

func (s *StatsScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Refresh immediately on start
	s.refreshLogged()

	for {
		select {
		case <-ticker.C:
			s.refreshLogged()
		case <-stop:
			return
		}
	}
}

func (s *StatsScheduler) refreshLogged() {
	ctx := context.Background()
	if err := s.RunNow(ctx); err != nil {
		s.log.Error(ctx, "failed to refresh stats", logger.Error(err))
	}
}

// RunNow refreshes the gauges synchronously.
func (s *StatsScheduler) RunNow(ctx context.Context) error {
	now := s.now()
	if s.Location != nil {
		now = now.In(s.Location)
	}

	stats, err := s.svc.Reporter.Statistics(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}
	roster, err := s.svc.Directory.Roster(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	checkedIn := 0
	for _, entry := range roster {
		if entry.CheckedIn {
			checkedIn++
		}
	}

	s.metrics.SetClientCounts(stats.Totals.Total, stats.Totals.Undistributed, stats.Totals.Contracts)
	s.metrics.SetCheckedIn(checkedIn)

	s.lastMu.Lock()
	s.lastRun = now
	s.lastMu.Unlock()

	s.log.Debug(ctx, "stats refreshed",
		logger.Int("clients", stats.Totals.Total),
		logger.Int("undistributed", stats.Totals.Undistributed),
		logger.Int("checked_in", checkedIn),
	)
	return nil
}

// NextRunTime estimates when the next refresh happens. Zero before the
// first run.
func (s *StatsScheduler) NextRunTime() time.Time {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()

	if s.lastRun.IsZero() {
		return time.Time{}
	}
	return s.lastRun.Add(s.Interval)
}
