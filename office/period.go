package office

import "time"

// =============================================================================
// WINDOW - Half-open time range used by every reporting query
// =============================================================================

// Window is the half-open range [From, To).
//
// Reporting queries are always windowed by calendar month in the location of
// the "now" passed by the caller, so a month boundary is local midnight.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains returns true if t falls inside [From, To).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Month returns the key of the window's month, e.g. "2025-03".
func (w Window) Month() string {
	return w.From.Format("2006-01")
}

// MonthOf returns the calendar month containing t, in t's location.
func MonthOf(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{From: start, To: start.AddDate(0, 1, 0)}
}

// TrailingMonths returns n consecutive month windows ending with the month
// containing now, oldest first.
func TrailingMonths(now time.Time, n int) []Window {
	if n <= 0 {
		return []Window{}
	}
	// Step from the first of the month so AddDate never normalizes
	// e.g. March 31 minus one month into March 3.
	current := MonthOf(now).From
	windows := make([]Window, n)
	for i := 0; i < n; i++ {
		start := current.AddDate(0, -(n - 1 - i), 0)
		windows[i] = Window{From: start, To: start.AddDate(0, 1, 0)}
	}
	return windows
}

// DayOf returns the calendar day containing t, in t's location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns the window covering the calendar days from..to inclusive.
func DayRange(from, to time.Time) Window {
	return Window{From: DayOf(from), To: DayOf(to).AddDate(0, 0, 1)}
}

// ParseMonth parses "YYYY-MM" into the month window in loc.
func ParseMonth(s string, loc *time.Location) (Window, bool) {
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return Window{}, false
	}
	return MonthOf(t), true
}
