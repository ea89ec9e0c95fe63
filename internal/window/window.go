// Package window resolves the active date filter into a concrete
// search window: the from/to bounds sent to the search backend and the
// local min/max boundaries the group builder clips buckets to.
//
// All functions are pure. The current time is passed in explicitly so
// rolling windows are testable on any day of the week.
package window

import (
	"strings"
	"time"

	"github.com/abelbrown/daybook/internal/model"
)

// Relative date tokens understood by the backend. The "now/" prefix is
// reserved: any from-date starting with it is resolved at query time
// rather than treated as a calendar date.
const (
	RelativePrefix = "now/"
	TokenToday     = "now/d"
	TokenWeek      = "now/w"
	TokenMonth     = "now/M"
)

// Backend date layouts. DateLayout is used for plain calendar days,
// DateTimeLayout for the featured rolling window which carries the
// current wall-clock time.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// FilterState is the reader's active filter selection.
type FilterState struct {
	// ActiveDate is the single date the view is centered on.
	ActiveDate time.Time

	// CreatedFrom / CreatedTo form an explicit range. Each is either a
	// calendar date in DateLayout or a relative token such as "now/w".
	// When set, the range wins over ActiveDate.
	CreatedFrom string
	CreatedTo   string

	// NavigationIDs are the selected navigation filters, if any.
	NavigationIDs []string

	Bookmarks    bool
	EventsOnly   bool
	FeaturedOnly bool

	// WeekStart picks the first day of the week for "now/w" boundaries.
	WeekStart time.Weekday

	// Location is the viewer's timezone. Nil means now's location.
	Location *time.Location
}

// IsRelative reports whether s is a relative date token.
func IsRelative(s string) bool {
	return strings.HasPrefix(s, RelativePrefix)
}

// featured reports whether the featured rolling-window mode is active:
// no navigation selected, not bookmarks, not the events-only view, and
// the featured flag on.
func (f FilterState) featured() bool {
	return f.FeaturedOnly && !f.Bookmarks && !f.EventsOnly && len(f.NavigationIDs) == 0
}

// Resolve turns the filter state into a search window. It never fails:
// absent or unparseable filters yield open (nil) boundaries.
func Resolve(f FilterState, now time.Time) model.SearchWindow {
	loc := f.Location
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)

	var w model.SearchWindow

	switch {
	case f.featured():
		// Rolling window: the active calendar day combined with the
		// current wall-clock time, so the backend returns stories
		// published within the trailing hours rather than a fixed day.
		active := f.ActiveDate.In(loc)
		from := time.Date(active.Year(), active.Month(), active.Day(),
			now.Hour(), now.Minute(), now.Second(), 0, loc)
		w.FromDate = from.Format(DateTimeLayout)
	case f.CreatedFrom != "" || f.CreatedTo != "":
		w.FromDate = f.CreatedFrom
	case !f.ActiveDate.IsZero():
		w.FromDate = f.ActiveDate.In(loc).Format(DateLayout)
	}

	// A relative from-date doubles as the to-date, producing an open
	// rolling window; otherwise the explicit range end is used as given.
	if IsRelative(f.CreatedFrom) {
		w.ToDate = f.CreatedFrom
	} else {
		w.ToDate = f.CreatedTo
	}

	// Bookmarked items are unbounded by date.
	if f.Bookmarks {
		return w
	}

	if IsRelative(w.FromDate) {
		min, max := relativeBounds(w.FromDate, now, f.WeekStart)
		w.MinDate = &min
		w.MaxDate = &max
		return w
	}

	if w.ToDate != "" {
		if t, ok := parseDate(w.ToDate, loc); ok {
			max := EndOfDay(t)
			w.MaxDate = &max
		}
	}
	if w.FromDate != "" {
		if t, ok := parseDate(w.FromDate, loc); ok {
			min := StartOfDay(t)
			w.MinDate = &min
		}
	}

	return w
}

// relativeBounds resolves a relative token into concrete local bucket
// boundaries. Unknown tokens collapse to today.
func relativeBounds(token string, now time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	switch token {
	case TokenWeek:
		min := StartOfWeek(now, weekStart)
		return min, EndOfDay(min.AddDate(0, 0, 6))
	case TokenMonth:
		return StartOfMonth(now), EndOfMonth(now)
	default:
		return StartOfDay(now), EndOfDay(now)
	}
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(DateTimeLayout, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
