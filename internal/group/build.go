// Package group provides pure transforms over fetched item pages:
// bucketing into date groups, merging paginated fetches into existing
// group state, and resolving the render order of one bucket.
// All functions are simple: items in, groups out. No side effects.
package group

import (
	"sort"
	"time"

	"github.com/abelbrown/daybook/internal/model"
	"github.com/abelbrown/daybook/internal/window"
)

// Granularity selects the calendar unit a bucket covers.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// BuildOptions controls how one fetched page is bucketed.
type BuildOptions struct {
	// MinDate / MaxDate clip multi-day spans. Nil means unbounded.
	MinDate *time.Time
	MaxDate *time.Time

	Granularity Granularity

	// FeaturedOnly skips multi-day expansion: each item appears exactly
	// once, in its start bucket.
	FeaturedOnly bool

	// WeekStart picks the first day of the week for week buckets.
	WeekStart time.Weekday
}

// Build buckets one page of items into date groups, preserving the
// server-returned item order within each bucket.
//
// The first bucket an item's span touches receives its id in Items;
// every later spanned bucket receives it in HiddenItems, marking a
// continuation that the UI collapses by default. Items with missing
// dates fall back to a bucket keyed by their versioncreated time and
// are never dropped. Buckets that end up empty are not created.
func Build(items []model.Item, opts BuildOptions) []model.Group {
	if opts.Granularity == "" {
		opts.Granularity = Day
	}

	byKey := make(map[string]*model.Group)
	var order []string

	add := func(key, id string, hidden bool) {
		g, ok := byKey[key]
		if !ok {
			g = &model.Group{Date: key}
			byKey[key] = g
			order = append(order, key)
		}
		if g.Contains(id) {
			return
		}
		if hidden {
			g.HiddenItems = append(g.HiddenItems, id)
		} else {
			g.Items = append(g.Items, id)
		}
	}

	for _, it := range items {
		keys := bucketKeys(it, opts)
		for i, key := range keys {
			add(key, it.ID, i > 0)
		}
	}

	sort.Strings(order)
	groups := make([]model.Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

// bucketKeys computes the ordered bucket keys an item's span touches,
// clipped to the window bounds. An empty result means the item lies
// wholly outside the window.
func bucketKeys(it model.Item, opts BuildOptions) []string {
	if !it.HasValidDates() {
		// Malformed dates: recover with a versioncreated-keyed bucket.
		return []string{bucketKey(it.VersionCreated, opts.Granularity, opts.WeekStart)}
	}

	start := it.Dates.Start
	if opts.FeaturedOnly || (opts.MinDate == nil && opts.MaxDate == nil) {
		return []string{bucketKey(start, opts.Granularity, opts.WeekStart)}
	}

	end := it.Dates.End
	if end.Before(start) {
		end = start
	}
	if opts.MinDate != nil && start.Before(*opts.MinDate) {
		start = *opts.MinDate
	}
	if opts.MaxDate != nil && end.After(*opts.MaxDate) {
		end = *opts.MaxDate
	}
	if end.Before(start) {
		return nil
	}

	var keys []string
	cur := bucketStart(start, opts.Granularity, opts.WeekStart)
	for !cur.After(end) {
		keys = append(keys, bucketKey(cur, opts.Granularity, opts.WeekStart))
		cur = nextBucket(cur, opts.Granularity)
	}
	return keys
}

// bucketStart normalizes t to the start of its bucket.
func bucketStart(t time.Time, g Granularity, weekStart time.Weekday) time.Time {
	switch g {
	case Week:
		return window.StartOfWeek(t, weekStart)
	case Month:
		return window.StartOfMonth(t)
	default:
		return window.StartOfDay(t)
	}
}

// nextBucket advances a bucket start to the following bucket.
func nextBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return t.AddDate(0, 0, 7)
	case Month:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// bucketKey formats the ascending-sortable key for the bucket holding t.
func bucketKey(t time.Time, g Granularity, weekStart time.Weekday) string {
	switch g {
	case Week:
		return window.StartOfWeek(t, weekStart).Format("2006-01-02")
	case Month:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
