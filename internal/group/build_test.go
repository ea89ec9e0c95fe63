package group

import (
	"testing"
	"time"

	"github.com/abelbrown/daybook/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func spanItem(id string, start, end time.Time) model.Item {
	return model.Item{
		ID:    id,
		Type:  model.TypeEvent,
		Name:  "Item " + id,
		Dates: model.Dates{Start: start, End: end},
	}
}

func boundedOpts(min, max time.Time) BuildOptions {
	return BuildOptions{MinDate: &min, MaxDate: &max, Granularity: Day}
}

// collectIDs returns the union of all visible and hidden ids.
func collectIDs(groups []model.Group) map[string]bool {
	ids := make(map[string]bool)
	for _, g := range groups {
		for _, id := range g.Items {
			ids[id] = true
		}
		for _, id := range g.HiddenItems {
			ids[id] = true
		}
	}
	return ids
}

func TestBuildSingleDayItem(t *testing.T) {
	items := []model.Item{
		spanItem("a", day(2024, 1, 15).Add(9*time.Hour), day(2024, 1, 15).Add(10*time.Hour)),
	}

	groups := Build(items, BuildOptions{Granularity: Day})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Date != "2024-01-15" {
		t.Errorf("expected key 2024-01-15, got %q", groups[0].Date)
	}
	if len(groups[0].Items) != 1 || groups[0].Items[0] != "a" {
		t.Errorf("expected visible [a], got %v", groups[0].Items)
	}
	if len(groups[0].HiddenItems) != 0 {
		t.Errorf("expected no hidden items, got %v", groups[0].HiddenItems)
	}
}

func TestBuildThreeDaySpan(t *testing.T) {
	// A 3-day item fully inside the window: first day visible, the two
	// remaining days hidden continuations.
	items := []model.Item{
		spanItem("a", day(2024, 1, 15).Add(9*time.Hour), day(2024, 1, 17).Add(17*time.Hour)),
	}

	groups := Build(items, boundedOpts(day(2024, 1, 1), day(2024, 1, 31)))

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	visible, hiddenCount := 0, 0
	for _, g := range groups {
		visible += len(g.Items)
		hiddenCount += len(g.HiddenItems)
	}
	if visible != 1 {
		t.Errorf("expected item visible in exactly 1 group, got %d", visible)
	}
	if hiddenCount != 2 {
		t.Errorf("expected 2 hidden continuations, got %d", hiddenCount)
	}
	if groups[0].Date != "2024-01-15" || len(groups[0].Items) != 1 {
		t.Errorf("expected first spanned bucket to hold the visible id, got %+v", groups[0])
	}
	if len(groups[1].HiddenItems) != 1 || len(groups[2].HiddenItems) != 1 {
		t.Errorf("expected trailing buckets to hold continuations, got %+v", groups)
	}
}

func TestBuildClipsSpanToWindow(t *testing.T) {
	// Item runs Jan 30 .. Feb 2; window ends Jan 31.
	items := []model.Item{
		spanItem("a", day(2024, 1, 30), day(2024, 2, 2)),
	}

	groups := Build(items, boundedOpts(day(2024, 1, 1), day(2024, 1, 31).Add(23*time.Hour)))

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups (clipped), got %d", len(groups))
	}
	if groups[1].Date != "2024-01-31" {
		t.Errorf("expected last bucket 2024-01-31, got %q", groups[1].Date)
	}
}

func TestBuildDropsNothingInsideWindow(t *testing.T) {
	items := []model.Item{
		spanItem("a", day(2024, 1, 10), day(2024, 1, 12)),
		spanItem("b", day(2024, 1, 11), day(2024, 1, 11)),
		spanItem("c", day(2024, 1, 20), day(2024, 1, 20)),
		{ID: "d", Name: "no dates", VersionCreated: day(2024, 1, 5)},
	}

	groups := Build(items, boundedOpts(day(2024, 1, 1), day(2024, 1, 31)))

	ids := collectIDs(groups)
	for _, want := range []string{"a", "b", "c", "d"} {
		if !ids[want] {
			t.Errorf("expected id %q somewhere in the groups", want)
		}
	}
}

func TestBuildItemWhollyOutsideWindow(t *testing.T) {
	items := []model.Item{
		spanItem("out", day(2024, 3, 10), day(2024, 3, 11)),
	}

	groups := Build(items, boundedOpts(day(2024, 1, 1), day(2024, 1, 31)))

	if len(groups) != 0 {
		t.Errorf("expected no groups for item outside the window, got %+v", groups)
	}
}

func TestBuildMalformedDatesFallBack(t *testing.T) {
	items := []model.Item{
		{ID: "x", Name: "broken", VersionCreated: day(2024, 1, 8)},
	}

	groups := Build(items, boundedOpts(day(2024, 1, 1), day(2024, 1, 31)))

	if len(groups) != 1 {
		t.Fatalf("expected 1 fallback group, got %d", len(groups))
	}
	if groups[0].Date != "2024-01-08" {
		t.Errorf("expected versioncreated-keyed bucket, got %q", groups[0].Date)
	}
	if len(groups[0].Items) != 1 || groups[0].Items[0] != "x" {
		t.Errorf("expected item visible in fallback bucket, got %+v", groups[0])
	}
}

func TestBuildFeaturedSkipsExpansion(t *testing.T) {
	items := []model.Item{
		spanItem("a", day(2024, 1, 15), day(2024, 1, 18)),
	}

	min, max := day(2024, 1, 1), day(2024, 1, 31)
	groups := Build(items, BuildOptions{
		MinDate: &min, MaxDate: &max,
		Granularity:  Day,
		FeaturedOnly: true,
	})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group in featured mode, got %d", len(groups))
	}
	if groups[0].Date != "2024-01-15" || len(groups[0].HiddenItems) != 0 {
		t.Errorf("expected a single visible occurrence in the start bucket, got %+v", groups[0])
	}
}

func TestBuildNoBoundsUsesStartBucket(t *testing.T) {
	items := []model.Item{
		spanItem("a", day(2024, 1, 15), day(2024, 1, 18)),
	}

	groups := Build(items, BuildOptions{Granularity: Day})

	if len(groups) != 1 || groups[0].Date != "2024-01-15" {
		t.Errorf("expected single start-derived bucket without bounds, got %+v", groups)
	}
}

func TestBuildWeekGranularity(t *testing.T) {
	// Jan 15 2024 is a Monday. A span Jan 17 .. Jan 23 touches two
	// Monday-start weeks.
	items := []model.Item{
		spanItem("a", day(2024, 1, 17), day(2024, 1, 23)),
	}

	min, max := day(2024, 1, 1), day(2024, 1, 31)
	groups := Build(items, BuildOptions{
		MinDate: &min, MaxDate: &max,
		Granularity: Week,
		WeekStart:   time.Monday,
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 week groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].Date != "2024-01-15" || groups[1].Date != "2024-01-22" {
		t.Errorf("expected week keys 2024-01-15 and 2024-01-22, got %q and %q",
			groups[0].Date, groups[1].Date)
	}
	if len(groups[0].Items) != 1 || len(groups[1].HiddenItems) != 1 {
		t.Errorf("expected visible in first week, hidden in second, got %+v", groups)
	}
}

func TestBuildMonthGranularity(t *testing.T) {
	items := []model.Item{
		spanItem("a", day(2024, 1, 30), day(2024, 2, 2)),
	}

	min, max := day(2024, 1, 1), day(2024, 3, 31)
	groups := Build(items, BuildOptions{
		MinDate: &min, MaxDate: &max,
		Granularity: Month,
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 month groups, got %d", len(groups))
	}
	if groups[0].Date != "2024-01" || groups[1].Date != "2024-02" {
		t.Errorf("expected month keys 2024-01 and 2024-02, got %q and %q",
			groups[0].Date, groups[1].Date)
	}
}

func TestBuildGroupsSortedAscending(t *testing.T) {
	items := []model.Item{
		spanItem("late", day(2024, 1, 20), day(2024, 1, 20)),
		spanItem("early", day(2024, 1, 5), day(2024, 1, 5)),
	}

	groups := Build(items, boundedOpts(day(2024, 1, 1), day(2024, 1, 31)))

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Date >= groups[1].Date {
		t.Errorf("expected ascending date keys, got %q then %q", groups[0].Date, groups[1].Date)
	}
}

func TestBuildEmpty(t *testing.T) {
	groups := Build(nil, BuildOptions{Granularity: Day})
	if len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %+v", groups)
	}
}

func TestBuildPreservesServerOrderWithinBucket(t *testing.T) {
	d := day(2024, 1, 15)
	items := []model.Item{
		spanItem("first", d.Add(15*time.Hour), d.Add(16*time.Hour)),
		spanItem("second", d.Add(9*time.Hour), d.Add(10*time.Hour)),
	}

	groups := Build(items, BuildOptions{Granularity: Day})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	// Backend ranking order wins over chronological order inside a bucket.
	if groups[0].Items[0] != "first" || groups[0].Items[1] != "second" {
		t.Errorf("expected server order preserved, got %v", groups[0].Items)
	}
}
