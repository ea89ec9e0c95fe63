// Package model provides the data layer for Daybook.
//
// Item is the unit handed back by the search backend: a calendar-bound
// event or planning occurrence. The backend supplies already-expanded
// occurrences, so an Item always describes one concrete [Start, End]
// span (possibly multi-day).
package model

import "time"

// ItemType distinguishes the two kinds of calendar-bound items.
type ItemType string

const (
	TypeEvent    ItemType = "event"
	TypePlanning ItemType = "planning"
)

// Dates is the concrete occurrence span of an item.
// A zero Start means the item arrived with missing or unparseable
// dates; such items are still displayed, bucketed by VersionCreated.
type Dates struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Tz    string    `json:"tz,omitempty"`
}

// Coverage describes planned editorial coverage attached to an item
// (text, photo, video, ...). Delivery references are filled in once
// content has been published against the coverage.
type Coverage struct {
	ID           string `json:"coverage_id"`
	CoverageType string `json:"coverage_type"`
	Status       string `json:"workflow_status,omitempty"`
	DeliveryID   string `json:"delivery_id,omitempty"`
	DeliveryHref string `json:"delivery_href,omitempty"`
}

// Subject is one taxonomy entry on an item. Scheme identifies the
// vocabulary; the top-story vocabulary is what drives editorial
// prominence in bucket ordering.
type Subject struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Scheme string `json:"scheme,omitempty"`
}

// Item is a calendar-bound feed item.
type Item struct {
	ID       string   `json:"_id"`
	Type     ItemType `json:"type"`
	Name     string   `json:"name"`
	Slugline string   `json:"slugline,omitempty"`
	Location string   `json:"location,omitempty"`

	Dates     Dates      `json:"dates"`
	Coverages []Coverage `json:"coverages,omitempty"`
	Subjects  []Subject  `json:"subject,omitempty"`

	// Version increases monotonically with every edit upstream.
	Version        int       `json:"version"`
	VersionCreated time.Time `json:"versioncreated"`
}

// HasValidDates reports whether the item carries a usable start date.
func (it Item) HasValidDates() bool {
	return !it.Dates.Start.IsZero()
}

// HasCoverage reports whether at least one coverage is attached.
func (it Item) HasCoverage() bool {
	return len(it.Coverages) > 0
}

// IsTopStory reports whether the item is tagged in the given top-story
// vocabulary. An empty scheme matches nothing.
func (it Item) IsTopStory(scheme string) bool {
	if scheme == "" {
		return false
	}
	for _, s := range it.Subjects {
		if s.Scheme == scheme {
			return true
		}
	}
	return false
}

// Group is the set of item ids bucketed under one calendar day, week
// or month for display.
//
// Date is the bucket key and sorts ascending lexicographically
// ("2006-01-02" for day and week buckets, "2006-01" for month).
// Items are the visible members; HiddenItems are continuation
// occurrences of multi-day items, collapsed by default.
//
// Invariant: an id appears at most once within Items ∪ HiddenItems of
// a single group. Across groups the same id recurs legitimately when
// an item spans several buckets.
type Group struct {
	Date        string   `json:"date"`
	Items       []string `json:"items"`
	HiddenItems []string `json:"hiddenItems"`
}

// Contains reports whether id is a member of the group, visible or hidden.
func (g Group) Contains(id string) bool {
	for _, v := range g.Items {
		if v == id {
			return true
		}
	}
	for _, v := range g.HiddenItems {
		if v == id {
			return true
		}
	}
	return false
}

// SearchWindow is the resolved date filter: FromDate/ToDate are the
// backend search bounds (already formatted for the backend), MinDate
// and MaxDate are the local bucket boundaries. Nil boundary means
// unbounded on that side.
type SearchWindow struct {
	FromDate string
	ToDate   string
	MinDate  *time.Time
	MaxDate  *time.Time
}

// ReadItems maps item id to the highest version the reader has seen.
// Entries are only ever created or bumped upward.
type ReadItems map[string]int
