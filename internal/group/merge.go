package group

import (
	"sort"

	"github.com/abelbrown/daybook/internal/model"
)

// Merge folds a newly fetched page's groups into previously known
// group state. The result holds the union of all distinct date keys,
// sorted ascending; within each key, Items and HiddenItems are the
// de-duplicated concatenation of existing then incoming, first
// occurrence winning.
//
// Merge is purely additive and idempotent: merging the same incoming
// page twice is the same as merging it once. Callers decide when to
// discard prior state; a fresh, non-paginated fetch clears groups
// before the builder runs, so there is nothing to merge.
func Merge(existing, incoming []model.Group) []model.Group {
	if len(incoming) == 0 {
		return append([]model.Group(nil), existing...)
	}
	if len(existing) == 0 {
		return append([]model.Group(nil), incoming...)
	}

	byKey := make(map[string]*model.Group, len(existing)+len(incoming))
	var keys []string

	fold := func(groups []model.Group) {
		for _, g := range groups {
			dst, ok := byKey[g.Date]
			if !ok {
				dst = &model.Group{Date: g.Date}
				byKey[g.Date] = dst
				keys = append(keys, g.Date)
			}
			dst.Items = appendUnique(dst.Items, g.Items)
			dst.HiddenItems = appendUnique(dst.HiddenItems, g.HiddenItems)
		}
	}
	fold(existing)
	fold(incoming)

	sort.Strings(keys)
	merged := make([]model.Group, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, *byKey[key])
	}
	return merged
}

// appendUnique appends the ids not already present in dst, preserving
// first-seen order.
func appendUnique(dst, ids []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, id := range dst {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			dst = append(dst, id)
		}
	}
	return dst
}
