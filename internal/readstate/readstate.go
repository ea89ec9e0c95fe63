// Package readstate tracks the highest item version a reader has been
// exposed to, so the UI can flag "updated since last seen" without
// diffing content.
package readstate

import "github.com/abelbrown/daybook/internal/model"

// MarkRead returns a new map with the item's version recorded. The
// stored version never decreases: a re-open of an older revision keeps
// the highest version already seen. The input map is not modified.
func MarkRead(it model.Item, read model.ReadItems) model.ReadItems {
	out := make(model.ReadItems, len(read)+1)
	for id, v := range read {
		out[id] = v
	}
	if it.Version > out[it.ID] {
		out[it.ID] = it.Version
	} else if _, ok := out[it.ID]; !ok {
		out[it.ID] = 0
	}
	return out
}

// IsUnread reports whether the item's current version differs from the
// version last seen. An item never marked read is unread.
func IsUnread(it model.Item, read model.ReadItems) bool {
	seen, ok := read[it.ID]
	if !ok {
		return true
	}
	return seen != it.Version
}
