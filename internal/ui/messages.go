// Package ui provides the Bubble Tea TUI for Daybook.
package ui

import (
	"github.com/abelbrown/daybook/internal/coord"
	"github.com/abelbrown/daybook/internal/model"
)

// QueryDone is sent when a fresh query finishes.
type QueryDone struct {
	Result *coord.Result
	Err    error
}

// PageDone is sent when a load-more page finishes.
type PageDone struct {
	Result *coord.Result
	Page   int
	Err    error
}

// RefetchDone is sent when a push-triggered refetch of all loaded
// pages finishes.
type RefetchDone struct {
	Result *coord.Result
	Err    error
}

// ReadStateLoaded is sent once at startup with the persisted read map.
type ReadStateLoaded struct {
	Read model.ReadItems
	Err  error
}

// ReadStateSaved is sent after the read map has been persisted.
type ReadStateSaved struct {
	Err error
}

// PushReceived is sent when the push channel delivers a server event.
type PushReceived struct {
	Event string
}
