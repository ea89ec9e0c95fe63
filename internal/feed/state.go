// Package feed holds the list state for the grouped calendar feed and
// the explicit state machine that drives it.
//
// Every transition is a pure value-to-value function: the caller owns
// when to invoke them and what to do with the result, so the machine
// runs unchanged under any dispatch loop. Nothing here blocks.
package feed

import (
	"github.com/abelbrown/daybook/internal/group"
	"github.com/abelbrown/daybook/internal/model"
)

// State names the phase the list is in.
type State int

const (
	// StateIdle: the list reflects the last completed fetch.
	StateIdle State = iota
	// StateQuerying: a fresh (page 1) query is in flight; groups have
	// already been cleared.
	StateQuerying
	// StateLoadingPage: a load-more page is in flight; existing groups
	// stay on screen.
	StateLoadingPage
	// StateError: the last fetch failed; groups retain the prior state.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQuerying:
		return "querying"
	case StateLoadingPage:
		return "loading-page"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ListItemsState is the grouped list as the UI renders it. Groups are
// sorted ascending by date key. HiddenGroupsShown and
// HiddenItemsLoading are ephemeral per-query UI state, reset together
// with Groups on every fresh query.
type ListItemsState struct {
	Groups             []model.Group
	HiddenGroupsShown  map[string]bool
	HiddenItemsLoading bool
}

// Machine is the list state machine. Zero value is a usable Idle
// machine with an empty list.
type Machine struct {
	State State
	List  ListItemsState

	// Page is the highest page fetched so far (0 before any fetch).
	Page int
	// PageSize is the backend page size, used to decide HasMore.
	PageSize int
	// Total is the backend's full match count from the last response.
	Total int

	// Err is set only in StateError.
	Err error
}

// StartQuery begins a fresh query. Groups are cleared unconditionally
// before any response can arrive, which is also what resolves the race
// with an older in-flight load-more: the reset happens first, and a
// late page merge afterwards is tolerated as purely additive.
func (m Machine) StartQuery() Machine {
	m.State = StateQuerying
	m.List = ListItemsState{
		Groups:            nil,
		HiddenGroupsShown: map[string]bool{},
	}
	m.Page = 0
	m.Total = 0
	m.Err = nil
	return m
}

// StartLoadPage begins fetching the next page. No-op unless Idle with
// more pages available.
func (m Machine) StartLoadPage() Machine {
	if m.State != StateIdle || !m.HasMore() {
		return m
	}
	m.State = StateLoadingPage
	m.Err = nil
	return m
}

// ApplyQueryResult installs the groups built from a fresh page-1
// response. Prior groups were already discarded by StartQuery.
func (m Machine) ApplyQueryResult(groups []model.Group, total int) Machine {
	m.State = StateIdle
	m.List.Groups = groups
	m.List.HiddenItemsLoading = false
	m.Page = 1
	m.Total = total
	m.Err = nil
	return m
}

// ApplyPageResult folds a load-more page into the existing groups.
// A stale page arriving after a fresh query reset still merges: the
// merge is additive and idempotent, so at worst a few out-of-context
// ids linger until the next interaction.
func (m Machine) ApplyPageResult(groups []model.Group, total int) Machine {
	m.State = StateIdle
	m.List.Groups = group.Merge(m.List.Groups, groups)
	m.List.HiddenItemsLoading = false
	m.Page++
	m.Total = total
	m.Err = nil
	return m
}

// ApplyRefetch replaces the groups with a re-pull of every loaded page,
// triggered by a server push. Page count is whatever the re-pull
// covered; expansion toggles survive since the bucket keys are stable.
func (m Machine) ApplyRefetch(groups []model.Group, total, page int) Machine {
	m.State = StateIdle
	m.List.Groups = groups
	m.Page = page
	m.Total = total
	m.Err = nil
	return m
}

// Fail records a fetch failure. Groups keep their prior contents so
// the reader does not lose the list over a transient error.
func (m Machine) Fail(err error) Machine {
	m.State = StateError
	m.List.HiddenItemsLoading = false
	m.Err = err
	return m
}

// ToggleHiddenGroup flips whether a bucket's continuation rows are
// expanded.
func (m Machine) ToggleHiddenGroup(date string) Machine {
	shown := make(map[string]bool, len(m.List.HiddenGroupsShown)+1)
	for k, v := range m.List.HiddenGroupsShown {
		shown[k] = v
	}
	shown[date] = !shown[date]
	m.List.HiddenGroupsShown = shown
	return m
}

// HasMore reports whether the backend holds pages beyond the last one
// fetched.
func (m Machine) HasMore() bool {
	if m.Page == 0 || m.PageSize <= 0 {
		return false
	}
	return m.Page*m.PageSize < m.Total
}

// HiddenShown reports whether the bucket's continuations are expanded.
func (m Machine) HiddenShown(date string) bool {
	return m.List.HiddenGroupsShown[date]
}
