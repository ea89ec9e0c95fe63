// Package coord coordinates fetch cycles for the grouped feed: it
// resolves the active filter into a search window, pulls one page from
// the backend, caches the items, and buckets them into groups. The
// list state machine consumes its results; it never touches UI state
// itself.
package coord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/daybook/internal/group"
	"github.com/abelbrown/daybook/internal/logging"
	"github.com/abelbrown/daybook/internal/model"
	"github.com/abelbrown/daybook/internal/search"
	"github.com/abelbrown/daybook/internal/window"
)

// fetchTimeout bounds each individual page fetch.
const fetchTimeout = 30 * time.Second

// maxConcurrentRefetch limits parallel page fetches during a refetch.
const maxConcurrentRefetch = 4

// Searcher is the search backend dependency, an interface for testing.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

// ItemSink receives fetched items for caching. *model.Store satisfies it.
type ItemSink interface {
	SaveItems(items []model.Item) (int, error)
}

// Params describes one fetch: the reader's filter plus view options.
type Params struct {
	Filter      window.FilterState
	Granularity group.Granularity
	PageSize    int

	// BookmarkIDs restricts the fetch to the reader's bookmarked items
	// when Filter.Bookmarks is set.
	BookmarkIDs []string
}

// Result is one fetched page, grouped and ready for the state machine.
type Result struct {
	Groups []model.Group
	Items  []model.Item
	Total  int
	Window model.SearchWindow
	Page   int
}

// Coordinator owns the fetch cycle. Safe for use from a single
// dispatch loop; individual fetches run with their own timeout.
type Coordinator struct {
	searcher Searcher
	sink     ItemSink
	now      func() time.Time

	mu       sync.Mutex
	lastSeen time.Time // most recent fetch completion, for status display
}

// New creates a Coordinator.
func New(searcher Searcher, sink ItemSink) *Coordinator {
	return &Coordinator{
		searcher: searcher,
		sink:     sink,
		now:      time.Now,
	}
}

// FreshQuery fetches page 1 for the given params. The caller resets
// its group state via the machine before applying the result.
func (c *Coordinator) FreshQuery(ctx context.Context, p Params) (*Result, error) {
	return c.fetchPage(ctx, p, 1)
}

// LoadPage fetches the given page (≥2) for merging into existing state.
func (c *Coordinator) LoadPage(ctx context.Context, p Params, page int) (*Result, error) {
	if page < 2 {
		return nil, fmt.Errorf("load page: page %d is not a pagination fetch", page)
	}
	return c.fetchPage(ctx, p, page)
}

// fetchPage resolves the window, pulls one page, caches the items and
// buckets them.
func (c *Coordinator) fetchPage(ctx context.Context, p Params, page int) (*Result, error) {
	w := window.Resolve(p.Filter, c.now())

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	resp, err := c.searcher.Search(fetchCtx, search.Query{
		Window:        w,
		Page:          page,
		PageSize:      p.PageSize,
		FeaturedOnly:  p.Filter.FeaturedOnly,
		EventsOnly:    p.Filter.EventsOnly,
		NavigationIDs: p.Filter.NavigationIDs,
		BookmarkIDs:   p.BookmarkIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("search page %d: %w", page, err)
	}

	if _, err := c.sink.SaveItems(resp.Items); err != nil {
		// Cache failures are not fetch failures; the page still renders.
		logging.Warn("item cache save failed", "page", page, "error", err)
	}

	groups := group.Build(resp.Items, c.buildOptions(p, w))

	c.mu.Lock()
	c.lastSeen = c.now()
	c.mu.Unlock()

	logging.Debug("page fetched",
		"page", page,
		"items", len(resp.Items),
		"groups", len(groups),
		"total", resp.Total)

	return &Result{
		Groups: groups,
		Items:  resp.Items,
		Total:  resp.Total,
		Window: w,
		Page:   page,
	}, nil
}

// Refetch re-pulls every page loaded so far after a push notification,
// fetching pages in parallel and merging their groups back in page
// order. The result replaces the list wholesale, like a fresh query
// that preserves pagination depth.
func (c *Coordinator) Refetch(ctx context.Context, p Params, pages int) (*Result, error) {
	if pages < 1 {
		pages = 1
	}

	w := window.Resolve(p.Filter, c.now())
	results := make([]*search.Response, pages)

	var g errgroup.Group
	g.SetLimit(maxConcurrentRefetch)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			resp, err := c.searcher.Search(fetchCtx, search.Query{
				Window:        w,
				Page:          i + 1,
				PageSize:      p.PageSize,
				FeaturedOnly:  p.Filter.FeaturedOnly,
				EventsOnly:    p.Filter.EventsOnly,
				NavigationIDs: p.Filter.NavigationIDs,
				BookmarkIDs:   p.BookmarkIDs,
			})
			if err != nil {
				return fmt.Errorf("refetch page %d: %w", i+1, err)
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := c.buildOptions(p, w)
	var merged []model.Group
	var items []model.Item
	total := 0
	for _, resp := range results {
		if _, err := c.sink.SaveItems(resp.Items); err != nil {
			logging.Warn("item cache save failed during refetch", "error", err)
		}
		merged = group.Merge(merged, group.Build(resp.Items, opts))
		items = append(items, resp.Items...)
		total = resp.Total
	}

	c.mu.Lock()
	c.lastSeen = c.now()
	c.mu.Unlock()

	return &Result{
		Groups: merged,
		Items:  items,
		Total:  total,
		Window: w,
		Page:   pages,
	}, nil
}

// LastFetch returns when the most recent fetch completed, zero before
// the first.
func (c *Coordinator) LastFetch() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Coordinator) buildOptions(p Params, w model.SearchWindow) group.BuildOptions {
	return group.BuildOptions{
		MinDate:      w.MinDate,
		MaxDate:      w.MaxDate,
		Granularity:  p.Granularity,
		FeaturedOnly: p.Filter.FeaturedOnly,
		WeekStart:    p.Filter.WeekStart,
	}
}
