// Package search provides the HTTP client for the calendar search
// backend. The backend returns one ranked page of already-expanded
// occurrences per call; grouping and merging happen client-side.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/daybook/internal/model"
)

// Query describes one page request against the backend.
type Query struct {
	Window model.SearchWindow

	// Page is 1-based. Page 1 is a fresh query; pages ≥2 are folded
	// into existing group state by the caller.
	Page     int
	PageSize int

	FeaturedOnly  bool
	EventsOnly    bool
	NavigationIDs []string

	// BookmarkIDs restricts the result to the reader's bookmarked
	// items; bookmarked queries are unbounded by date.
	BookmarkIDs []string
}

// Response is one page of search results. Items arrive in the
// backend's ranking order; Total is the full match count across pages.
type Response struct {
	Items []model.Item `json:"items"`
	Total int          `json:"total"`
}

// Client talks to the search backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search fetches one page of items. The caller is expected to pass
// only well-formed queries; transport and decode failures are returned
// wrapped, never as partial payloads.
func (c *Client) Search(ctx context.Context, q Query) (*Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+encodeQuery(q), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Daybook/1.0 (https://github.com/abelbrown/daybook)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", q.Page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// encodeQuery serializes the query into backend URL parameters.
// Date bounds travel as the already-formatted from/to strings; local
// bucket boundaries stay client-side.
func encodeQuery(q Query) string {
	v := url.Values{}
	if q.Window.FromDate != "" {
		v.Set("date_from", q.Window.FromDate)
	}
	if q.Window.ToDate != "" {
		v.Set("date_to", q.Window.ToDate)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.FeaturedOnly {
		v.Set("featured", "true")
	}
	if q.EventsOnly {
		v.Set("item_type", "event")
	}
	if len(q.NavigationIDs) > 0 {
		v.Set("navigation", strings.Join(q.NavigationIDs, ","))
	}
	if len(q.BookmarkIDs) > 0 {
		v.Set("bookmarks", strings.Join(q.BookmarkIDs, ","))
	}
	return v.Encode()
}
