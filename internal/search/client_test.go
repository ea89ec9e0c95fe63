package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/daybook/internal/model"
)

func TestSearchDecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("expected page=2, got %q", got)
		}
		if got := r.URL.Query().Get("date_from"); got != "2024-01-15" {
			t.Errorf("expected date_from=2024-01-15, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"_id":"a","type":"event","name":"Launch","version":2}],"total":41}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	resp, err := c.Search(context.Background(), Query{
		Window:   model.SearchWindow{FromDate: "2024-01-15"},
		Page:     2,
		PageSize: 25,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if resp.Total != 41 {
		t.Errorf("expected total 41, got %d", resp.Total)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "a" || resp.Items[0].Version != 2 {
		t.Errorf("unexpected items: %+v", resp.Items)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Search(context.Background(), Query{Page: 1}); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSearchContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("http://127.0.0.1:0", time.Second)
	if _, err := c.Search(ctx, Query{Page: 1}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestEncodeQueryDefaults(t *testing.T) {
	got := encodeQuery(Query{})
	if got != "page=1" {
		t.Errorf("expected bare page=1, got %q", got)
	}
}

func TestEncodeQueryFull(t *testing.T) {
	q := Query{
		Window:        model.SearchWindow{FromDate: "now/w", ToDate: "now/w"},
		Page:          3,
		PageSize:      50,
		FeaturedOnly:  true,
		EventsOnly:    true,
		NavigationIDs: []string{"sports", "politics"},
		BookmarkIDs:   []string{"a", "b"},
	}
	got := encodeQuery(q)

	for _, want := range []string{
		"date_from=now%2Fw",
		"date_to=now%2Fw",
		"page=3",
		"page_size=50",
		"featured=true",
		"item_type=event",
		"navigation=sports%2Cpolitics",
		"bookmarks=a%2Cb",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in query string %q", want, got)
		}
	}
}
