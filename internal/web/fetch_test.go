// internal/web/fetch_test.go
package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchConvertsToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Admissions</h1><p>Apply online.</p></body></html>"))
	}))
	defer server.Close()

	f := NewPageFetcher(nil)
	page, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(page.Markdown, "Admissions") {
		t.Errorf("markdown missing heading: %q", page.Markdown)
	}
	if page.URL != server.URL {
		t.Errorf("url = %q", page.URL)
	}
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("<p>cached content</p>"))
	}))
	defer server.Close()

	cache := NewPageCache(time.Hour)
	f := NewPageFetcher(cache)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", hits.Load())
	}
}

func TestFetchServesStaleOnFailure(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<p>original</p>"))
	}))
	defer server.Close()

	cache := NewPageCache(time.Nanosecond)
	f := NewPageFetcher(cache)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	fail.Store(true)

	page, err := f.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatal("expected stale fallback, got:", err)
	}
	if !strings.Contains(page.Markdown, "original") {
		t.Errorf("stale content lost: %q", page.Markdown)
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewPageFetcher(nil)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestPageCacheInvalidate(t *testing.T) {
	cache := NewPageCache(time.Hour)
	cache.Put("https://a", &Page{URL: "https://a", Markdown: "a"})
	cache.Put("https://b", &Page{URL: "https://b", Markdown: "b"})
	if cache.Len() != 2 {
		t.Fatalf("len = %d", cache.Len())
	}
	cache.Invalidate()
	if cache.Len() != 0 {
		t.Errorf("cache not cleared, len = %d", cache.Len())
	}
	if _, ok := cache.Get("https://a"); ok {
		t.Error("entry survived invalidation")
	}
}
