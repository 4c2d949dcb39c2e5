// internal/web/fetch.go
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const maxPageChars = 50000

// Page is one fetched web page converted to markdown.
type Page struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

// Fetcher is the URL-in, page-text-out collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// PageFetcher fetches a URL and converts its HTML content to markdown,
// consulting a TTL cache first.
type PageFetcher struct {
	client *http.Client
	cache  *PageCache
}

// NewPageFetcher creates a fetcher backed by the given cache. The cache
// may be nil to disable caching.
func NewPageFetcher(cache *PageCache) *PageFetcher {
	return &PageFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
	}
}

// Fetch returns the page at pageURL as markdown. Fresh cache entries
// are served without a network round trip.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if f.cache != nil {
		if page, ok := f.cache.Get(pageURL); ok {
			return page, nil
		}
	}

	page, err := f.fetch(ctx, pageURL)
	if err != nil {
		// Serve a stale entry rather than failing outright.
		if f.cache != nil {
			if stale, ok := f.cache.GetStale(pageURL); ok {
				return stale, nil
			}
		}
		return nil, err
	}

	if f.cache != nil {
		f.cache.Put(pageURL, page)
	}
	return page, nil
}

func (f *PageFetcher) fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "SchoolAgent/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	if len(md) > maxPageChars {
		md = md[:maxPageChars] + "\n\n[Content truncated]"
	}

	return &Page{URL: pageURL, Markdown: md}, nil
}
