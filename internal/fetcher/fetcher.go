// Package fetcher downloads and parses the backend's RSS feeds for previews.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"werss_bot/internal/filter"
)

const (
	maxFeedSize    = 5 * 1024 * 1024
	maxDescription = 300
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result holds the outcome of fetching and filtering an RSS feed.
type Result struct {
	Items []MatchedItem
	Title string
	Total int
}

// MatchedItem represents a single RSS item that passed filtering.
type MatchedItem struct {
	Title       string
	Description string
	Link        string
}

// Fetcher downloads and parses RSS feeds.
type Fetcher struct {
	client HTTPClient
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// FeedPath returns the feed location of a subscription relative to the
// backend root.
func FeedPath(mpID string) string {
	return "feed/" + mpID + ".rss"
}

// Fetch downloads and parses an RSS feed. A non-empty token is sent as a
// bearer credential.
func (f *Fetcher) Fetch(ctx context.Context, url, token string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "WeRSSConsole/1.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Preview fetches a feed and keeps the items matching any of terms, at most
// limit of them when limit is positive.
func (f *Fetcher) Preview(ctx context.Context, url, token string, terms []string, limit int) (*Result, error) {
	feed, err := f.Fetch(ctx, url, token)
	if err != nil {
		return nil, err
	}
	items := FilterItems(feed.Items, terms)
	res := &Result{Title: feed.Title, Total: len(items)}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	res.Items = items
	return res, nil
}

// FilterItems returns the items matching any of terms. Descriptions are
// reduced to plain text and truncated.
func FilterItems(items []*gofeed.Item, terms []string) []MatchedItem {
	var matched []MatchedItem
	for _, item := range items {
		desc := PlainText(item.Description)
		fi := filter.FeedItem{
			Title:       item.Title,
			Description: desc,
		}
		if !filter.Match(fi, terms) {
			continue
		}
		matched = append(matched, MatchedItem{
			Title:       item.Title,
			Description: Truncate(desc, maxDescription),
			Link:        item.Link,
		})
	}
	return matched
}

// PlainText strips HTML markup and collapses whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
