package feed

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/feedroll/feedroll/pkg/domain"
)

// DefaultMaxBodySize limits the size of a feed document
const DefaultMaxBodySize = 10 << 20

// Parser fetches RSS/Atom/JSON feeds and converts them to domain.ParsedFeed.
// All returned errors are *domain.FeedError with connectivity, malformed or unexpected kind.
type Parser struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	policy      *bluemonday.Policy
}

// NewParser creates a new feed parser
func NewParser(timeout time.Duration, userAgent string) *Parser {
	return &Parser{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent:   userAgent,
		maxBodySize: DefaultMaxBodySize,
		policy:      bluemonday.StrictPolicy(),
	}
}

// Parse fetches and parses a feed from the given URL
func (p *Parser) Parse(ctx context.Context, feedURL string) (*domain.ParsedFeed, error) {
	body, err := p.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, p.maxBodySize+1))
	if err != nil {
		return nil, domain.NewFeedError(domain.ErrConnectivity, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > p.maxBodySize {
		return nil, domain.NewFeedError(domain.ErrMalformed, fmt.Errorf("document exceeds %d bytes", p.maxBodySize))
	}

	var tags categoryTags
	feed, err := newGofeedParser(&tags).Parse(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewFeedError(domain.ErrMalformed, fmt.Errorf("parse feed: %w", err))
	}
	if strings.TrimSpace(feed.Title) == "" && strings.TrimSpace(feed.Link) == "" && len(feed.Items) == 0 {
		return nil, domain.NewFeedError(domain.ErrMalformed, fmt.Errorf("no channel data and no entries"))
	}

	return p.convert(feedURL, feed, &tags), nil
}

// convert maps gofeed types to the normalized document
func (p *Parser) convert(feedURL string, feed *gofeed.Feed, tags *categoryTags) *domain.ParsedFeed {
	result := &domain.ParsedFeed{
		Title:    p.cleanText(feed.Title),
		Subtitle: p.cleanText(feed.Description),
		Link:     strings.TrimSpace(feed.Link),
		Entries:  make([]domain.ParsedEntry, 0, len(feed.Items)),
	}
	if feed.Image != nil {
		result.Image = strings.TrimSpace(feed.Image.URL)
	}

	base, err := url.Parse(feedURL)
	if err != nil {
		base = nil
	}

	for i, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := domain.ParsedEntry{
			Link:      resolveLink(base, item.Link),
			Title:     p.cleanText(item.Title),
			Published: item.PublishedParsed,
			Updated:   item.UpdatedParsed,
		}

		switch {
		case item.Author != nil && item.Author.Name != "":
			entry.Author = strings.TrimSpace(item.Author.Name)
		case len(item.Authors) > 0 && item.Authors[0] != nil:
			entry.Author = strings.TrimSpace(item.Authors[0].Name)
		}

		if itemTags, ok := tags.forItem(i); ok {
			entry.Tags = itemTags
		} else {
			for _, c := range item.Categories {
				entry.Tags = appendTag(entry.Tags, c, "", "")
			}
		}

		result.Entries = append(result.Entries, entry)
	}

	return result
}

// fetch retrieves content from a URL
func (p *Parser) fetch(ctx context.Context, feedURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, domain.NewFeedError(domain.ErrUnexpected, fmt.Errorf("create request: %w", err))
	}

	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	addFeedHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.NewFeedError(domain.ErrConnectivity, fmt.Errorf("fetch URL: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, domain.NewFeedError(domain.ErrConnectivity, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	return resp.Body, nil
}

// cleanText strips markup, unescapes entities and collapses whitespace
func (p *Parser) cleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(p.policy.Sanitize(s))), " ")
}

// resolveLink makes relative entry links absolute against the feed URL
func resolveLink(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if link == "" || base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	return base.ResolveReference(ref).String()
}
