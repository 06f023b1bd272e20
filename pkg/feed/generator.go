package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/feedroll/feedroll/pkg/domain"
)

// Generator creates RSS and OPML documents from stored entities
type Generator struct {
	baseURL string
	title   string
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL, title string) *Generator {
	if title == "" {
		title = "feedroll"
	}
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		title:   title,
	}
}

// GenerateRSS creates an RSS 2.0 feed aggregating the given posts
func (g *Generator) GenerateRSS(posts []domain.PostWithFeed, buildTime time.Time) (string, error) {
	rssItems := make([]*RSSItem, 0, len(posts))
	for _, p := range posts {
		rssItems = append(rssItems, g.convertToRSSItem(p))
	}

	feed := &RSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &RSSChannel{
			Title:         g.title,
			Link:          g.baseURL + "/",
			Description:   fmt.Sprintf("%s - aggregated posts", g.title),
			AtomLink:      &AtomLink{Href: g.baseURL + "/rss.xml", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: buildTime.Format(time.RFC1123Z),
			Items:         rssItems,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}

	return xml.Header + string(output), nil
}

// convertToRSSItem converts a stored post to an RSS item
func (g *Generator) convertToRSSItem(p domain.PostWithFeed) *RSSItem {
	categories := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t.Label != "" {
			categories = append(categories, t.Label)
			continue
		}
		categories = append(categories, t.Term)
	}

	item := &RSSItem{
		Title:      p.Title,
		Link:       p.Link,
		GUID:       p.Link,
		Author:     p.Author,
		PubDate:    p.PublicationDate.Format(time.RFC1123Z),
		Categories: categories,
	}
	if p.FeedLink != "" {
		item.Source = &RSSSource{URL: p.FeedLink, Title: p.FeedTitle}
	}
	return item
}

// GenerateOPML creates an OPML file with feed subscriptions
func (g *Generator) GenerateOPML(feeds []domain.Feed, created time.Time) (string, error) {
	type outline struct {
		XMLName xml.Name `xml:"outline"`
		Text    string   `xml:"text,attr"`
		Title   string   `xml:"title,attr"`
		Type    string   `xml:"type,attr"`
		XMLUrl  string   `xml:"xmlUrl,attr"`
		HTMLUrl string   `xml:"htmlUrl,attr,omitempty"`
	}

	type body struct {
		XMLName  xml.Name  `xml:"body"`
		Outlines []outline `xml:"outline"`
	}

	type head struct {
		XMLName     xml.Name `xml:"head"`
		Title       string   `xml:"title"`
		DateCreated string   `xml:"dateCreated"`
	}

	type opml struct {
		XMLName xml.Name `xml:"opml"`
		Version string   `xml:"version,attr"`
		Head    head     `xml:"head"`
		Body    body     `xml:"body"`
	}

	outlines := make([]outline, 0, len(feeds))
	for _, f := range feeds {
		title := f.Title
		if title == "" {
			title = f.Domain
		}
		htmlURL := ""
		if f.Domain != "" {
			htmlURL = "https://" + f.Domain
		}
		outlines = append(outlines, outline{
			Text:    title,
			Title:   title,
			Type:    "rss",
			XMLUrl:  f.Link,
			HTMLUrl: htmlURL,
		})
	}

	doc := opml{
		Version: "2.0",
		Head: head{
			Title:       g.title + " subscriptions",
			DateCreated: created.Format(time.RFC1123Z),
		},
		Body: body{Outlines: outlines},
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal OPML: %w", err)
	}

	return xml.Header + string(output), nil
}
