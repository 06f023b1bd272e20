package domain

import (
	"net/url"
	"strings"
	"time"
)

// Feed represents a configured news feed source and its health state
type Feed struct {
	Link         string // canonical feed URL, primary key
	Domain       string // host of Link without leading "www."
	Title        string
	Subtitle     string
	Image        string
	FailureCount int // consecutive failures, reset on success
	LastError    string
	LastSuccess  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Healthy reports whether the last refresh of the feed succeeded
func (f Feed) Healthy() bool {
	return f.FailureCount == 0
}

// FeedDescriptor is a feed entry from the static configuration.
// Link is required, other fields are optional overrides applied on top of parsed channel data.
type FeedDescriptor struct {
	Link     string `yaml:"link" toml:"link" json:"link" jsonschema:"required,description=Feed URL"`
	Title    string `yaml:"title" toml:"title" json:"title,omitempty" jsonschema:"description=Title override"`
	Subtitle string `yaml:"subtitle" toml:"subtitle" json:"subtitle,omitempty" jsonschema:"description=Subtitle override"`
	Image    string `yaml:"image" toml:"image" json:"image,omitempty" jsonschema:"description=Icon URL override"`
}

// Apply overrides feed fields with non-empty descriptor values. Link is included,
// so the stored key is always the configured URL.
func (d FeedDescriptor) Apply(f *Feed) {
	if d.Link != "" {
		f.Link = d.Link
	}
	if d.Title != "" {
		f.Title = d.Title
	}
	if d.Subtitle != "" {
		f.Subtitle = d.Subtitle
	}
	if d.Image != "" {
		f.Image = d.Image
	}
	f.Domain = DomainOf(f.Link)
}

// ParsedFeed is the normalized result of parsing a remote feed document
type ParsedFeed struct {
	Title    string
	Subtitle string
	Link     string // site link from the channel, not the feed URL
	Image    string
	Entries  []ParsedEntry
}

// DomainOf returns the host of the link with leading "www." removed.
// Returns an empty string for links without a host.
func DomainOf(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
