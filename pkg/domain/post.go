package domain

import "time"

// Post represents a single feed entry stored under its canonical link
type Post struct {
	Link            string
	Title           string
	FeedLink        string
	PublicationDate time.Time
	DateEstimated   bool // publication date was synthesized, entry carried no usable date
	Author          string
	Tags            []Tag
	Score           int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Tag is a category attached to an entry
type Tag struct {
	Term   string `json:"term"`
	Scheme string `json:"scheme,omitempty"`
	Label  string `json:"label,omitempty"`
}

// ParsedEntry is an entry as extracted from a feed document. Dates are raw values
// as reported by the parser and are not validated.
type ParsedEntry struct {
	Link      string
	Title     string
	Author    string
	Tags      []Tag
	Published *time.Time
	Updated   *time.Time
}

// PostWithFeed is a post joined with display fields of its feed
type PostWithFeed struct {
	Post
	FeedTitle  string
	FeedDomain string
}

// Snapshot is the consistent view of the store handed to the renderer after a batch
type Snapshot struct {
	Feeds       []Feed
	Recent      []PostWithFeed // newer than the recent window, newest first
	Older       []PostWithFeed // everything else still retained, newest first
	GeneratedAt time.Time
}

// PostFilter selects posts by publication date range and feed.
// Zero values disable the corresponding condition.
type PostFilter struct {
	Since    time.Time // inclusive
	Until    time.Time // exclusive
	FeedLink string
	Limit    int
}

// UpsertResult reports the outcome of a batch upsert
type UpsertResult struct {
	Stored   int
	Rejected []error // rows the database refused, the rest of the batch is kept
}
