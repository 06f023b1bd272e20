package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/feedroll/feedroll/pkg/domain"
)

// maxFutureSkew is how far ahead of now an entry date may be and still be trusted
const maxFutureSkew = 24 * time.Hour

// FeedProcessor fetches feeds and merges their entries into the store.
// Each call handles exactly one feed and never returns a failure to its caller
// in a way that could stop sibling feeds, failures are recorded in feed health instead.
type FeedProcessor struct {
	feedManager FeedManager
	postManager PostManager
	parser      Parser
	now         func() time.Time
}

// FeedProcessorConfig holds dependencies of FeedProcessor
type FeedProcessorConfig struct {
	FeedManager FeedManager
	PostManager PostManager
	Parser      Parser
}

// FeedResult is the outcome of a single feed update
type FeedResult struct {
	Link    string
	Stored  int   // posts inserted or merged
	Skipped int   // invalid or rejected entries
	Err     error // feed-level failure, nil on success
}

// NewFeedProcessor creates a new feed processor
func NewFeedProcessor(cfg FeedProcessorConfig) *FeedProcessor {
	return &FeedProcessor{
		feedManager: cfg.FeedManager,
		postManager: cfg.PostManager,
		parser:      cfg.Parser,
		now:         time.Now,
	}
}

// InitFeed fetches the feed described by d, applies descriptor overrides on top of the parsed
// channel data and stores the result. On failure the feed is stored as failed and the error
// is returned along with a nil feed.
func (fp *FeedProcessor) InitFeed(ctx context.Context, d domain.FeedDescriptor) (feed *domain.Feed, err error) {
	defer func() {
		if r := recover(); r != nil {
			feed = nil
			err = fp.initFailed(ctx, d, domain.NewFeedError(domain.ErrUnexpected, fmt.Errorf("panic: %v", r)))
		}
	}()

	if strings.TrimSpace(d.Link) == "" {
		err := domain.NewFeedError(domain.ErrInvalidStructure, errors.New("feed link is empty"))
		logFailure("<empty>", err)
		return nil, err
	}

	parsed, err := fp.parser.Parse(ctx, d.Link)
	if err != nil {
		return nil, fp.initFailed(ctx, d, err)
	}

	f := &domain.Feed{Title: parsed.Title, Subtitle: parsed.Subtitle, Image: parsed.Image}
	d.Apply(f)
	if f.Title == "" {
		return nil, fp.initFailed(ctx, d, domain.NewFeedError(domain.ErrInvalidStructure, errors.New("no channel title")))
	}

	now := fp.now().UTC()
	f.LastSuccess = &now
	if err := fp.feedManager.UpsertFeed(ctx, f); err != nil {
		return nil, fp.initFailed(ctx, d, domain.NewFeedError(domain.ErrPersistence, err))
	}

	lgr.Printf("[INFO] initialized feed %s (%s), %d entries available", f.Title, f.Link, len(parsed.Entries))
	return f, nil
}

// UpdatePosts fetches the feed and upserts its entries in document order. On success the
// descriptive fields are refreshed from the channel with d overrides on top, together with health.
// A failed refresh changes health only.
func (fp *FeedProcessor) UpdatePosts(ctx context.Context, feed domain.Feed, d domain.FeedDescriptor) (res FeedResult) {
	res = FeedResult{Link: feed.Link}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fp.updateFailed(ctx, feed.Link, domain.NewFeedError(domain.ErrUnexpected, fmt.Errorf("panic: %v", r)))
		}
	}()

	lgr.Printf("[DEBUG] updating feed %s", feed.Link)
	parsed, err := fp.parser.Parse(ctx, feed.Link)
	if err != nil {
		res.Err = fp.updateFailed(ctx, feed.Link, err)
		return res
	}

	now := fp.now().UTC()
	posts := make([]domain.Post, 0, len(parsed.Entries))
	for i, entry := range parsed.Entries {
		post, err := newPost(feed.Link, entry, now)
		if err != nil {
			lgr.Printf("[WARN] skipping entry #%d of feed %s: %v", i, feed.Link, err)
			res.Skipped++
			continue
		}
		posts = append(posts, post)
	}

	upserted, err := fp.postManager.UpsertPosts(ctx, posts)
	if err != nil {
		res.Err = fp.updateFailed(ctx, feed.Link, domain.NewFeedError(domain.ErrPersistence, err))
		return res
	}
	for _, rerr := range upserted.Rejected {
		lgr.Printf("[WARN] entry of feed %s rejected: %v", feed.Link, rerr)
	}
	res.Stored = upserted.Stored
	res.Skipped += len(upserted.Rejected)
	postsUpserted.Add(float64(upserted.Stored))

	if err := fp.feedManager.RecordSuccess(ctx, refreshedFeed(feed, parsed, d), now); err != nil {
		res.Err = domain.NewFeedError(domain.ErrPersistence, err)
		logFailure(feed.Link, res.Err)
		feedUpdates.WithLabelValues(string(domain.ErrPersistence)).Inc()
		return res
	}

	feedUpdates.WithLabelValues(feedResultLabel).Inc()
	if res.Stored > 0 || res.Skipped > 0 {
		lgr.Printf("[INFO] feed %s updated, stored %d, skipped %d", feed.Link, res.Stored, res.Skipped)
	}
	return res
}

// initFailed logs the failure and stores the feed as failed, unless the process is shutting down
func (fp *FeedProcessor) initFailed(ctx context.Context, d domain.FeedDescriptor, err error) error {
	logFailure(d.Link, err)
	if ctx.Err() != nil {
		return err
	}
	feedUpdates.WithLabelValues(string(domain.KindOf(err))).Inc()
	if uerr := fp.feedManager.UpsertFailedFeed(ctx, d, failureMessage(err)); uerr != nil {
		lgr.Printf("[WARN] can't store failed feed %s: %v", d.Link, uerr)
	}
	return err
}

// updateFailed logs the failure and records it in feed health, unless the process is shutting down
func (fp *FeedProcessor) updateFailed(ctx context.Context, link string, err error) error {
	logFailure(link, err)
	if ctx.Err() != nil {
		return err
	}
	feedUpdates.WithLabelValues(string(domain.KindOf(err))).Inc()
	if rerr := fp.feedManager.RecordFailure(ctx, link, failureMessage(err)); rerr != nil {
		lgr.Printf("[WARN] can't record failure of feed %s: %v", link, rerr)
	}
	return err
}

// refreshedFeed merges channel data of a successful parse with descriptor overrides.
// The stored title is kept when neither source has one.
func refreshedFeed(stored domain.Feed, parsed *domain.ParsedFeed, d domain.FeedDescriptor) *domain.Feed {
	f := stored
	f.Title, f.Subtitle, f.Image = parsed.Title, parsed.Subtitle, parsed.Image
	d.Link = ""
	d.Apply(&f)
	if f.Title == "" {
		f.Title = stored.Title
	}
	return &f
}

// newPost builds a post candidate from a parsed entry
func newPost(feedLink string, e domain.ParsedEntry, now time.Time) (domain.Post, error) {
	link := strings.TrimSpace(e.Link)
	if link == "" {
		return domain.Post{}, domain.NewFeedError(domain.ErrInvalidEntry, fmt.Errorf("entry %q has no link", e.Title))
	}

	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = link
	}

	published, estimated := publicationDate(e, now)
	return domain.Post{
		Link:            link,
		Title:           title,
		FeedLink:        feedLink,
		PublicationDate: published,
		DateEstimated:   estimated,
		Author:          strings.TrimSpace(e.Author),
		Tags:            e.Tags,
	}, nil
}

// publicationDate picks the published date, then the updated date, then now.
// The second value is true when now was used.
func publicationDate(e domain.ParsedEntry, now time.Time) (time.Time, bool) {
	for _, d := range []*time.Time{e.Published, e.Updated} {
		if validDate(d, now) {
			return d.UTC(), false
		}
	}
	return now, true
}

func validDate(d *time.Time, now time.Time) bool {
	if d == nil || d.IsZero() {
		return false
	}
	return d.UTC().Year() >= 1970 && !d.After(now.Add(maxFutureSkew))
}

// failureMessage formats err as "<kind>: <detail>" for feed health
func failureMessage(err error) string {
	var fe *domain.FeedError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return domain.NewFeedError(domain.ErrUnexpected, err).Error()
}

// logFailure logs a feed failure with a message specific to its kind
func logFailure(link string, err error) {
	switch domain.KindOf(err) {
	case domain.ErrInvalidStructure:
		lgr.Printf("[WARN] feed %s has invalid structure: %v", link, err)
	case domain.ErrConnectivity:
		lgr.Printf("[WARN] can't reach feed %s: %v", link, err)
	case domain.ErrMalformed:
		lgr.Printf("[WARN] can't parse feed %s: %v", link, err)
	case domain.ErrPersistence:
		lgr.Printf("[ERROR] can't store feed %s: %v", link, err)
	default:
		lgr.Printf("[ERROR] unexpected failure of feed %s: %v", link, err)
	}
}
