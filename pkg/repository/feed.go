package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/feedroll/feedroll/pkg/domain"
)

// MaxErrorLength limits stored last_error values, in runes
const MaxErrorLength = 512

// FeedRepository handles feed-related database operations
type FeedRepository struct {
	db *sqlx.DB
}

// feedSQL represents a feed for SQL operations
type feedSQL struct {
	Link         string     `db:"link"`
	Domain       string     `db:"domain"`
	Title        string     `db:"title"`
	Subtitle     string     `db:"subtitle"`
	Image        string     `db:"image"`
	FailureCount int        `db:"failure_count"`
	LastError    *string    `db:"last_error"`
	LastSuccess  *time.Time `db:"last_success"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// failedFeedSQL carries parameters of a failed initialization upsert
type failedFeedSQL struct {
	Link      string    `db:"link"`
	Domain    string    `db:"domain"`
	Title     string    `db:"title"`
	Subtitle  string    `db:"subtitle"`
	Image     string    `db:"image"`
	LastError string    `db:"last_error"`
	Now       time.Time `db:"now"`
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(database *sqlx.DB) *FeedRepository {
	return &FeedRepository{db: database}
}

// UpsertFeed inserts a feed or overwrites all fields of the stored one, except created_at
func (r *FeedRepository) UpsertFeed(ctx context.Context, feed *domain.Feed) error {
	now := time.Now().UTC()
	row := r.toFeedSQL(feed)
	row.CreatedAt, row.UpdatedAt = now, now

	query := `
		INSERT INTO feeds (link, domain, title, subtitle, image, failure_count, last_error, last_success, created_at, updated_at)
		VALUES (:link, :domain, :title, :subtitle, :image, :failure_count, :last_error, :last_success, :created_at, :updated_at)
		ON CONFLICT(link) DO UPDATE SET
			domain = excluded.domain,
			title = excluded.title,
			subtitle = excluded.subtitle,
			image = excluded.image,
			failure_count = excluded.failure_count,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			updated_at = excluded.updated_at
	`
	err := withLockRetry(ctx, func() error {
		_, err := r.db.NamedExecContext(ctx, query, row)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert feed %s: %w", feed.Link, err)
	}
	return nil
}

// UpsertFailedFeed records a feed whose initialization failed. A new feed is inserted with
// failure_count 1 and title defaulting to its domain. For a stored feed failure_count is
// incremented and descriptive fields change only where the descriptor supplies a value.
func (r *FeedRepository) UpsertFailedFeed(ctx context.Context, d domain.FeedDescriptor, errMsg string) error {
	dom := domain.DomainOf(d.Link)
	row := failedFeedSQL{
		Link:      d.Link,
		Domain:    dom,
		Title:     d.Title,
		Subtitle:  d.Subtitle,
		Image:     d.Image,
		LastError: truncate(errMsg, MaxErrorLength),
		Now:       time.Now().UTC(),
	}

	query := `
		INSERT INTO feeds (link, domain, title, subtitle, image, failure_count, last_error, created_at, updated_at)
		VALUES (:link, :domain, COALESCE(NULLIF(:title, ''), :domain), :subtitle, :image, 1, :last_error, :now, :now)
		ON CONFLICT(link) DO UPDATE SET
			title = COALESCE(NULLIF(:title, ''), feeds.title),
			subtitle = COALESCE(NULLIF(:subtitle, ''), feeds.subtitle),
			image = COALESCE(NULLIF(:image, ''), feeds.image),
			failure_count = feeds.failure_count + 1,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`
	err := withLockRetry(ctx, func() error {
		_, err := r.db.NamedExecContext(ctx, query, row)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert failed feed %s: %w", d.Link, err)
	}
	return nil
}

// GetFeed retrieves a feed by its link
func (r *FeedRepository) GetFeed(ctx context.Context, link string) (*domain.Feed, error) {
	var row feedSQL
	if err := r.db.GetContext(ctx, &row, "SELECT * FROM feeds WHERE link = ?", link); err != nil {
		return nil, fmt.Errorf("get feed %s: %w", link, err)
	}
	f := r.toDomainFeed(row)
	return &f, nil
}

// GetFeeds retrieves all feeds ordered by link
func (r *FeedRepository) GetFeeds(ctx context.Context) ([]domain.Feed, error) {
	var rows []feedSQL
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM feeds ORDER BY link"); err != nil {
		return nil, fmt.Errorf("get feeds: %w", err)
	}
	return lo.Map(rows, func(row feedSQL, _ int) domain.Feed { return r.toDomainFeed(row) }), nil
}

// RecordSuccess marks the feed healthy: sets last_success, clears failure state and
// stores refreshed title, subtitle and image
func (r *FeedRepository) RecordSuccess(ctx context.Context, feed *domain.Feed, at time.Time) error {
	query := `
		UPDATE feeds
		SET title = ?, subtitle = ?, image = ?,
			last_success = ?, failure_count = 0, last_error = NULL, updated_at = ?
		WHERE link = ?
	`
	err := withLockRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, feed.Title, feed.Subtitle, feed.Image, at.UTC(), time.Now().UTC(), feed.Link)
		return err
	})
	if err != nil {
		return fmt.Errorf("record success for %s: %w", feed.Link, err)
	}
	return nil
}

// RecordFailure increments the stored failure_count and sets last_error
func (r *FeedRepository) RecordFailure(ctx context.Context, link, errMsg string) error {
	query := `
		UPDATE feeds
		SET failure_count = failure_count + 1, last_error = ?, updated_at = ?
		WHERE link = ?
	`
	err := withLockRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, truncate(errMsg, MaxErrorLength), time.Now().UTC(), link)
		return err
	})
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", link, err)
	}
	return nil
}

// toFeedSQL converts domain.Feed to feedSQL, empty last_error is stored as NULL
func (r *FeedRepository) toFeedSQL(f *domain.Feed) feedSQL {
	row := feedSQL{
		Link:         f.Link,
		Domain:       f.Domain,
		Title:        f.Title,
		Subtitle:     f.Subtitle,
		Image:        f.Image,
		FailureCount: f.FailureCount,
	}
	if f.LastError != "" {
		msg := truncate(f.LastError, MaxErrorLength)
		row.LastError = &msg
	}
	if f.LastSuccess != nil {
		ts := f.LastSuccess.UTC()
		row.LastSuccess = &ts
	}
	return row
}

// toDomainFeed converts feedSQL to domain.Feed
func (r *FeedRepository) toDomainFeed(row feedSQL) domain.Feed {
	return domain.Feed{
		Link:         row.Link,
		Domain:       row.Domain,
		Title:        row.Title,
		Subtitle:     row.Subtitle,
		Image:        row.Image,
		FailureCount: row.FailureCount,
		LastError:    lo.FromPtr(row.LastError),
		LastSuccess:  row.LastSuccess,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
