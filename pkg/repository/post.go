package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/feedroll/feedroll/pkg/domain"
)

// PostRepository handles post-related database operations
type PostRepository struct {
	db *sqlx.DB
}

// postSQL represents a post for SQL operations
type postSQL struct {
	Link            string    `db:"link"`
	Title           string    `db:"title"`
	FeedLink        string    `db:"feed_link"`
	PublicationDate time.Time `db:"publication_date"`
	DateEstimated   bool      `db:"date_estimated"`
	Author          *string   `db:"author"`
	Tags            tagsSQL   `db:"tags"`
	Score           int       `db:"score"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`

	// joined data, populated by queries only
	FeedTitle  string `db:"feed_title"`
	FeedDomain string `db:"feed_domain"`
}

// tagsSQL is a JSON array of tags for SQL operations
type tagsSQL []domain.Tag

// Value implements driver.Valuer for database storage
func (t tagsSQL) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (t *tagsSQL) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*t = tagsSQL{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported tags type %T", value)
	}
	return json.Unmarshal(data, t)
}

// NewPostRepository creates a new post repository
func NewPostRepository(database *sqlx.DB) *PostRepository {
	return &PostRepository{db: database}
}

// upsertPostQuery inserts a post or merges it into the stored row. Score is never touched,
// an estimated publication date never replaces a stored one.
const upsertPostQuery = `
	INSERT INTO posts (link, title, feed_link, publication_date, date_estimated, author, tags, created_at, updated_at)
	VALUES (:link, :title, :feed_link, :publication_date, :date_estimated, :author, :tags, :created_at, :updated_at)
	ON CONFLICT(link) DO UPDATE SET
		title = excluded.title,
		feed_link = excluded.feed_link,
		author = excluded.author,
		tags = excluded.tags,
		publication_date = CASE WHEN excluded.date_estimated THEN posts.publication_date ELSE excluded.publication_date END,
		date_estimated = posts.date_estimated AND excluded.date_estimated,
		updated_at = excluded.updated_at
`

// UpsertPosts stores posts of a single feed in one transaction, in the given order.
// A row refused by the database is reported in UpsertResult.Rejected and skipped.
// Lock errors retry the whole transaction; any other failure, including commit, rolls back
// and is returned.
func (r *PostRepository) UpsertPosts(ctx context.Context, posts []domain.Post) (domain.UpsertResult, error) {
	var res domain.UpsertResult
	if len(posts) == 0 {
		return res, nil
	}

	now := time.Now().UTC()
	rows := lo.Map(posts, func(p domain.Post, _ int) postSQL { return r.toPostSQL(p, now) })

	err := withLockRetry(ctx, func() error {
		res = domain.UpsertResult{}
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		stmt, err := tx.PrepareNamedContext(ctx, upsertPostQuery)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				if isLockError(err) || ctx.Err() != nil {
					return err
				}
				res.Rejected = append(res.Rejected, fmt.Errorf("upsert post %s: %w", row.Link, err))
				continue
			}
			res.Stored++
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("upsert posts: %w", err)
	}
	return res, nil
}

// GetPost retrieves a post by its link
func (r *PostRepository) GetPost(ctx context.Context, link string) (*domain.Post, error) {
	var row postSQL
	if err := r.db.GetContext(ctx, &row, "SELECT * FROM posts WHERE link = ?", link); err != nil {
		return nil, fmt.Errorf("get post %s: %w", link, err)
	}
	p := r.toDomainPost(row)
	return &p, nil
}

// GetPosts retrieves posts joined with their feed, newest first
func (r *PostRepository) GetPosts(ctx context.Context, filter domain.PostFilter) ([]domain.PostWithFeed, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(
		"p.link", "p.title", "p.feed_link", "p.publication_date", "p.date_estimated",
		"p.author", "p.tags", "p.score", "p.created_at", "p.updated_at",
		sb.As("f.title", "feed_title"), sb.As("f.domain", "feed_domain"),
	).From(sb.As("posts", "p")).Join(sb.As("feeds", "f"), "f.link = p.feed_link")

	if !filter.Since.IsZero() {
		sb.Where(sb.GreaterEqualThan("p.publication_date", filter.Since.UTC()))
	}
	if !filter.Until.IsZero() {
		sb.Where(sb.LessThan("p.publication_date", filter.Until.UTC()))
	}
	if filter.FeedLink != "" {
		sb.Where(sb.Equal("p.feed_link", filter.FeedLink))
	}
	sb.OrderBy("p.publication_date").Desc()
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	var rows []postSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}

	return lo.Map(rows, func(row postSQL, _ int) domain.PostWithFeed {
		return domain.PostWithFeed{Post: r.toDomainPost(row), FeedTitle: row.FeedTitle, FeedDomain: row.FeedDomain}
	}), nil
}

// CountPosts returns the number of stored posts
func (r *PostRepository) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM posts"); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes posts published strictly before cutoff and returns the number removed
func (r *PostRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("posts").Where(del.LessThan("publication_date", cutoff.UTC()))
	query, args := del.Build()

	var deleted int64
	err := withLockRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete posts older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}

// toPostSQL converts domain.Post to postSQL, empty author is stored as NULL
func (r *PostRepository) toPostSQL(p domain.Post, now time.Time) postSQL {
	return postSQL{
		Link:            p.Link,
		Title:           p.Title,
		FeedLink:        p.FeedLink,
		PublicationDate: p.PublicationDate.UTC(),
		DateEstimated:   p.DateEstimated,
		Author:          lo.EmptyableToPtr(p.Author),
		Tags:            tagsSQL(p.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// toDomainPost converts postSQL to domain.Post
func (r *PostRepository) toDomainPost(row postSQL) domain.Post {
	return domain.Post{
		Link:            row.Link,
		Title:           row.Title,
		FeedLink:        row.FeedLink,
		PublicationDate: row.PublicationDate,
		DateEstimated:   row.DateEstimated,
		Author:          lo.FromPtr(row.Author),
		Tags:            row.Tags,
		Score:           row.Score,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
