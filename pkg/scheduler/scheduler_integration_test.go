package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedroll/feedroll/pkg/domain"
	"github.com/feedroll/feedroll/pkg/repository"
	"github.com/feedroll/feedroll/pkg/scheduler/mocks"
)

func setupRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "sched.db") +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite&_txlock=immediate"
	repos, err := repository.NewRepositories(context.Background(), repository.Config{DSN: dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos
}

// fakeSource serves parsed documents by URL, safe for concurrent use
type fakeSource struct {
	mu   sync.Mutex
	docs map[string]*domain.ParsedFeed
	errs map[string]error
}

func (f *fakeSource) set(url string, doc *domain.ParsedFeed, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs == nil {
		f.docs, f.errs = map[string]*domain.ParsedFeed{}, map[string]error{}
	}
	f.docs[url], f.errs[url] = doc, err
}

func (f *fakeSource) parser() *mocks.ParserMock {
	return &mocks.ParserMock{ParseFunc: func(ctx context.Context, url string) (*domain.ParsedFeed, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.errs[url]; err != nil {
			return nil, err
		}
		if doc, ok := f.docs[url]; ok {
			return doc, nil
		}
		return nil, domain.NewFeedError(domain.ErrConnectivity, errors.New("unexpected status code: 404"))
	}}
}

func newIntegrationScheduler(repos *repository.Repositories, parser Parser, renderer Renderer) *Scheduler {
	return NewScheduler(Params{
		FeedManager: repos.Feed, PostManager: repos.Post, Parser: parser, Renderer: renderer,
		RetentionAge: 168 * time.Hour, MaxWorkers: 10,
	})
}

func TestIntegration_Idempotence(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := &fakeSource{}
	pub := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	src.set("https://a.com/feed", &domain.ParsedFeed{Title: "A", Entries: []domain.ParsedEntry{
		{Link: "https://a.com/1", Title: "one", Published: &pub},
		{Link: "https://a.com/2", Title: "two"},
	}}, nil)

	s := newIntegrationScheduler(repos, src.parser(), nil)
	s.RunInitialization(ctx, []domain.FeedDescriptor{{Link: "https://a.com/feed"}})

	_, err := s.RunRefreshCycle(ctx)
	require.NoError(t, err)
	first, err := repos.Post.GetPosts(ctx, domain.PostFilter{})
	require.NoError(t, err)

	_, err = s.RunRefreshCycle(ctx)
	require.NoError(t, err)
	second, err := repos.Post.GetPosts(ctx, domain.PostFilter{})
	require.NoError(t, err)

	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].Link, second[i].Link)
		assert.Equal(t, first[i].Title, second[i].Title)
		assert.True(t, first[i].PublicationDate.Equal(second[i].PublicationDate), "estimated date kept on re-run")
		assert.Equal(t, first[i].DateEstimated, second[i].DateEstimated)
	}
}

func TestIntegration_FailureIsolationAndHealth(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := &fakeSource{}
	src.set("https://ok.com/feed", &domain.ParsedFeed{Title: "OK", Entries: []domain.ParsedEntry{{Link: "https://ok.com/1", Title: "1"}}}, nil)
	src.set("https://flaky.com/feed", &domain.ParsedFeed{Title: "Flaky"}, nil)

	s := newIntegrationScheduler(repos, src.parser(), nil)
	report := s.RunInitialization(ctx, []domain.FeedDescriptor{{Link: "https://ok.com/feed"}, {Link: "https://flaky.com/feed"}})
	require.Equal(t, 2, report.Initialized)

	src.set("https://flaky.com/feed", nil, domain.NewFeedError(domain.ErrConnectivity, errors.New("connection reset")))
	for i := 0; i < 3; i++ {
		_, err := s.RunRefreshCycle(ctx)
		require.NoError(t, err)
	}

	flaky, err := repos.Feed.GetFeed(ctx, "https://flaky.com/feed")
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.FailureCount)
	assert.Equal(t, "connectivity: connection reset", flaky.LastError)

	ok, err := repos.Feed.GetFeed(ctx, "https://ok.com/feed")
	require.NoError(t, err)
	assert.True(t, ok.Healthy())
	_, err = repos.Post.GetPost(ctx, "https://ok.com/1")
	require.NoError(t, err, "healthy feed committed despite failing sibling")

	t.Run("success resets health", func(t *testing.T) {
		src.set("https://flaky.com/feed", &domain.ParsedFeed{Title: "Flaky"}, nil)
		_, err := s.RunRefreshCycle(ctx)
		require.NoError(t, err)
		flaky, err := repos.Feed.GetFeed(ctx, "https://flaky.com/feed")
		require.NoError(t, err)
		assert.Zero(t, flaky.FailureCount)
		assert.Empty(t, flaky.LastError)
		require.NotNil(t, flaky.LastSuccess)
		assert.WithinDuration(t, time.Now(), *flaky.LastSuccess, time.Minute)
	})
}

func TestIntegration_InitFailureUpsert(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := &fakeSource{}
	src.set("https://www.down.org/rss", nil, domain.NewFeedError(domain.ErrMalformed, errors.New("not xml")))

	s := newIntegrationScheduler(repos, src.parser(), nil)
	descriptors := []domain.FeedDescriptor{{Link: "https://www.down.org/rss"}}
	s.RunInitialization(ctx, descriptors)
	s.RunInitialization(ctx, descriptors)

	feed, err := repos.Feed.GetFeed(ctx, "https://www.down.org/rss")
	require.NoError(t, err)
	assert.Equal(t, 2, feed.FailureCount)
	assert.Equal(t, "down.org", feed.Title)
	assert.Equal(t, "malformed: not xml", feed.LastError)
}

func TestIntegration_OverridePrecedence(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := &fakeSource{}
	src.set("https://x.io/feed", &domain.ParsedFeed{Title: "Parsed", Subtitle: "parsed sub", Image: "https://x.io/p.png"}, nil)

	s := newIntegrationScheduler(repos, src.parser(), nil)
	s.RunInitialization(ctx, []domain.FeedDescriptor{{Link: "https://x.io/feed", Subtitle: "mine"}})

	feed, err := repos.Feed.GetFeed(ctx, "https://x.io/feed")
	require.NoError(t, err)
	assert.Equal(t, "Parsed", feed.Title)
	assert.Equal(t, "mine", feed.Subtitle)
	assert.Equal(t, "https://x.io/p.png", feed.Image)

	// successful refresh takes new channel data, overrides still win
	src.set("https://x.io/feed", &domain.ParsedFeed{Title: "Renamed", Subtitle: "new sub", Image: "https://x.io/new.png"}, nil)
	_, err = s.RunRefreshCycle(ctx)
	require.NoError(t, err)
	feed, err = repos.Feed.GetFeed(ctx, "https://x.io/feed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", feed.Title)
	assert.Equal(t, "mine", feed.Subtitle)
	assert.Equal(t, "https://x.io/new.png", feed.Image)

	// failed refresh leaves descriptive fields alone
	src.set("https://x.io/feed", nil, domain.NewFeedError(domain.ErrMalformed, errors.New("not xml")))
	_, err = s.RunRefreshCycle(ctx)
	require.NoError(t, err)
	feed, err = repos.Feed.GetFeed(ctx, "https://x.io/feed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", feed.Title)
	assert.Equal(t, "https://x.io/new.png", feed.Image)
	assert.Equal(t, 1, feed.FailureCount)
}

func TestIntegration_RetentionAndSnapshot(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	at := func(d time.Duration) *time.Time { t := now.Add(-d); return &t }

	src := &fakeSource{}
	src.set("https://r.com/feed", &domain.ParsedFeed{Title: "R", Entries: []domain.ParsedEntry{
		{Link: "https://r.com/fresh", Title: "fresh", Published: at(time.Hour)},
		{Link: "https://r.com/week", Title: "week", Published: at(100 * time.Hour)},
		{Link: "https://r.com/stale", Title: "stale", Published: at(200 * time.Hour)},
		{Title: "linkless"},
	}}, nil)

	var snapshot domain.Snapshot
	renderer := &mocks.RendererMock{OnBatchCompleteFunc: func(ctx context.Context, snap domain.Snapshot) error {
		snapshot = snap
		return nil
	}}
	s := newIntegrationScheduler(repos, src.parser(), renderer)
	s.RunInitialization(ctx, []domain.FeedDescriptor{{Link: "https://r.com/feed"}})

	report, err := s.RunRefreshCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.PostsStored)
	assert.Equal(t, 1, report.PostsSkipped)
	assert.Equal(t, int64(1), report.Pruned)

	_, err = repos.Post.GetPost(ctx, "https://r.com/stale")
	require.Error(t, err, "pruned after upsert")

	require.Len(t, snapshot.Recent, 1)
	assert.Equal(t, "https://r.com/fresh", snapshot.Recent[0].Link)
	assert.Equal(t, "R", snapshot.Recent[0].FeedTitle)
	require.Len(t, snapshot.Older, 1)
	assert.Equal(t, "https://r.com/week", snapshot.Older[0].Link)
	require.Len(t, snapshot.Feeds, 1)

	pruned, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, pruned, "prune is idempotent")
}

func TestIntegration_ConcurrentBatch(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := &fakeSource{}

	var descriptors []domain.FeedDescriptor
	for i := 0; i < 50; i++ {
		link := fmt.Sprintf("https://feed%02d.com/rss", i)
		descriptors = append(descriptors, domain.FeedDescriptor{Link: link})
		entries := make([]domain.ParsedEntry, 5)
		for j := range entries {
			entries[j] = domain.ParsedEntry{Link: fmt.Sprintf("https://feed%02d.com/post/%d", i, j), Title: fmt.Sprintf("post %d", j)}
		}
		src.set(link, &domain.ParsedFeed{Title: fmt.Sprintf("Feed %d", i), Entries: entries}, nil)
	}

	s := newIntegrationScheduler(repos, src.parser(), nil)
	require.Equal(t, 50, s.RunInitialization(ctx, descriptors).Initialized)

	// every fifth feed times out
	for i := 0; i < 50; i += 5 {
		src.set(descriptors[i].Link, nil, domain.NewFeedError(domain.ErrConnectivity, context.DeadlineExceeded))
	}

	cycleStart := time.Now()
	report, err := s.RunRefreshCycle(ctx)
	require.NoError(t, err)
	cycleEnd := time.Now()
	assert.Equal(t, 50, report.Feeds)
	assert.Equal(t, 40, report.Succeeded)
	assert.Equal(t, 10, report.Failed)
	assert.Equal(t, 200, report.PostsStored)

	feeds, err := repos.Feed.GetFeeds(ctx)
	require.NoError(t, err)
	failed := 0
	for _, f := range feeds {
		require.NotNil(t, f.LastSuccess, f.Link)
		if !f.Healthy() {
			failed++
			assert.Equal(t, 1, f.FailureCount)
			assert.True(t, strings.HasPrefix(f.LastError, "connectivity: "))
			assert.True(t, f.LastSuccess.Before(cycleStart), "%s keeps initialization time", f.Link)
			continue
		}
		assert.False(t, f.LastSuccess.Before(cycleStart), "%s last_success updated", f.Link)
		assert.False(t, f.LastSuccess.After(cycleEnd), f.Link)
	}
	assert.Equal(t, 10, failed)

	count, err := repos.Post.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, count)
}
