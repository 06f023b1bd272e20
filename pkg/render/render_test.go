package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedroll/feedroll/pkg/domain"
)

func testSnapshot(now time.Time) domain.Snapshot {
	post := func(link, title string, age time.Duration) domain.PostWithFeed {
		return domain.PostWithFeed{
			Post: domain.Post{
				Link: link, Title: title, FeedLink: "https://blog.example.com/feed",
				PublicationDate: now.Add(-age), Tags: []domain.Tag{{Term: "go"}},
			},
			FeedTitle:  "Example <Blog>",
			FeedDomain: "blog.example.com",
		}
	}
	lastSuccess := now.Add(-time.Minute)
	return domain.Snapshot{
		Feeds: []domain.Feed{
			{Link: "https://blog.example.com/feed", Domain: "blog.example.com", Title: "Example <Blog>", LastSuccess: &lastSuccess},
			{Link: "https://down.org/rss", Domain: "down.org", Title: "down.org", FailureCount: 3, LastError: "connectivity: timeout"},
		},
		Recent: []domain.PostWithFeed{post("https://blog.example.com/fresh", "Fresh & new", 2*time.Hour)},
		Older: []domain.PostWithFeed{
			post("https://blog.example.com/yesterday", "Yesterday", 30*time.Hour),
			post("https://blog.example.com/old", "Old one", 100*time.Hour),
		},
		GeneratedAt: now,
	}
}

func TestNew(t *testing.T) {
	t.Run("creates output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "static")
		r, err := New(Config{OutputDir: dir})
		require.NoError(t, err)
		assert.Equal(t, "feedroll", r.title)
		assert.DirExists(t, dir)
	})

	t.Run("output directory required", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
	})
}

func TestRenderer_OnBatchComplete(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir, Title: "My Roll", BaseURL: "https://roll.example.com"})
	require.NoError(t, err)

	now := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)
	require.NoError(t, r.OnBatchComplete(context.Background(), testSnapshot(now)))

	for _, name := range []string{IndexHTML, IndexJSON, RSSFile, OPMLFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temp files left behind")

	t.Run("html", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, IndexHTML)) //nolint:gosec // test file
		require.NoError(t, err)
		html := string(data)
		assert.Contains(t, html, "<title>My Roll</title>")
		assert.Contains(t, html, "updated at 14:30")
		assert.Contains(t, html, "Last 24 hours")
		assert.Contains(t, html, "24 to 48 hours ago")
		assert.Contains(t, html, "Earlier")
		assert.Contains(t, html, "Fresh &amp; new")
		assert.Contains(t, html, "Example &lt;Blog&gt;")
		assert.Contains(t, html, "2h ago")
		assert.Contains(t, html, "4d ago")
		assert.Contains(t, html, `class="unhealthy"`)
		assert.Contains(t, html, "3 failed updates")
	})

	t.Run("json buckets", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, IndexJSON)) //nolint:gosec // test file
		require.NoError(t, err)
		var doc struct {
			GeneratedAt time.Time  `json:"generated_at"`
			Last24h     []jsonPost `json:"posts_last24h"`
			Between     []jsonPost `json:"posts_24_48h"`
			Later       []jsonPost `json:"posts_later"`
			Feeds       []jsonFeed `json:"feeds"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.True(t, now.Equal(doc.GeneratedAt))
		require.Len(t, doc.Last24h, 1)
		assert.Equal(t, "https://blog.example.com/fresh", doc.Last24h[0].Link)
		assert.Equal(t, "Example <Blog>", doc.Last24h[0].FeedTitle)
		require.Len(t, doc.Between, 1)
		assert.Equal(t, "https://blog.example.com/yesterday", doc.Between[0].Link)
		require.Len(t, doc.Later, 1)
		assert.Equal(t, "https://blog.example.com/old", doc.Later[0].Link)
		require.Len(t, doc.Feeds, 2)
		assert.Equal(t, 3, doc.Feeds[1].FailureCount)
		assert.Equal(t, "connectivity: timeout", doc.Feeds[1].LastError)
		assert.Nil(t, doc.Feeds[1].LastSuccess)
	})

	t.Run("rss and opml", func(t *testing.T) {
		rss, err := os.ReadFile(filepath.Join(dir, RSSFile)) //nolint:gosec // test file
		require.NoError(t, err)
		assert.Contains(t, string(rss), "<title>My Roll</title>")
		assert.Contains(t, string(rss), "https://roll.example.com/rss.xml")
		assert.Contains(t, string(rss), "https://blog.example.com/old")

		opml, err := os.ReadFile(filepath.Join(dir, OPMLFile)) //nolint:gosec // test file
		require.NoError(t, err)
		assert.Contains(t, string(opml), `xmlUrl="https://down.org/rss"`)
		assert.Contains(t, string(opml), "My Roll subscriptions")
	})

	t.Run("re-render replaces files", func(t *testing.T) {
		later := now.Add(time.Hour)
		snap := testSnapshot(later)
		snap.Recent = nil
		require.NoError(t, r.OnBatchComplete(context.Background(), snap))
		data, err := os.ReadFile(filepath.Join(dir, IndexHTML)) //nolint:gosec // test file
		require.NoError(t, err)
		assert.Contains(t, string(data), "updated at 15:30")
		assert.NotContains(t, string(data), "Fresh &amp; new")
	})
}

func TestRenderer_OnBatchComplete_Empty(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir})
	require.NoError(t, err)

	require.NoError(t, r.OnBatchComplete(context.Background(), domain.Snapshot{}))
	data, err := os.ReadFile(filepath.Join(dir, IndexJSON)) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(data), `"posts_last24h": []`)
	assert.Contains(t, string(data), `"feeds": []`)
}

func TestRenderer_OnBatchComplete_Canceled(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.OnBatchComplete(ctx, testSnapshot(time.Now()))
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, IndexHTML))
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, writeAtomic(path, []byte("first")))
	require.NoError(t, writeAtomic(path, []byte("second")))
	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	err = writeAtomic(filepath.Join(dir, "missing", "out.txt"), []byte("x"))
	require.Error(t, err)
}

func TestAgo(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tbl := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{-time.Hour, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tbl {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ago(now.Add(-tt.age), now))
		})
	}
}
