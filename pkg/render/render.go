// Package render writes the static output served to readers after every refresh batch:
// index.html, index.json, an aggregated rss.xml and the feeds.opml subscription list.
package render

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/samber/lo"

	"github.com/feedroll/feedroll/pkg/domain"
	"github.com/feedroll/feedroll/pkg/feed"
)

//go:embed templates/index.html
var templatesFS embed.FS

// output file names, relative to the output directory
const (
	IndexHTML = "index.html"
	IndexJSON = "index.json"
	RSSFile   = "rss.xml"
	OPMLFile  = "feeds.opml"
)

// Config defines renderer parameters
type Config struct {
	OutputDir string
	Title     string
	BaseURL   string
}

// Renderer renders store snapshots into static files
type Renderer struct {
	outputDir string
	title     string
	generator *feed.Generator
	tmpl      *template.Template
}

// page is the data model shared by the html template and the json output
type page struct {
	Title           string
	GeneratedAt     time.Time
	Last24h         []domain.PostWithFeed
	Between24And48h []domain.PostWithFeed
	Later           []domain.PostWithFeed
	Feeds           []domain.Feed
}

// New makes a renderer, creates the output directory and parses the page template
func New(cfg Config) (*Renderer, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", cfg.OutputDir, err)
	}

	title := lo.Ternary(cfg.Title != "", cfg.Title, "feedroll")
	tmpl, err := template.New(IndexHTML).Funcs(funcMap()).ParseFS(templatesFS, "templates/"+IndexHTML)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	return &Renderer{
		outputDir: cfg.OutputDir,
		title:     title,
		generator: feed.NewGenerator(cfg.BaseURL, title),
		tmpl:      tmpl,
	}, nil
}

// OnBatchComplete renders the snapshot into all output files. Each file is replaced atomically,
// readers see either the previous or the new version, never a partial one.
func (r *Renderer) OnBatchComplete(ctx context.Context, snap domain.Snapshot) error {
	if snap.GeneratedAt.IsZero() {
		snap.GeneratedAt = time.Now().UTC()
	}
	p := r.makePage(snap)

	steps := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{IndexHTML, func() ([]byte, error) { return r.renderHTML(p) }},
		{IndexJSON, func() ([]byte, error) { return renderJSON(p) }},
		{RSSFile, func() ([]byte, error) {
			res, err := r.generator.GenerateRSS(lo.Flatten([][]domain.PostWithFeed{p.Last24h, p.Between24And48h, p.Later}), p.GeneratedAt)
			return []byte(res), err
		}},
		{OPMLFile, func() ([]byte, error) {
			res, err := r.generator.GenerateOPML(p.Feeds, p.GeneratedAt)
			return []byte(res), err
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("render interrupted before %s: %w", step.name, err)
		}
		data, err := step.render()
		if err != nil {
			return fmt.Errorf("render %s: %w", step.name, err)
		}
		if err := writeAtomic(filepath.Join(r.outputDir, step.name), data); err != nil {
			return err
		}
	}

	lgr.Printf("[INFO] rendered %d posts from %d feeds to %s", len(snap.Recent)+len(snap.Older), len(snap.Feeds), r.outputDir)
	return nil
}

// makePage splits older posts into the 24-48h bucket and everything before it
func (r *Renderer) makePage(snap domain.Snapshot) page {
	cutoff := snap.GeneratedAt.Add(-48 * time.Hour)
	between, later := lo.FilterReject(snap.Older, func(p domain.PostWithFeed, _ int) bool {
		return p.PublicationDate.After(cutoff)
	})
	return page{
		Title:           r.title,
		GeneratedAt:     snap.GeneratedAt,
		Last24h:         snap.Recent,
		Between24And48h: between,
		Later:           later,
		Feeds:           snap.Feeds,
	}
}

func (r *Renderer) renderHTML(p page) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

type jsonPost struct {
	Link            string       `json:"link"`
	Title           string       `json:"title"`
	FeedLink        string       `json:"feed_link"`
	FeedTitle       string       `json:"feed_title"`
	FeedDomain      string       `json:"feed_domain"`
	PublicationDate time.Time    `json:"publication_date"`
	DateEstimated   bool         `json:"date_estimated,omitempty"`
	Author          string       `json:"author,omitempty"`
	Tags            []domain.Tag `json:"tags,omitempty"`
	Score           int          `json:"score"`
}

type jsonFeed struct {
	Link         string     `json:"link"`
	Domain       string     `json:"domain"`
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle,omitempty"`
	Image        string     `json:"image,omitempty"`
	FailureCount int        `json:"failure_count"`
	LastError    string     `json:"last_error,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
}

func renderJSON(p page) ([]byte, error) {
	toPosts := func(posts []domain.PostWithFeed) []jsonPost {
		return lo.Map(posts, func(p domain.PostWithFeed, _ int) jsonPost {
			return jsonPost{
				Link: p.Link, Title: p.Title, FeedLink: p.FeedLink, FeedTitle: p.FeedTitle, FeedDomain: p.FeedDomain,
				PublicationDate: p.PublicationDate.UTC(), DateEstimated: p.DateEstimated,
				Author: p.Author, Tags: p.Tags, Score: p.Score,
			}
		})
	}

	doc := struct {
		GeneratedAt time.Time  `json:"generated_at"`
		Last24h     []jsonPost `json:"posts_last24h"`
		Between     []jsonPost `json:"posts_24_48h"`
		Later       []jsonPost `json:"posts_later"`
		Feeds       []jsonFeed `json:"feeds"`
	}{
		GeneratedAt: p.GeneratedAt.UTC(),
		Last24h:     toPosts(p.Last24h),
		Between:     toPosts(p.Between24And48h),
		Later:       toPosts(p.Later),
		Feeds: lo.Map(p.Feeds, func(f domain.Feed, _ int) jsonFeed {
			return jsonFeed{
				Link: f.Link, Domain: f.Domain, Title: f.Title, Subtitle: f.Subtitle, Image: f.Image,
				FailureCount: f.FailureCount, LastError: f.LastError, LastSuccess: f.LastSuccess,
			}
		}),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

// writeAtomic writes data to a temp file in the target directory and renames it over path
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // static content is world-readable
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"hhmm": func(t time.Time) string { return t.Format("15:04") },
		"ago":  ago,
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, errors.New("dict expects key/value pairs")
			}
			res := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", values[i])
				}
				res[key] = values[i+1]
			}
			return res, nil
		},
	}
}

// ago formats the distance between t and now in the largest whole unit
func ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
