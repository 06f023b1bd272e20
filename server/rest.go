package server

import (
	"log"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/feedroll/feedroll/pkg/domain"
)

// cycleStatus is the json view of the last refresh cycle
type cycleStatus struct {
	StartedAt    time.Time `json:"started_at"`
	Duration     string    `json:"duration"`
	Feeds        int       `json:"feeds"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	PostsStored  int       `json:"posts_stored"`
	PostsSkipped int       `json:"posts_skipped"`
	Pruned       int64     `json:"pruned"`
	Rendered     bool      `json:"rendered"`
}

// feedStatus is the json view of a feed and its health
type feedStatus struct {
	Link         string     `json:"link"`
	Domain       string     `json:"domain"`
	Title        string     `json:"title"`
	Healthy      bool       `json:"healthy"`
	FailureCount int        `json:"failure_count"`
	LastError    string     `json:"last_error,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
}

// statusHandler returns server status with the last refresh cycle summary
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":     "ok",
		"version":    s.version,
		"time":       time.Now().UTC(),
		"refreshing": s.scheduler.Running(),
	}
	if rep, ok := s.scheduler.LastReport(); ok {
		status["last_cycle"] = cycleStatus{
			StartedAt:    rep.StartedAt,
			Duration:     rep.Duration.Round(time.Millisecond).String(),
			Feeds:        rep.Feeds,
			Succeeded:    rep.Succeeded,
			Failed:       rep.Failed,
			PostsStored:  rep.PostsStored,
			PostsSkipped: rep.PostsSkipped,
			Pruned:       rep.Pruned,
			Rendered:     rep.Rendered,
		}
	}
	renderJSON(w, r, http.StatusOK, status)
}

// feedsHandler lists configured feeds with their health, unhealthy feeds can be requested
// alone with ?unhealthy=true
func (s *Server) feedsHandler(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.feeds.GetFeeds(r.Context())
	if err != nil {
		log.Printf("[ERROR] failed to get feeds: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("unhealthy") == "true" {
		feeds = lo.Reject(feeds, func(f domain.Feed, _ int) bool { return f.Healthy() })
	}

	renderJSON(w, r, http.StatusOK, lo.Map(feeds, func(f domain.Feed, _ int) feedStatus {
		return feedStatus{
			Link:         f.Link,
			Domain:       f.Domain,
			Title:        f.Title,
			Healthy:      f.Healthy(),
			FailureCount: f.FailureCount,
			LastError:    f.LastError,
			LastSuccess:  f.LastSuccess,
		}
	}))
}

// refreshHandler requests an out-of-schedule refresh cycle. Requests made while a refresh
// is already pending are coalesced.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	queued := s.scheduler.TriggerRefresh()
	renderJSON(w, r, http.StatusAccepted, map[string]any{"queued": queued, "running": s.scheduler.Running()})
}
