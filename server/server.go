package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feedroll/feedroll/pkg/domain"
	"github.com/feedroll/feedroll/pkg/scheduler"
)

//go:generate moq -out mocks/config.go -pkg mocks -skip-ensure -fmt goimports . ConfigProvider
//go:generate moq -out mocks/feed_lister.go -pkg mocks -skip-ensure -fmt goimports . FeedLister
//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler

// shutdownTimeout bounds draining of in-flight requests on stop
const shutdownTimeout = 10 * time.Second

// Server serves rendered static files and a small status API
type Server struct {
	config    ConfigProvider
	feeds     FeedLister
	scheduler Scheduler
	version   string
	debug     bool

	router *routegroup.Bundle
}

// FeedLister provides stored feeds with their health
type FeedLister interface {
	GetFeeds(ctx context.Context) ([]domain.Feed, error)
}

// Scheduler exposes refresh state and on-demand refresh
type Scheduler interface {
	TriggerRefresh() bool
	Running() bool
	LastReport() (scheduler.CycleReport, bool)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	GetStaticDir() string
}

// New initializes a new server instance
func New(cfg ConfigProvider, feeds FeedLister, sched Scheduler, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		feeds:     feeds,
		scheduler: sched,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run serves HTTP until ctx is canceled, then drains in-flight requests for up to
// shutdownTimeout. A listen failure is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       2 * timeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", listen)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve on %s: %w", listen, err)
	case <-ctx.Done():
	}

	log.Printf("[INFO] draining http connections")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", listen, err)
	}
	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("feedroll", "feedroll", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /feeds", s.feedsHandler)
		r.HandleFunc("POST /refresh", s.refreshHandler)
	})

	s.router.Handle("GET /metrics", promhttp.Handler())

	// rendered files, index.html is served for "/"
	fs, err := rest.NewFileServer("/", s.config.GetStaticDir())
	if err != nil {
		log.Printf("[WARN] static files are not served: %v", err)
		return
	}
	s.router.Handle("GET /", fs)
}

// renderJSON writes data with the given status. Data is encoded before anything is sent,
// so an encoding failure still produces a well-formed 500.
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(data); err != nil {
		log.Printf("[ERROR] encode %T response: %v", data, err)
		code = http.StatusInternalServerError
		body.Reset()
		body.WriteString(`{"error":"response encoding failed"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body.Bytes())
}

// renderError writes {"error": msg}
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": msg})
}
