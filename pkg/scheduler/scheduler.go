package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/feedroll/feedroll/pkg/domain"
)

//go:generate moq -out mocks/feed_manager.go -pkg mocks -skip-ensure -fmt goimports . FeedManager
//go:generate moq -out mocks/post_manager.go -pkg mocks -skip-ensure -fmt goimports . PostManager
//go:generate moq -out mocks/parser.go -pkg mocks -skip-ensure -fmt goimports . Parser
//go:generate moq -out mocks/renderer.go -pkg mocks -skip-ensure -fmt goimports . Renderer

// ErrCycleInProgress is returned when a refresh cycle is requested while another one runs
var ErrCycleInProgress = errors.New("refresh cycle in progress")

// FeedManager handles feed persistence and health
type FeedManager interface {
	UpsertFeed(ctx context.Context, feed *domain.Feed) error
	UpsertFailedFeed(ctx context.Context, d domain.FeedDescriptor, errMsg string) error
	GetFeeds(ctx context.Context) ([]domain.Feed, error)
	RecordSuccess(ctx context.Context, feed *domain.Feed, at time.Time) error
	RecordFailure(ctx context.Context, link, errMsg string) error
}

// PostManager handles post persistence
type PostManager interface {
	UpsertPosts(ctx context.Context, posts []domain.Post) (domain.UpsertResult, error)
	GetPosts(ctx context.Context, filter domain.PostFilter) ([]domain.PostWithFeed, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Parser fetches and parses a remote feed document
type Parser interface {
	Parse(ctx context.Context, url string) (*domain.ParsedFeed, error)
}

// Renderer consumes the store snapshot after every completed cycle
type Renderer interface {
	OnBatchComplete(ctx context.Context, snapshot domain.Snapshot) error
}

// Params holds scheduler dependencies and configuration
type Params struct {
	FeedManager FeedManager
	PostManager PostManager
	Parser      Parser
	Renderer    Renderer // optional

	UpdateInterval time.Duration // between refresh cycles, 15m if zero
	RetentionAge   time.Duration // posts older than this are pruned, 168h if zero
	RecentWindow   time.Duration // snapshot split between recent and older posts, 24h if zero
	MaxWorkers     int           // concurrent feeds, unbounded if <= 0
}

// InitReport summarizes a feed initialization run
type InitReport struct {
	Total       int
	Initialized int
	Failed      int
}

// CycleReport summarizes a refresh cycle
type CycleReport struct {
	StartedAt    time.Time
	Duration     time.Duration
	Feeds        int
	Succeeded    int
	Failed       int
	PostsStored  int
	PostsSkipped int
	Pruned       int64
	Rendered     bool
}

// Scheduler drives refresh cycles: it fans out one update per feed, waits for all of them,
// prunes expired posts and hands a snapshot to the renderer. Cycles never overlap.
type Scheduler struct {
	feedManager   FeedManager
	postManager   PostManager
	renderer      Renderer
	feedProcessor *FeedProcessor

	updateInterval time.Duration
	retentionAge   time.Duration
	recentWindow   time.Duration
	maxWorkers     int

	running   atomic.Bool
	triggerCh chan struct{}
	now       func() time.Time

	mu          sync.Mutex
	lastReport  *CycleReport
	descriptors map[string]domain.FeedDescriptor // overrides by feed link

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(params Params) *Scheduler {
	if params.UpdateInterval <= 0 {
		params.UpdateInterval = 15 * time.Minute
	}
	if params.RetentionAge <= 0 {
		params.RetentionAge = 168 * time.Hour
	}
	if params.RecentWindow <= 0 {
		params.RecentWindow = 24 * time.Hour
	}

	return &Scheduler{
		feedManager: params.FeedManager,
		postManager: params.PostManager,
		renderer:    params.Renderer,
		feedProcessor: NewFeedProcessor(FeedProcessorConfig{
			FeedManager: params.FeedManager,
			PostManager: params.PostManager,
			Parser:      params.Parser,
		}),
		updateInterval: params.UpdateInterval,
		retentionAge:   params.RetentionAge,
		recentWindow:   params.RecentWindow,
		maxWorkers:     params.MaxWorkers,
		triggerCh:      make(chan struct{}, 1),
		now:            time.Now,
		descriptors:    map[string]domain.FeedDescriptor{},
	}
}

// Start initializes configured feeds and runs refresh cycles, the first one immediately
// and then every update interval, until Stop is called or ctx is canceled
func (s *Scheduler) Start(ctx context.Context, descriptors []domain.FeedDescriptor) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunInitialization(ctx, descriptors)
		s.refreshWorker(ctx)
	}()

	lgr.Printf("[INFO] scheduler started for %d feeds, update interval %v, retention %v",
		len(descriptors), s.updateInterval, s.retentionAge)
}

// Stop cancels running work and waits for it to finish
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// TriggerRefresh requests an extra refresh cycle without waiting for it. Requests made while
// one is already pending are coalesced, the return value is false in that case.
func (s *Scheduler) TriggerRefresh() bool {
	select {
	case s.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// Running reports whether a refresh cycle is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastReport returns the report of the last completed cycle, false if none completed yet
func (s *Scheduler) LastReport() (CycleReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return CycleReport{}, false
	}
	return *s.lastReport, true
}

// refreshWorker runs a cycle immediately, then on every tick or trigger
func (s *Scheduler) refreshWorker(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.triggerCh:
			lgr.Printf("[INFO] refresh triggered")
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	report, err := s.RunRefreshCycle(ctx)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		lgr.Printf("[INFO] refresh cycle skipped, previous one still running")
	case ctx.Err() != nil:
		lgr.Printf("[INFO] refresh cycle interrupted")
	case err != nil:
		lgr.Printf("[ERROR] refresh cycle failed: %v", err)
	default:
		lgr.Printf("[INFO] refresh cycle done in %v: %d feeds, %d ok, %d failed, %d posts stored, %d skipped, %d pruned",
			report.Duration.Round(time.Millisecond), report.Feeds, report.Succeeded, report.Failed,
			report.PostsStored, report.PostsSkipped, report.Pruned)
	}
}

// RunInitialization initializes all descriptors concurrently and waits for all of them.
// Descriptors are kept, their overrides are applied again on every refresh.
func (s *Scheduler) RunInitialization(ctx context.Context, descriptors []domain.FeedDescriptor) InitReport {
	s.mu.Lock()
	for _, d := range descriptors {
		s.descriptors[d.Link] = d
	}
	s.mu.Unlock()

	ok := make([]bool, len(descriptors))

	g := new(errgroup.Group)
	g.SetLimit(s.workerLimit())
	for i, d := range descriptors {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := s.feedProcessor.InitFeed(ctx, d)
			ok[i] = err == nil
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	initialized := lo.Count(ok, true)
	report := InitReport{Total: len(descriptors), Initialized: initialized, Failed: len(descriptors) - initialized}
	lgr.Printf("[INFO] initialized %d of %d feeds, %d failed", report.Initialized, report.Total, report.Failed)
	return report
}

// RunRefreshCycle updates all stored feeds concurrently, then prunes expired posts and
// renders a snapshot. Returns ErrCycleInProgress without doing anything if a cycle is running.
// If ctx is canceled while feeds are updated, pruning and rendering are skipped.
func (s *Scheduler) RunRefreshCycle(ctx context.Context) (CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		cyclesSkipped.Inc()
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.running.Store(false)

	report := CycleReport{StartedAt: s.now().UTC()}
	start := time.Now()
	defer func() { cycleDuration.Observe(time.Since(start).Seconds()) }()

	feeds, err := s.feedManager.GetFeeds(ctx)
	if err != nil {
		return report, fmt.Errorf("get feeds: %w", err)
	}
	report.Feeds = len(feeds)
	lgr.Printf("[DEBUG] refreshing %d feeds", len(feeds))

	s.mu.Lock()
	overrides := lo.Map(feeds, func(f domain.Feed, _ int) domain.FeedDescriptor { return s.descriptors[f.Link] })
	s.mu.Unlock()

	results := make([]FeedResult, len(feeds))
	g := new(errgroup.Group)
	g.SetLimit(s.workerLimit())
	for i, f := range feeds {
		g.Go(func() error {
			results[i] = s.feedProcessor.UpdatePosts(ctx, f, overrides[i])
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, one feed can't cancel another

	report.Failed = lo.CountBy(results, func(r FeedResult) bool { return r.Err != nil })
	report.Succeeded = report.Feeds - report.Failed
	report.PostsStored = lo.SumBy(results, func(r FeedResult) int { return r.Stored })
	report.PostsSkipped = lo.SumBy(results, func(r FeedResult) int { return r.Skipped })
	unhealthyFeeds.Set(float64(report.Failed))

	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("refresh cycle canceled: %w", err)
	}

	if report.Pruned, err = s.Prune(ctx); err != nil {
		lgr.Printf("[WARN] prune failed: %v", err)
	}

	if s.renderer != nil {
		snapshot, err := s.Snapshot(ctx)
		if err != nil {
			s.storeReport(&report, start)
			return report, fmt.Errorf("build snapshot: %w", err)
		}
		if err := s.renderer.OnBatchComplete(ctx, snapshot); err != nil {
			s.storeReport(&report, start)
			return report, fmt.Errorf("render snapshot: %w", err)
		}
		report.Rendered = true
	}

	s.storeReport(&report, start)
	return report, nil
}

// Prune removes posts older than the retention age and returns how many were removed
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retentionAge)
	deleted, err := s.postManager.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune posts: %w", err)
	}
	postsPruned.Add(float64(deleted))
	if deleted > 0 {
		lgr.Printf("[INFO] pruned %d posts published before %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// Snapshot builds the renderer view: all feeds plus posts split by the recent window,
// both sets ordered newest first
func (s *Scheduler) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	now := s.now().UTC()
	feeds, err := s.feedManager.GetFeeds(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get feeds: %w", err)
	}

	border := now.Add(-s.recentWindow)
	recent, err := s.postManager.GetPosts(ctx, domain.PostFilter{Since: border})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get recent posts: %w", err)
	}
	older, err := s.postManager.GetPosts(ctx, domain.PostFilter{Until: border})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get older posts: %w", err)
	}

	return domain.Snapshot{Feeds: feeds, Recent: recent, Older: older, GeneratedAt: now}, nil
}

func (s *Scheduler) storeReport(report *CycleReport, start time.Time) {
	report.Duration = time.Since(start)
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *report
	s.lastReport = &r
}

// workerLimit converts MaxWorkers to an errgroup limit, negative means no limit
func (s *Scheduler) workerLimit() int {
	if s.maxWorkers <= 0 {
		return -1
	}
	return s.maxWorkers
}
