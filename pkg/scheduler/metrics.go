package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedroll_feed_updates_total",
		Help: "Feed refresh attempts by result kind",
	}, []string{"result"})

	postsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedroll_posts_upserted_total",
		Help: "The total number of posts inserted or merged",
	})

	postsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedroll_posts_pruned_total",
		Help: "The total number of posts removed by retention",
	})

	cyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedroll_cycles_skipped_total",
		Help: "Refresh cycles dropped because another cycle was running",
	})

	unhealthyFeeds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedroll_unhealthy_feeds",
		Help: "Feeds whose last refresh failed, as of the last cycle",
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedroll_cycle_duration_seconds",
		Help:    "Duration of refresh cycles",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})
)

// feedResultLabel is the metric label for a successful feed update
const feedResultLabel = "ok"
