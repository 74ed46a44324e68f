package service

import (
	"github.com/catalyst-codex/codex/shared/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	threadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "forum",
		Name:      "threads_created_total",
		Help:      "Threads created",
	})

	postsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "forum",
		Name:      "posts_created_total",
		Help:      "Posts created, first posts of new threads included",
	})

	// writes that succeeded while a later write of the same operation failed
	partialWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "forum",
		Name:      "partial_writes_total",
		Help:      "Multi-write operations that failed after their first write",
	}, []string{"operation"})

	categoryCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "forum",
		Name:      "category_cache_lookups_total",
		Help:      "Category cache lookups by result",
	}, []string{"result"})
)
