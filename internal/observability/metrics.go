// Package observability provides logging, metrics, and tracing.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageViews counts view-counter increments per site.
	PageViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatpages_page_views_total",
		Help: "Total number of counted page views",
	}, []string{"site"})

	// LookupOutcomes counts page lookups by outcome
	// (found, redirect, not_found, hidden_draft, login_required).
	LookupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatpages_lookup_outcomes_total",
		Help: "Page lookups by outcome",
	}, []string{"outcome"})

	// QueryLatency records composed page query latency by sort order.
	QueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flatpages_query_latency_seconds",
		Help:    "Composed page query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"sort"})

	// CacheResults counts cache lookups by cache name and result (hit, miss).
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatpages_cache_results_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})
)

// RecordView increments the counted views metric for a site.
func RecordView(siteID uint) {
	PageViews.WithLabelValues(strconv.FormatUint(uint64(siteID), 10)).Inc()
}

// RecordLookup increments the lookup outcome metric.
func RecordLookup(outcome string) {
	LookupOutcomes.WithLabelValues(outcome).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(sort string) func() {
	start := time.Now()
	return func() {
		QueryLatency.WithLabelValues(sort).Observe(time.Since(start).Seconds())
	}
}
