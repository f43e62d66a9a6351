package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherpanel_upstream_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherpanel_upstream_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PanelSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherpanel_panel_searches_total",
			Help: "Panel searches by outcome (ready, error, deduplicated, stale)",
		},
		[]string{"panel", "outcome"},
	)

	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherpanel_suggestions_total",
			Help: "Suggestion resolutions by source (short, gazetteer, upstream, cache, upstream_error)",
		},
		[]string{"source"},
	)

	StaleResponsesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherpanel_stale_responses_discarded_total",
			Help: "Responses dropped because a newer request was issued",
		},
		[]string{"kind"},
	)
)
