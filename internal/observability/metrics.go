package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ongopool", Name: "searches_total", Help: "Total ride searches served"})
	SearchesByPath = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ongopool", Name: "searches_by_path_total", Help: "Ride searches by serving path (remote, local, unavailable)"},
		[]string{"path"},
	)
	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ongopool", Name: "geocode_requests_total", Help: "Geocode resolutions by source level"},
		[]string{"source"},
	)
	RouteFallbacks = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ongopool", Name: "route_fallbacks_total", Help: "Routes served from the great-circle fallback"})
	ListingsPosted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ongopool", Name: "listings_posted_total", Help: "Ride listings posted"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ongopool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ongopool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
