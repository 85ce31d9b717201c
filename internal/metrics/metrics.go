package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalog",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "upstream_requests_total",
		Help:      "Total requests to the movie-listing proxy by operation and outcome.",
	}, []string{"operation", "outcome"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalog",
		Name:      "upstream_request_duration_seconds",
		Help:      "Movie-listing proxy request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	CatalogOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "operations_total",
		Help:      "Catalog operations (search, category) by result.",
	}, []string{"operation", "result"})

	CategoryPagesFetched = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalog",
		Name:      "category_pages_fetched",
		Help:      "Upstream pages fetched per category listing.",
		Buckets:   []float64{1, 2},
	}, []string{"category"})

	SessionLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "session_lookups_total",
		Help:      "Session cookie to token lookups by result.",
	}, []string{"result"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		CatalogOperationsTotal,
		CategoryPagesFetched,
		SessionLookupsTotal,
	)
}
