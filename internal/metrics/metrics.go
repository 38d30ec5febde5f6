// Package metrics provides Prometheus metrics for the bookmap backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all counters the backend exposes on /metrics. The upload and
// location counters make the silent degradation paths (remote-upload fallback,
// skipped geo entries) observable without changing their tolerance.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec

	BooksCreatedTotal prometheus.Counter
	BBoxQueriesTotal  prometheus.Counter
	SearchesTotal     prometheus.Counter

	RemoteUploadsTotal    prometheus.Counter
	LocalUploadsTotal     prometheus.Counter
	UploadFallbacksTotal  prometheus.Counter
	LocationsSkippedTotal prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-supplied registry (used by tests).
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookmap_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		BooksCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_books_created_total",
			Help: "Books successfully persisted",
		}),
		BBoxQueriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_bbox_queries_total",
			Help: "Bounding-box queries executed",
		}),
		SearchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_searches_total",
			Help: "Free-text searches executed (blank queries excluded)",
		}),
		RemoteUploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_remote_uploads_total",
			Help: "PDF uploads stored in remote object storage",
		}),
		LocalUploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_local_uploads_total",
			Help: "PDF uploads stored on local disk",
		}),
		UploadFallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_upload_fallbacks_total",
			Help: "PDF uploads that fell back to local disk after a failed remote attempt",
		}),
		LocationsSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookmap_locations_skipped_total",
			Help: "Stored location entries hidden from output as malformed",
		}),
	}
}
