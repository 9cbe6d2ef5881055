package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SubmissionsDirect = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saut_submissions_direct_total",
		Help: "Recordings submitted straight to the API.",
	})
	SubmissionsQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saut_submissions_queued_total",
		Help: "Recordings queued locally for background sync.",
	})

	SyncUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saut_sync_uploads_total",
		Help: "Pending items uploaded successfully by the sync worker.",
	}, []string{"kind"})
	SyncFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saut_sync_failures_total",
		Help: "Pending-item upload attempts that failed and stayed queued.",
	}, []string{"kind"})
	ExpiredTokens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saut_sync_expired_tokens_total",
		Help: "Upload attempts made with an already-expired captured token.",
	})
	PendingItems = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saut_pending_items",
		Help: "Current queue depth per pending-item kind.",
	}, []string{"kind"})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saut_asset_cache_hits_total",
		Help: "Asset requests served from the versioned cache.",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saut_asset_cache_misses_total",
		Help: "Asset requests passed through to the origin.",
	})
)

func Register() {
	prometheus.MustRegister(
		SubmissionsDirect, SubmissionsQueued,
		SyncUploads, SyncFailures, ExpiredTokens, PendingItems,
		CacheHits, CacheMisses,
	)
}
