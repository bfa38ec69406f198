package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the evidence lifecycle.
type Metrics struct {
	DraftsCreated        prometheus.Counter
	DraftsQuarantined    prometheus.Counter
	DraftsAbandoned      prometheus.Counter
	RecordsSealed        prometheus.Counter
	IdempotencyConflicts prometheus.Counter
}

// New creates and registers all evidence metrics.
func New() *Metrics {
	return &Metrics{
		DraftsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evigate_drafts_created_total",
			Help: "Total number of evidence drafts admitted at intake",
		}),
		DraftsQuarantined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evigate_drafts_quarantined_total",
			Help: "Total number of drafts quarantined at the payload checkpoint",
		}),
		DraftsAbandoned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evigate_drafts_abandoned_total",
			Help: "Total number of drafts abandoned without sealing",
		}),
		RecordsSealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evigate_records_sealed_total",
			Help: "Total number of sealed evidence records",
		}),
		IdempotencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evigate_seal_idempotency_conflicts_total",
			Help: "Total number of seal attempts rejected by the idempotency reservation",
		}),
	}
}
