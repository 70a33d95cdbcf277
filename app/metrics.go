package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "impact"

type Metrics struct {
	submissions   *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	approvals     *prometheus.CounterVec
	inflight      prometheus.Gauge
	ledgerSeconds prometheus.Histogram
}

// NewMetrics registers the app collectors with reg. A nil reg keeps the
// collectors private.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submissions_total",
			Help:      "Submissions received, by result.",
		}, []string{"result"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "proof_uploads_total",
			Help:      "Proof uploads received, by result.",
		}, []string{"result"}),
		approvals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "approvals_total",
			Help:      "Approval attempts, by result.",
		}, []string{"result"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "approvals_inflight",
			Help:      "Approvals waiting on the ledger.",
		}),
		ledgerSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_write_seconds",
			Help:      "Time from sending a ledger record to its confirmation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}
}

func (m *Metrics) submission(result string) { m.submissions.WithLabelValues(result).Inc() }
func (m *Metrics) upload(result string)     { m.uploads.WithLabelValues(result).Inc() }
func (m *Metrics) approval(result string)   { m.approvals.WithLabelValues(result).Inc() }
