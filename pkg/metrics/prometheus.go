package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records engine metrics in Prometheus.
type Recorder struct {
	pricesResolved   *prometheus.CounterVec
	pricesUnresolved prometheus.Counter
	providerRequests *prometheus.CounterVec
	tenantPipelines  *prometheus.CounterVec
	tradesImported   *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// New creates a recorder registered on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		pricesResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apexpulse_prices_resolved_total",
				Help: "Total number of symbols resolved to a USD price, by tier",
			},
			[]string{"tier"},
		),
		pricesUnresolved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apexpulse_prices_unresolved_total",
				Help: "Total number of symbols no tier could price",
			},
		),
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apexpulse_ai_provider_requests_total",
				Help: "Total number of AI provider attempts, by outcome",
			},
			[]string{"provider", "outcome"},
		),
		tenantPipelines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apexpulse_tenant_pipelines_total",
				Help: "Total number of tenant pipelines run, by status",
			},
			[]string{"status"},
		),
		tradesImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apexpulse_trades_imported_total",
				Help: "Total number of exchange fills stored as transactions",
			},
			[]string{"source"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apexpulse_batch_run_duration_seconds",
				Help:    "Duration of a full batch run in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
	}
}

func (r *Recorder) RecordPriceResolved(tier string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.pricesResolved.WithLabelValues(tier).Add(float64(n))
}

func (r *Recorder) RecordPriceUnresolved(n int) {
	if r == nil || n == 0 {
		return
	}
	r.pricesUnresolved.Add(float64(n))
}

func (r *Recorder) RecordProviderRequest(provider, outcome string) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) RecordTenantPipeline(status string) {
	if r == nil {
		return
	}
	r.tenantPipelines.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordTradesImported(source string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.tradesImported.WithLabelValues(source).Add(float64(n))
}

// RecordRunDuration records a batch run duration in seconds.
func (r *Recorder) RecordRunDuration(seconds float64) {
	if r == nil {
		return
	}
	r.runDuration.Observe(seconds)
}
