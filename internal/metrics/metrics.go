package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Fetch metrics
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	// Barometer metrics
	instrumentsProcessed prometheus.Counter
	instrumentsDropped   *prometheus.CounterVec
	indicatorFailures    *prometheus.CounterVec
	missingFlags         prometheus.Counter
	barometerRows        prometheus.Gauge
	selectionsTotal      *prometheus.CounterVec
	runsTotal            *prometheus.CounterVec
	runDuration          prometheus.Histogram
	lastRun              prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendstrength_fetches_total",
				Help: "Total number of price history fetches",
			},
			[]string{"collector", "status"},
		),

		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendstrength_fetch_duration_seconds",
				Help:    "Price history fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collector"},
		),
	}

	reg.MustRegister(r.fetchesTotal)
	reg.MustRegister(r.fetchDuration)

	r.instrumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendstrength_instruments_processed_total",
			Help: "Total number of instruments run through the field generator",
		},
	)
	r.instrumentsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendstrength_instruments_dropped_total",
			Help: "Total number of instruments dropped before scoring",
		},
		[]string{"reason"},
	)
	r.indicatorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendstrength_indicator_failures_total",
			Help: "Total number of indicator computations that failed",
		},
		[]string{"indicator"},
	)
	r.missingFlags = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendstrength_missing_flags_total",
			Help: "Total number of (instrument, flag) cells scored as neutral because the flag was absent",
		},
	)
	r.barometerRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendstrength_barometer_rows",
			Help: "Number of rows in the latest barometer table",
		},
	)
	r.selectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendstrength_selections_total",
			Help: "Total number of market selections",
		},
		[]string{"policy"},
	)
	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendstrength_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trendstrength_pipeline_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	r.lastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendstrength_last_run_timestamp_seconds",
			Help: "Unix time of the last completed barometer run",
		},
	)

	reg.MustRegister(r.instrumentsProcessed)
	reg.MustRegister(r.instrumentsDropped)
	reg.MustRegister(r.indicatorFailures)
	reg.MustRegister(r.missingFlags)
	reg.MustRegister(r.barometerRows)
	reg.MustRegister(r.selectionsTotal)
	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.lastRun)

	return r
}

// RecordFetch records one price history fetch.
func (r *Registry) RecordFetch(collector string, err error, duration time.Duration) {
	r.fetchesTotal.WithLabelValues(collector, statusOf(err)).Inc()
	r.fetchDuration.WithLabelValues(collector).Observe(duration.Seconds())
}

// RecordProcessed adds n instruments to the processed count.
func (r *Registry) RecordProcessed(n int) {
	r.instrumentsProcessed.Add(float64(n))
}

// RecordDropped adds n instruments dropped for reason.
func (r *Registry) RecordDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	r.instrumentsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordIndicatorFailure records a failed indicator computation.
func (r *Registry) RecordIndicatorFailure(indicator string) {
	r.indicatorFailures.WithLabelValues(indicator).Inc()
}

// RecordMissingFlags adds n missing flag cells.
func (r *Registry) RecordMissingFlags(n int) {
	r.missingFlags.Add(float64(n))
}

// SetBarometerRows sets the size of the latest table.
func (r *Registry) SetBarometerRows(n int) {
	r.barometerRows.Set(float64(n))
}

// RecordSelection records a market selection under policy.
func (r *Registry) RecordSelection(policy string) {
	r.selectionsTotal.WithLabelValues(policy).Inc()
}

// RecordRun records a pipeline run completion.
func (r *Registry) RecordRun(err error, duration time.Duration, finished time.Time) {
	r.runsTotal.WithLabelValues(statusOf(err)).Inc()
	r.runDuration.Observe(duration.Seconds())
	if err == nil {
		r.lastRun.Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes every gathered metric to path in the text
// exposition format, for node_exporter's textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
