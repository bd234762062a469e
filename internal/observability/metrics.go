package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the ingest counters. Every method is safe on a nil receiver so components
// can be built without metrics.
type Metrics struct {
	registry *prometheus.Registry

	rowsResolved         *prometheus.CounterVec
	rowsUnresolved       *prometheus.CounterVec
	markupsInserted      *prometheus.CounterVec
	chunks               *prometheus.CounterVec
	segmentsUpserted     *prometheus.CounterVec
	versionsArchived     *prometheus.CounterVec
	accountModelsDeleted *prometheus.CounterVec
	runs                 *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_rows_resolved_total",
			Help: "Markup rows matched to a customer profile.",
		}, []string{"model_type"}),
		rowsUnresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_rows_unresolved_total",
			Help: "Rows dropped because a reference could not be resolved.",
		}, []string{"model_type", "stage"}),
		markupsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_markups_inserted_total",
			Help: "Markup rows committed.",
		}, []string{"model_type"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_markup_chunks_total",
			Help: "Markup insert chunks by outcome.",
		}, []string{"model_type", "result"}),
		segmentsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_segments_upserted_total",
			Help: "Segment rows written by catalog upserts.",
		}, []string{"model_type"}),
		versionsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_versions_archival_total",
			Help: "Retired versions by archival outcome.",
		}, []string{"model_type", "result"}),
		accountModelsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_account_models_deleted_total",
			Help: "Account model versions removed by retention.",
		}, []string{"model_type"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markupsync_runs_total",
			Help: "Lifecycle runs by outcome.",
		}, []string{"model_type", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "markupsync_run_duration_seconds",
			Help:    "Wall time of lifecycle runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"model_type", "status"}),
	}
	m.registry.MustRegister(
		m.rowsResolved,
		m.rowsUnresolved,
		m.markupsInserted,
		m.chunks,
		m.segmentsUpserted,
		m.versionsArchived,
		m.accountModelsDeleted,
		m.runs,
		m.runDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveResolution(modelType string, resolved, unresolved int) {
	if m == nil {
		return
	}
	m.rowsResolved.WithLabelValues(modelType).Add(float64(resolved))
	m.rowsUnresolved.WithLabelValues(modelType, "preprocess").Add(float64(unresolved))
}

func (m *Metrics) ObserveLoadUnresolved(modelType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsUnresolved.WithLabelValues(modelType, "load").Add(float64(n))
}

func (m *Metrics) ObserveChunk(modelType string, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.chunks.WithLabelValues(modelType, "error").Inc()
		return
	}
	m.chunks.WithLabelValues(modelType, "ok").Inc()
	m.markupsInserted.WithLabelValues(modelType).Add(float64(rows))
}

func (m *Metrics) ObserveSegments(modelType string, n int) {
	if m == nil {
		return
	}
	m.segmentsUpserted.WithLabelValues(modelType).Add(float64(n))
}

// ObserveArchival records one retired version: "archived", "kept_referenced" or "failed".
func (m *Metrics) ObserveArchival(modelType, result string) {
	if m == nil {
		return
	}
	m.versionsArchived.WithLabelValues(modelType, result).Inc()
}

func (m *Metrics) ObserveAccountModelsDeleted(modelType string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.accountModelsDeleted.WithLabelValues(modelType).Add(float64(n))
}

func (m *Metrics) ObserveRun(modelType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(modelType, status).Inc()
	m.runDuration.WithLabelValues(modelType, status).Observe(d.Seconds())
}

// Push sends the registry to a Prometheus Pushgateway. Batch runs exit before a scrape could
// reach them, so this is how their counters get out.
func (m *Metrics) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	if m == nil || strings.TrimSpace(url) == "" {
		return nil
	}
	if job == "" {
		job = "markupsync"
	}
	p := push.New(url, job).Gatherer(m.registry)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.AddContext(ctx); err != nil {
		return fmt.Errorf("pushgateway: %w", err)
	}
	return nil
}
