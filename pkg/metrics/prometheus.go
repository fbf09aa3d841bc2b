package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
)

// Exporter turns benchmark reports into Prometheus metrics on a private
// registry.
type Exporter struct {
	runID    string
	registry *prometheus.Registry

	latency  *prometheus.HistogramVec
	phase    *prometheus.GaugeVec
	duration *prometheus.GaugeVec
}

// NewExporter creates an exporter for the run with the given id
func NewExporter(runID string) *Exporter {
	e := &Exporter{
		runID:    runID,
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pod_latency_seconds",
			Help:      "Per-pod latency between an issued mutation and its observed milestone.",
			Buckets:   LatencyBuckets,
		}, []string{labelScenario, labelDistribution}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each timed benchmark phase.",
		}, []string{labelScenario, labelPhase}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the whole benchmark run.",
		}, []string{labelScenario}),
	}
	e.registry.MustRegister(e.latency, e.phase, e.duration)
	return e
}

// Registry exposes the exporter's registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Record observes every latency and phase duration in report.
func (e *Exporter) Record(report *kbenchv1alpha1.BenchmarkReport) {
	scenario := string(report.Spec.Scenario)

	for _, r := range report.Status.Resources {
		if r.StartupSeconds != nil {
			e.latency.WithLabelValues(scenario, "startup").Observe(*r.StartupSeconds)
		}
		if r.CleanupSeconds != nil {
			e.latency.WithLabelValues(scenario, "cleanup").Observe(*r.CleanupSeconds)
		}
	}

	for _, span := range report.Status.Spans {
		e.phase.WithLabelValues(scenario, span.Name).Set(span.DurationSeconds)
	}
	for _, phase := range report.Status.Phases {
		e.phase.WithLabelValues(scenario, phase.Name).Set(phase.DurationSeconds)
	}

	if report.Status.StartTime != nil && report.Status.CompletionTime != nil {
		elapsed := report.Status.CompletionTime.Sub(report.Status.StartTime.Time)
		e.duration.WithLabelValues(scenario).Set(elapsed.Seconds())
	}
}

// Encode writes the registry in the text exposition format.
func (e *Exporter) Encode(w io.Writer) error {
	families, err := e.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile writes the registry to path for the node exporter textfile
// collector.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Push replaces the metrics of this run on the Pushgateway at url.
func (e *Exporter) Push(ctx context.Context, url string) error {
	err := push.New(url, DefaultJob).
		Gatherer(e.registry).
		Grouping(labelRunID, e.runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
