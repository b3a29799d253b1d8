package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector captures metrics for a suite run.
type Collector struct {
	registry         *prometheus.Registry
	scenariosTotal   *prometheus.CounterVec
	stepsTotal       *prometheus.CounterVec
	scenarioDuration *prometheus.HistogramVec
	stepDuration     *prometheus.HistogramVec
	pageMetrics      *prometheus.GaugeVec
}

// NewCollector initializes a new metrics registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		scenariosTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "pagecheck_scenarios_total", Help: "Scenarios run, by outcome"},
			[]string{"outcome"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "pagecheck_steps_total", Help: "Steps run, by kind and status"},
			[]string{"kind", "status"},
		),
		scenarioDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagecheck_scenario_duration_seconds",
				Help:    "Scenario duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scenario", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagecheck_step_duration_seconds",
				Help:    "Step duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "status"},
		),
		pageMetrics: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pagecheck_page_metric",
				Help: "Values measured by observational scenarios",
			},
			[]string{"scenario", "metric"},
		),
	}

	registry.MustRegister(c.scenariosTotal, c.stepsTotal, c.scenarioDuration, c.stepDuration, c.pageMetrics)
	return c
}

// ObserveScenario records a scenario outcome.
func (c *Collector) ObserveScenario(title, outcome string, duration time.Duration) {
	c.scenariosTotal.WithLabelValues(outcome).Inc()
	c.scenarioDuration.WithLabelValues(title, outcome).Observe(duration.Seconds())
}

// ObserveStep records a step outcome.
func (c *Collector) ObserveStep(kind, status string, duration time.Duration) {
	c.stepsTotal.WithLabelValues(kind, status).Inc()
	c.stepDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// ObservePageMetric records a measured page value.
func (c *Collector) ObservePageMetric(title, metric string, value float64) {
	c.pageMetrics.WithLabelValues(title, metric).Set(value)
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	metricFamilies, err := c.registry.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range metricFamilies {
		if err := enc.Encode(family); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("metrics: mkdir %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
