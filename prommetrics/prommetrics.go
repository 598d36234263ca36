// Package prommetrics exports randls metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/hupe1980/randls"
	"github.com/prometheus/client_golang/prometheus"
)

var _ randls.MetricsCollector = (*Collector)(nil)

// Collector implements randls.MetricsCollector with Prometheus metrics.
type Collector struct {
	sketchLatency *prometheus.HistogramVec
	sketchRows    *prometheus.HistogramVec
	factors       *prometheus.CounterVec
	solveLatency  *prometheus.HistogramVec
	solveIters    prometheus.Counter
	trialLatency  *prometheus.HistogramVec
}

// New creates a Collector and registers its metrics with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		sketchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "randls_sketch_duration_seconds",
			Help:    "Time to build a sketch",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "kind", "status"}),
		sketchRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "randls_sketch_rows",
			Help:    "Row count of built sketches",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12),
		}, []string{"mode"}),
		factors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "randls_factor_operations_total",
			Help: "Preconditioning factor loads and saves by outcome",
		}, []string{"op", "outcome"}),
		solveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "randls_solve_duration_seconds",
			Help:    "Time spent in the solver",
			Buckets: prometheus.DefBuckets,
		}, []string{"solver", "status"}),
		solveIters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randls_lsqr_iterations_total",
			Help: "LSQR iterations run",
		}),
		trialLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "randls_trial_duration_seconds",
			Help:    "Time per trial",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}

	for _, m := range []prometheus.Collector{
		c.sketchLatency, c.sketchRows, c.factors, c.solveLatency, c.solveIters, c.trialLatency,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSketch implements randls.MetricsCollector.
func (c *Collector) RecordSketch(mode, kind string, rows int, d time.Duration, err error) {
	c.sketchLatency.WithLabelValues(mode, kind, status(err)).Observe(d.Seconds())
	if err == nil {
		c.sketchRows.WithLabelValues(mode).Observe(float64(rows))
	}
}

// RecordFactor implements randls.MetricsCollector.
func (c *Collector) RecordFactor(op, outcome string, err error) {
	if err != nil {
		outcome = "error"
	}
	c.factors.WithLabelValues(op, outcome).Inc()
}

// RecordSolve implements randls.MetricsCollector.
func (c *Collector) RecordSolve(solver string, iters int, d time.Duration, err error) {
	c.solveLatency.WithLabelValues(solver, status(err)).Observe(d.Seconds())
	c.solveIters.Add(float64(iters))
}

// RecordTrial implements randls.MetricsCollector.
func (c *Collector) RecordTrial(d time.Duration, err error) {
	c.trialLatency.WithLabelValues(status(err)).Observe(d.Seconds())
}
