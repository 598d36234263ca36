package randls

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// package prommetrics provides one.
type MetricsCollector interface {
	// RecordSketch is called after each sketch is built.
	// mode is "projection" or "sampling", rows is the sketch row count.
	RecordSketch(mode, kind string, rows int, duration time.Duration, err error)

	// RecordFactor is called after each factor load or save.
	// op is "load" or "save", outcome is "hit", "miss" or "saved".
	RecordFactor(op, outcome string, err error)

	// RecordSolve is called after each solve. iters is zero for the
	// low precision solver.
	RecordSolve(solver string, iters int, duration time.Duration, err error)

	// RecordTrial is called after each trial.
	RecordTrial(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSketch(string, string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFactor(string, string, error)                     {}
func (NoopMetricsCollector) RecordSolve(string, int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordTrial(time.Duration, error)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	SketchCount      atomic.Int64
	SketchErrors     atomic.Int64
	SketchTotalNanos atomic.Int64
	FactorHits       atomic.Int64
	FactorMisses     atomic.Int64
	FactorSaves      atomic.Int64
	FactorErrors     atomic.Int64
	SolveCount       atomic.Int64
	SolveErrors      atomic.Int64
	SolveIters       atomic.Int64
	TrialCount       atomic.Int64
	TrialErrors      atomic.Int64
	TrialTotalNanos  atomic.Int64
}

// RecordSketch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSketch(mode, kind string, rows int, duration time.Duration, err error) {
	b.SketchCount.Add(1)
	b.SketchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SketchErrors.Add(1)
	}
}

// RecordFactor implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFactor(op, outcome string, err error) {
	if err != nil {
		b.FactorErrors.Add(1)
		return
	}
	switch outcome {
	case "hit":
		b.FactorHits.Add(1)
	case "miss":
		b.FactorMisses.Add(1)
	case "saved":
		b.FactorSaves.Add(1)
	}
}

// RecordSolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSolve(solver string, iters int, duration time.Duration, err error) {
	b.SolveCount.Add(1)
	b.SolveIters.Add(int64(iters))
	if err != nil {
		b.SolveErrors.Add(1)
	}
}

// RecordTrial implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrial(duration time.Duration, err error) {
	b.TrialCount.Add(1)
	b.TrialTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TrialErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SketchCount:    b.SketchCount.Load(),
		SketchErrors:   b.SketchErrors.Load(),
		SketchAvgNanos: avg(b.SketchTotalNanos.Load(), b.SketchCount.Load()),
		FactorHits:     b.FactorHits.Load(),
		FactorMisses:   b.FactorMisses.Load(),
		FactorSaves:    b.FactorSaves.Load(),
		FactorErrors:   b.FactorErrors.Load(),
		SolveCount:     b.SolveCount.Load(),
		SolveErrors:    b.SolveErrors.Load(),
		SolveIters:     b.SolveIters.Load(),
		TrialCount:     b.TrialCount.Load(),
		TrialErrors:    b.TrialErrors.Load(),
		TrialAvgNanos:  avg(b.TrialTotalNanos.Load(), b.TrialCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SketchCount    int64
	SketchErrors   int64
	SketchAvgNanos int64
	FactorHits     int64
	FactorMisses   int64
	FactorSaves    int64
	FactorErrors   int64
	SolveCount     int64
	SolveErrors    int64
	SolveIters     int64
	TrialCount     int64
	TrialErrors    int64
	TrialAvgNanos  int64
}
