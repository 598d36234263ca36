package prommetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the counter name with the given labels.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("counter %s%v not found", name, labels)
	return 0
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordFactor("load", "miss", nil)
	c.RecordFactor("load", "hit", nil)
	c.RecordFactor("load", "hit", nil)
	c.RecordFactor("save", "saved", errors.New("boom"))
	c.RecordSolve("high_precision", 10, time.Millisecond, nil)
	c.RecordSolve("high_precision", 5, time.Millisecond, nil)
	c.RecordSketch("projection", "gaussian", 200, time.Millisecond, nil)
	c.RecordTrial(time.Second, nil)

	assert.Equal(t, 1.0, counterValue(t, reg, "randls_factor_operations_total", map[string]string{"op": "load", "outcome": "miss"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "randls_factor_operations_total", map[string]string{"op": "load", "outcome": "hit"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "randls_factor_operations_total", map[string]string{"op": "save", "outcome": "error"}))
	assert.Equal(t, 15.0, counterValue(t, reg, "randls_lsqr_iterations_total", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "randls_trial_duration_seconds")
	assert.Contains(t, names, "randls_sketch_rows")
	assert.Contains(t, names, "randls_sketch_duration_seconds")
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
