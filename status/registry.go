// Package status counts engine events for the debug overlay and tests
package status

import (
	"fmt"
	"sync/atomic"
)

// Registry is the engine-wide metrics sink
// Writers may run on any goroutine; a nil *Registry discards everything
type Registry struct {
	counters *metrics[atomic.Int64]
	gauges   *metrics[Gauge]
}

func NewRegistry() *Registry {
	return &Registry{
		counters: newMetrics[atomic.Int64](),
		gauges:   newMetrics[Gauge](),
	}
}

// Inc bumps a counter by one
func (r *Registry) Inc(key string) {
	r.Add(key, 1)
}

// Add bumps a counter by n
func (r *Registry) Add(key string, n int64) {
	if r == nil {
		return
	}
	r.counters.get(key).Add(n)
}

// Count reads a counter, zero when absent
func (r *Registry) Count(key string) int64 {
	if r == nil {
		return 0
	}
	if c, ok := r.counters.find(key); ok {
		return c.Load()
	}
	return 0
}

// SetGauge stores a gauge value
func (r *Registry) SetGauge(key string, v float64) {
	if r == nil {
		return
	}
	r.gauges.get(key).Set(v)
}

// Gauge reads a gauge, zero when absent
func (r *Registry) Gauge(key string) float64 {
	if r == nil {
		return 0
	}
	if g, ok := r.gauges.find(key); ok {
		return g.Load()
	}
	return 0
}

// Len returns the number of distinct metrics
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.counters.len() + r.gauges.len()
}

// Lines renders counters then gauges as "key value", each group sorted
func (r *Registry) Lines() []string {
	if r == nil {
		return nil
	}
	lines := make([]string, 0, r.Len())
	r.counters.each(func(k string, v *atomic.Int64) {
		lines = append(lines, fmt.Sprintf("%s %d", k, v.Load()))
	})
	r.gauges.each(func(k string, v *Gauge) {
		lines = append(lines, fmt.Sprintf("%s %.2f", k, v.Load()))
	})
	return lines
}
