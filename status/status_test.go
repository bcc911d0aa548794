package status

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersAndGauges(t *testing.T) {
	r := NewRegistry()
	r.Inc("signal.fired")
	r.Inc("signal.fired")
	r.SetGauge("render.instances", 12)

	assert.EqualValues(t, 2, r.Count("signal.fired"))
	assert.Zero(t, r.Count("missing"))
	assert.Equal(t, 12.0, r.Gauge("render.instances"))
	assert.Equal(t, []string{"signal.fired 2", "render.instances 12.00"}, r.Lines())
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.Inc("x")
		r.SetGauge("y", 1)
	})
	assert.Zero(t, r.Count("x"))
	assert.Nil(t, r.Lines())
}

func TestConcurrentInc(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Inc("hits")
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1600, r.Count("hits"))
	assert.Equal(t, 1, r.Len())
}

func TestAddAndLinesOrder(t *testing.T) {
	r := NewRegistry()
	r.Add("b.count", 5)
	r.Inc("a.count")
	r.SetGauge("z.gauge", 0.5)
	r.SetGauge("y.gauge", 1)
	assert.Equal(t, []string{"a.count 1", "b.count 5", "y.gauge 1.00", "z.gauge 0.50"}, r.Lines())
	assert.Zero(t, r.Gauge("missing"))
	assert.Equal(t, 4, r.Len())
}
