package status

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
)

// MetricSet maps names to lazily allocated metrics of type T
// Callers keep the returned pointer and update it without touching the set again
type MetricSet[T any] struct {
	items sync.Map // string -> *T
	count atomic.Int32
}

// NewMetricSet returns an empty set
func NewMetricSet[T any]() *MetricSet[T] {
	return &MetricSet[T]{}
}

// Get returns the metric for key, allocating its zero value on first use
func (m *MetricSet[T]) Get(key string) *T {
	if v, ok := m.items.Load(key); ok {
		return v.(*T)
	}
	v, loaded := m.items.LoadOrStore(key, new(T))
	if !loaded {
		m.count.Add(1)
	}
	return v.(*T)
}

// Has reports whether key was ever requested
func (m *MetricSet[T]) Has(key string) bool {
	_, ok := m.items.Load(key)
	return ok
}

// Range visits every metric in key order
func (m *MetricSet[T]) Range(fn func(key string, v *T)) {
	var keys []string
	m.items.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	slices.Sort(keys)
	for _, k := range keys {
		v, _ := m.items.Load(k)
		fn(k, v.(*T))
	}
}

// Count returns the number of registered metrics
func (m *MetricSet[T]) Count() int {
	return int(m.count.Load())
}

// Gauge is a float64 updated atomically, the zero value reads 0
type Gauge struct {
	bits atomic.Uint64
}

func (g *Gauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

func (g *Gauge) Load() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Add applies delta with a CAS loop and returns the result
func (g *Gauge) Add(delta float64) float64 {
	for {
		old := g.bits.Load()
		next := math.Float64frombits(old) + delta
		if g.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}
