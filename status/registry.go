package status

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metric keys published by the field and its frontends
const (
	KeyDensity            = "field.density"
	KeyRegenerations      = "field.regenerations"
	KeyRemounts           = "field.remounts"
	KeyPlacementFallbacks = "field.placement.fallbacks"
	KeyMountedFields      = "field.mounted"
	KeyClients            = "server.clients"
	KeyFramesSent         = "server.frames"
	KeyFrameRate          = "render.fps"
)

// Registry groups counters and gauges shared by every frontend of a process
type Registry struct {
	Ints   *MetricSet[atomic.Int64]
	Floats *MetricSet[Gauge]
}

func NewRegistry() *Registry {
	return &Registry{
		Ints:   NewMetricSet[atomic.Int64](),
		Floats: NewMetricSet[Gauge](),
	}
}

// TotalCount returns the number of metrics of either kind
func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count()
}

// Snapshot copies every metric into a plain map, ints widened to float64
func (r *Registry) Snapshot() map[string]float64 {
	out := make(map[string]float64, r.TotalCount())
	r.Ints.Range(func(key string, v *atomic.Int64) {
		out[key] = float64(v.Load())
	})
	r.Floats.Range(func(key string, v *Gauge) {
		out[key] = v.Load()
	})
	return out
}

// Line renders every metric as "key=value" pairs, counters then gauges, each in key order
// The field. prefix is dropped from keys of either kind
func (r *Registry) Line() string {
	var b strings.Builder
	r.Ints.Range(func(key string, v *atomic.Int64) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", shortKey(key), v.Load())
	})
	r.Floats.Range(func(key string, v *Gauge) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%.1f", shortKey(key), v.Load())
	})
	return b.String()
}

func shortKey(key string) string {
	return strings.TrimPrefix(key, "field.")
}
