package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors of a schema cache
type Metrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Builds        *prometheus.CounterVec
	Invalidations prometheus.Counter
	Models        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "yangexplorer",
			Subsystem: "schema_cache",
			Name:      "hits_total",
			Help:      "Number of schema lookups served from the cache",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "yangexplorer",
			Subsystem: "schema_cache",
			Name:      "misses_total",
			Help:      "Number of schema lookups that required a build",
		}),
		Builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yangexplorer",
			Subsystem: "schema_cache",
			Name:      "builds_total",
			Help:      "Number of schema builds by result",
		}, []string{"result"}),
		Invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "yangexplorer",
			Subsystem: "schema_cache",
			Name:      "invalidations_total",
			Help:      "Number of cached schemas dropped",
		}),
		Models: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "yangexplorer",
			Subsystem: "schema_cache",
			Name:      "models",
			Help:      "Number of schemas currently cached",
		}),
	}
}
