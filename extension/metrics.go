package extension

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics counts loader activity. Collectors always exist so call sites need
// no nil checks; they are only exported when a Registerer is configured.
type metrics struct {
	constructed *prometheus.CounterVec
	dispatched  *prometheus.CounterVec
	skipped     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		constructed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spi",
			Name:      "extension_constructions_total",
			Help:      "Extension instances constructed, by point and name.",
		}, []string{"point", "name"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spi",
			Name:      "adaptive_dispatch_total",
			Help:      "Adaptive calls routed to an extension, by point and name.",
		}, []string{"point", "name"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spi",
			Name:      "discovery_skipped_total",
			Help:      "Descriptor entries skipped during discovery, by point.",
		}, []string{"point"}),
	}
	if reg != nil {
		m.constructed = register(reg, m.constructed)
		m.dispatched = register(reg, m.dispatched)
		m.skipped = register(reg, m.skipped)
	}
	return m
}

// register adds c to reg, reusing an identical collector registered by
// another Loader.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
