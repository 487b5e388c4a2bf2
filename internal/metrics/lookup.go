package metrics

import (
	"context"
	"net/netip"
	"sync"

	"github.com/AdguardTeam/golibs/container"
	"github.com/axiomhq/hyperloglog"
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup is the Prometheus-based implementation of the [lookup.Metrics]
// interface.
type Lookup struct {
	// mu protects uniqueAddrs.
	mu *sync.Mutex

	// uniqueAddrs is the sketch of all addresses resolved so far.
	uniqueAddrs *hyperloglog.Sketch

	// results is a counter of the lookup results labeled by status.
	results *prometheus.CounterVec

	// uniqueAddrsCount is a gauge with the approximate number of the unique
	// addresses resolved so far.
	uniqueAddrsCount prometheus.Gauge
}

// NewLookup registers the address resolution metrics in reg and returns a
// properly initialized [*Lookup].
func NewLookup(namespace string, reg prometheus.Registerer) (m *Lookup, err error) {
	const (
		results     = "results_total"
		uniqueAddrs = "unique_addresses_count"
	)

	m = &Lookup{
		mu:          &sync.Mutex{},
		uniqueAddrs: hyperloglog.New(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      results,
			Subsystem: subsystemLookup,
			Namespace: namespace,
			Help:      "The number of resolved input lines by result status.",
		}, []string{"status"}),
		uniqueAddrsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      uniqueAddrs,
			Subsystem: subsystemLookup,
			Namespace: namespace,
			Help:      "The approximate number of unique addresses resolved.",
		}),
	}

	err = registerCollectors(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   results,
		Value: m.results,
	}, {
		Key:   uniqueAddrs,
		Value: m.uniqueAddrsCount,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// HandleResult implements the [lookup.Metrics] interface for *Lookup.
func (m *Lookup) HandleResult(_ context.Context, ip netip.Addr, status string) {
	m.results.WithLabelValues(status).Inc()

	ip = ip.Unmap()
	if !ip.Is4() {
		return
	}

	b := ip.As4()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.uniqueAddrs.Insert(b[:])
	m.uniqueAddrsCount.Set(float64(m.uniqueAddrs.Estimate()))
}
