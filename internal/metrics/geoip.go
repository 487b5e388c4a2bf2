package metrics

import (
	"context"
	"time"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// GeoIP is the Prometheus-based implementation of the [geoip.Metrics]
// interface.
type GeoIP struct {
	// updateTime is a gauge with the timestamp of the last successful
	// location database update.
	updateTime prometheus.Gauge

	// updateStatus is a gauge with the last location database update status.
	// 1 means success, 0 means an error occurred.
	updateStatus prometheus.Gauge

	// cacheLookupsHits is a counter of the cache lookups that found an item.
	cacheLookupsHits prometheus.Counter

	// cacheLookupsMisses is a counter of the cache lookups that didn't find an
	// item.
	cacheLookupsMisses prometheus.Counter

	// lookupDurationFound is a histogram of the durations of the database
	// lookups that found the address.
	lookupDurationFound prometheus.Observer

	// lookupDurationNotFound is a histogram of the durations of the database
	// lookups that didn't find the address.
	lookupDurationNotFound prometheus.Observer
}

// NewGeoIP registers the location database metrics in reg and returns a
// properly initialized [*GeoIP].
func NewGeoIP(namespace string, reg prometheus.Registerer) (m *GeoIP, err error) {
	const (
		updateTime     = "update_time"
		updateStatus   = "update_status"
		cacheLookups   = "cache_lookups"
		lookupDuration = "lookup_duration_seconds"
	)

	cacheLookupsCounters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      cacheLookups,
		Subsystem: subsystemGeoIP,
		Namespace: namespace,
		Help: "The number of GeoIP IP cache lookups. " +
			"hit=1 means that a cached item was found.",
	}, []string{"hit"})

	lookupDurationHistograms := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      lookupDuration,
		Subsystem: subsystemGeoIP,
		Namespace: namespace,
		Help:      "The duration of the xdb database lookups.",
		Buckets:   []float64{0.000_001, 0.000_01, 0.000_1, 0.001, 0.01, 0.1},
	}, []string{"found"})

	m = &GeoIP{
		updateTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      updateTime,
			Subsystem: subsystemGeoIP,
			Namespace: namespace,
			Help:      "The time when the GeoIP was loaded last time.",
		}),
		updateStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      updateStatus,
			Subsystem: subsystemGeoIP,
			Namespace: namespace,
			Help:      "Status of the last GeoIP update. 1 is okay, 0 means that something went wrong.",
		}),
		cacheLookupsHits:       cacheLookupsCounters.WithLabelValues("1"),
		cacheLookupsMisses:     cacheLookupsCounters.WithLabelValues("0"),
		lookupDurationFound:    lookupDurationHistograms.WithLabelValues("1"),
		lookupDurationNotFound: lookupDurationHistograms.WithLabelValues("0"),
	}

	err = registerCollectors(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   updateTime,
		Value: m.updateTime,
	}, {
		Key:   updateStatus,
		Value: m.updateStatus,
	}, {
		Key:   cacheLookups,
		Value: cacheLookupsCounters,
	}, {
		Key:   lookupDuration,
		Value: lookupDurationHistograms,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// HandleRefresh implements the [geoip.Metrics] interface for *GeoIP.
func (m *GeoIP) HandleRefresh(_ context.Context, err error) {
	SetStatusGauge(m.updateStatus, err)
	if err == nil {
		m.updateTime.SetToCurrentTime()
	}
}

// IncrementCacheLookups implements the [geoip.Metrics] interface for *GeoIP.
func (m *GeoIP) IncrementCacheLookups(_ context.Context, hit bool) {
	if hit {
		m.cacheLookupsHits.Inc()
	} else {
		m.cacheLookupsMisses.Inc()
	}
}

// ObserveLookup implements the [geoip.Metrics] interface for *GeoIP.
func (m *GeoIP) ObserveLookup(_ context.Context, dur time.Duration, found bool) {
	if found {
		m.lookupDurationFound.Observe(dur.Seconds())
	} else {
		m.lookupDurationNotFound.Observe(dur.Seconds())
	}
}
