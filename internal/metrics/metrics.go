// Package metrics contains the Prometheus implementations of the metrics
// interfaces of the other packages.
package metrics

import (
	"fmt"

	"github.com/AdguardTeam/golibs/container"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the default namespace of the xdbgeo metrics.
const Namespace = "xdbgeo"

// constants with the subsystem names that we use in our prometheus metrics.
const (
	subsystemApplication = "app"
	subsystemGeoIP       = "geoip"
	subsystemLookup      = "lookup"
)

// SetUpGauge signals that the application has been started.  Use a function
// here to avoid circular dependencies.
func SetUpGauge(
	reg prometheus.Registerer,
	namespace string,
	version string,
	buildtime string,
	branch string,
	revision string,
	goversion string,
) (err error) {
	upGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "up",
		Namespace: namespace,
		Subsystem: subsystemApplication,
		Help: `A metric with a constant '1' value labeled by ` +
			`version and goversion from which the program was built.`,
		ConstLabels: prometheus.Labels{
			"version":   version,
			"buildtime": buildtime,
			"branch":    branch,
			"revision":  revision,
			"goversion": goversion,
		},
	})

	err = reg.Register(upGauge)
	if err != nil {
		return fmt.Errorf("registering up metric: %w", err)
	}

	upGauge.Set(1)

	return nil
}

// SetAdditionalInfo adds a gauge with extra info labels.  If info is nil,
// SetAdditionalInfo does nothing.
func SetAdditionalInfo(
	reg prometheus.Registerer,
	namespace string,
	info map[string]string,
) (err error) {
	if info == nil {
		return nil
	}

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "additional_info",
		Namespace: namespace,
		Subsystem: subsystemApplication,
		Help: `A metric with a constant '1' value labeled by additional ` +
			`info provided in configuration`,
		ConstLabels: info,
	})

	err = reg.Register(gauge)
	if err != nil {
		return fmt.Errorf("registering additional_info metric: %w", err)
	}

	gauge.Set(1)

	return nil
}

// SetStatusGauge is a helper function that automatically checks if there's an
// error and sets the gauge to either 1 (success) or 0 (error).
func SetStatusGauge(gauge prometheus.Gauge, err error) {
	if err == nil {
		gauge.Set(1)
	} else {
		gauge.Set(0)
	}
}

// BoolString returns "1" if cond is true and "0" otherwise.
func BoolString(cond bool) (s string) {
	if cond {
		return "1"
	}

	return "0"
}

// registerCollectors registers the collectors in reg and returns the joined
// registration errors, if any.
func registerCollectors(
	reg prometheus.Registerer,
	collectors container.KeyValues[string, prometheus.Collector],
) (err error) {
	var errs []error
	for _, c := range collectors {
		err = reg.Register(c.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("registering metrics %q: %w", c.Key, err))
		}
	}

	return errors.Join(errs...)
}
