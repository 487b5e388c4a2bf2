package geoip

import (
	"context"
	"time"
)

// Metrics is an interface that is used for the collection of the location
// database statistics.
type Metrics interface {
	// HandleRefresh updates the database refresh status.
	HandleRefresh(ctx context.Context, err error)

	// IncrementCacheLookups increments the number of cache lookups.
	IncrementCacheLookups(ctx context.Context, hit bool)

	// ObserveLookup records the duration of a database lookup and whether the
	// address was found.
	ObserveLookup(ctx context.Context, dur time.Duration, found bool)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// HandleRefresh implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) HandleRefresh(_ context.Context, _ error) {}

// IncrementCacheLookups implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementCacheLookups(_ context.Context, _ bool) {}

// ObserveLookup implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveLookup(_ context.Context, _ time.Duration, _ bool) {}
