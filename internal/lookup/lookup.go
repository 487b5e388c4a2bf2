// Package lookup contains the batch resolver that reads addresses and writes
// their regions.
package lookup

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/xdbgeo/internal/geoip"
)

// Format is the output format of the resolver.
type Format string

// Valid [Format] values.
const (
	// FormatText is the format with one "address<TAB>region" line per
	// result.
	FormatText Format = "text"

	// FormatJSON is the format with one JSON object per line.
	FormatJSON Format = "json"
)

// ParseFormat returns the format from s.  err is not nil if s is not a valid
// format.
func ParseFormat(s string) (f Format, err error) {
	switch f = Format(s); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("format: %w: %q", errors.ErrBadEnumValue, s)
	}
}

// Result statuses.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// Result is the result of resolving a single input line.
type Result struct {
	// Location is the location data of the address.  It is nil unless Status
	// is [StatusFound].
	Location *geoip.Location `json:"location,omitempty"`

	// Input is the input line with the surrounding spaces removed.
	Input string `json:"ip"`

	// Status is the status of the result, see [StatusFound] etc.
	Status string `json:"status"`

	// Addr is the parsed address.  It is invalid if Status is
	// [StatusInvalid].
	Addr netip.Addr `json:"-"`
}

// Metrics is an interface that is used for the collection of the resolver
// statistics.
type Metrics interface {
	// HandleResult records the result of resolving an input line.  ip is the
	// parsed IPv4 address, or an invalid address if the line isn't one.
	// status is one of [StatusFound], [StatusNotFound], [StatusInvalid], and
	// [StatusError].
	HandleResult(ctx context.Context, ip netip.Addr, status string)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// HandleResult implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) HandleResult(_ context.Context, _ netip.Addr, _ string) {}
