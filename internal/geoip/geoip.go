// Package geoip contains a refreshable location database of IPv4 addresses
// backed by xdb files.
package geoip

import (
	"context"
	"net/netip"
	"strings"
)

// Interface is the interface for the location database that stores the
// geographic and administrative data about an IP address.
type Interface interface {
	// Data returns the location data for ip.  l is nil if the database has no
	// data for ip.  ip must be an IPv4 or an IPv4-mapped IPv6 address,
	// otherwise err is an [*xdb.InvalidIPError].
	Data(ctx context.Context, ip netip.Addr) (l *Location, err error)
}

// Location is the location data of an address range.
type Location struct {
	// Country is the name of the country.
	Country string `json:"country,omitempty"`

	// Area is the name of the region within the country, if any.
	Area string `json:"area,omitempty"`

	// Province is the name of the province or state.
	Province string `json:"province,omitempty"`

	// City is the name of the city.
	City string `json:"city,omitempty"`

	// ISP is the name of the internet service provider.
	ISP string `json:"isp,omitempty"`

	// Raw is the region data as it's stored in the database.
	Raw string `json:"raw"`

	// Start is the first address of the range.
	Start netip.Addr `json:"start"`

	// End is the last address of the range.
	End netip.Addr `json:"end"`
}

// emptyField is the value the database uses for missing fields.
const emptyField = "0"

// locationFieldsNum is the number of fields in region data.
const locationFieldsNum = 5

// NewLocation parses the pipe-separated region data, for example
// "Country|Area|Province|City|ISP", into a location.  Fields with the value
// "0" are considered empty, missing trailing fields are left empty, and
// excess fields are ignored.
func NewLocation(raw string, start, end netip.Addr) (l *Location) {
	l = &Location{
		Raw:   raw,
		Start: start,
		End:   end,
	}

	fields := strings.SplitN(raw, "|", locationFieldsNum+1)
	dsts := []*string{&l.Country, &l.Area, &l.Province, &l.City, &l.ISP}
	for i, f := range fields[:min(len(fields), locationFieldsNum)] {
		if f != emptyField {
			*dsts[i] = f
		}
	}

	return l
}
