package xdbtest

import "testing"

// Region data of the ranges in [NewFixture].
const (
	RegionAU        = "澳大利亚|0|0|0|0"
	RegionFuzhou    = "中国|0|福建省|福州市|电信"
	RegionGuangzhou = "中国|0|广东省|广州市|电信"
	RegionUS        = "美国|0|0|0|Level3"
	RegionXiamen    = "中国|0|福建省|厦门市|电信"
	RegionPrivate   = "0|0|0|内网IP|内网IP"
	RegionReserved  = "0|0|0|0|0"
)

// Addresses with known results in [NewFixture].
const (
	// IPAU is inside the first range of the 1.0.0.0/16 cell.
	IPAU = "1.0.0.128"

	// IPFuzhouStart and IPFuzhouEnd are the boundaries of the second range of
	// the 1.0.0.0/16 cell.
	IPFuzhouStart = "1.0.1.0"
	IPFuzhouEnd   = "1.0.3.255"

	// IPGap is between the second and the third range of the 1.0.0.0/16
	// cell.
	IPGap = "1.0.5.1"

	// IPGuangzhou is inside the third range of the 1.0.0.0/16 cell.
	IPGuangzhou = "1.0.10.10"

	// IPAfterLast is after the last range of the 1.0.0.0/16 cell.
	IPAfterLast = "1.0.200.1"

	// IPUnindexed is in a cell without any ranges.
	IPUnindexed = "2.2.2.2"

	// IPUS is inside a /24 range.
	IPUS = "8.8.8.8"

	// IPXiamen is inside a /16 range sharing its region data with another
	// range.
	IPXiamen = "120.41.166.1"

	// IPXiamenShared is inside the range that shares the region data with
	// [IPXiamen].
	IPXiamenShared = "120.40.0.1"

	// IPPrivate is inside a /16 private range.
	IPPrivate = "192.168.1.1"

	// IPMax is the largest address, inside a range split over many cells.
	IPMax = "255.255.255.255"
)

// NewFixture returns a builder with a small set of ranges that covers the
// interesting cases: several entries in one cell with gaps, shared region
// data, and a range spanning many cells.
func NewFixture(tb testing.TB) (b *Builder) {
	tb.Helper()

	b = NewBuilder()
	b.Add(tb, "1.0.0.0", "1.0.0.255", RegionAU)
	b.Add(tb, IPFuzhouStart, IPFuzhouEnd, RegionFuzhou)
	b.Add(tb, "1.0.8.0", "1.0.15.255", RegionGuangzhou)
	b.Add(tb, "8.8.8.0", "8.8.8.255", RegionUS)
	b.Add(tb, "120.40.0.0", "120.40.255.255", RegionXiamen)
	b.Add(tb, "120.41.0.0", "120.41.255.255", RegionXiamen)
	b.Add(tb, "192.168.0.0", "192.168.255.255", RegionPrivate)
	b.Add(tb, "240.0.0.0", IPMax, RegionReserved)

	return b
}
