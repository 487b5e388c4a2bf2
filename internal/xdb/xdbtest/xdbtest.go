// Package xdbtest contains utilities for building xdb databases in tests.
package xdbtest

import (
	"cmp"
	"encoding/binary"
	"path/filepath"
	"slices"
	"testing"

	"github.com/AdguardTeam/xdbgeo/internal/xdb"
	"github.com/google/renameio/v2"
	"github.com/stretchr/testify/require"
)

// Header values written by [Builder.Build] unless changed.
const (
	Version     uint16          = 2
	IndexPolicy xdb.IndexPolicy = xdb.IndexPolicyVector
	CreatedAt   uint32          = 1_700_000_000
)

// Segment is a single range of addresses with its region data.
type Segment struct {
	// Region is the region data of the range.
	Region string

	// Start is the first address of the range, inclusive.
	Start uint32

	// End is the last address of the range, inclusive.
	End uint32
}

// Builder builds xdb database images.  The zero value is not valid, use
// [NewBuilder].
type Builder struct {
	segments []Segment

	// Version is the database structure version written to the header.
	Version uint16

	// IndexPolicy is the index policy written to the header.
	IndexPolicy xdb.IndexPolicy

	// CreatedAt is the creation time written to the header.
	CreatedAt uint32

	// PastEndPointers makes the end pointer of every vector index cell point
	// past the last entry of the cell instead of at the last entry itself.
	PastEndPointers bool
}

// NewBuilder returns a new builder with the default header values.
func NewBuilder() (b *Builder) {
	return &Builder{
		Version:     Version,
		IndexPolicy: IndexPolicy,
		CreatedAt:   CreatedAt,
	}
}

// Add adds the range from start to end, both inclusive, with the region data.
// The ranges must not overlap.
func (b *Builder) Add(tb testing.TB, start, end, region string) {
	tb.Helper()

	s, err := xdb.ParseIPv4(start)
	require.NoError(tb, err)

	e, err := xdb.ParseIPv4(end)
	require.NoError(tb, err)

	require.LessOrEqual(tb, s, e)

	b.segments = append(b.segments, Segment{
		Region: region,
		Start:  s,
		End:    e,
	})
}

// split returns the segments split at the /16 boundaries, so that every
// segment belongs to a single vector index cell.
func (b *Builder) split() (segs []Segment) {
	sorted := slices.Clone(b.segments)
	slices.SortFunc(sorted, func(a, b Segment) (res int) {
		return cmp.Compare(a.Start, b.Start)
	})

	for _, seg := range sorted {
		for s := seg.Start; ; {
			e := min(seg.End, s|0xFFFF)
			segs = append(segs, Segment{
				Region: seg.Region,
				Start:  s,
				End:    e,
			})

			if e == seg.End {
				break
			}

			s = e + 1
		}
	}

	return segs
}

// Build returns the database image.  Region data is deduplicated and written
// right after the vector index, followed by the segment index.
func (b *Builder) Build() (data []byte) {
	segs := b.split()

	data = make([]byte, xdb.HeaderLength+xdb.VectorIndexLength)

	regionPtrs := map[string]uint32{}
	for _, seg := range segs {
		if _, ok := regionPtrs[seg.Region]; ok {
			continue
		}

		regionPtrs[seg.Region] = uint32(len(data))
		data = append(data, seg.Region...)
	}

	indexStart := uint32(len(data))
	for i, seg := range segs {
		ptr := indexStart + uint32(i*xdb.SegmentIndexSize)

		data = binary.LittleEndian.AppendUint32(data, seg.Start)
		data = binary.LittleEndian.AppendUint32(data, seg.End)
		data = binary.LittleEndian.AppendUint16(data, uint16(len(seg.Region)))
		data = binary.LittleEndian.AppendUint32(data, regionPtrs[seg.Region])

		setVectorCell(data, seg.Start, ptr, b.PastEndPointers)
	}

	hdr := data[:xdb.HeaderLength]
	binary.LittleEndian.PutUint16(hdr[0:], b.Version)
	binary.LittleEndian.PutUint16(hdr[2:], uint16(b.IndexPolicy))
	binary.LittleEndian.PutUint32(hdr[4:], b.CreatedAt)
	binary.LittleEndian.PutUint32(hdr[8:], indexStart)

	endIndexPtr := indexStart
	if len(segs) > 0 {
		endIndexPtr += uint32((len(segs) - 1) * xdb.SegmentIndexSize)
	}

	binary.LittleEndian.PutUint32(hdr[12:], endIndexPtr)

	return data
}

// setVectorCell updates the vector index cell of ip in data with the index
// entry at ptr.  The end pointer of a cell points at its last entry or, if
// pastEnd is true, right after it.
func setVectorCell(data []byte, ip, ptr uint32, pastEnd bool) {
	b0, b1 := (ip>>24)&0xFF, (ip>>16)&0xFF
	off := xdb.HeaderLength + b0*xdb.VectorIndexCols*xdb.VectorIndexSize + b1*xdb.VectorIndexSize
	cell := data[off : off+xdb.VectorIndexSize]

	if binary.LittleEndian.Uint32(cell[0:]) == 0 {
		binary.LittleEndian.PutUint32(cell[0:], ptr)
	}

	if pastEnd {
		ptr += xdb.SegmentIndexSize
	}

	binary.LittleEndian.PutUint32(cell[4:], ptr)
}

// WriteFile atomically writes data into a file inside a temporary directory of
// tb and returns its path.
func WriteFile(tb testing.TB, data []byte) (path string) {
	tb.Helper()

	path = filepath.Join(tb.TempDir(), "test.xdb")
	Rewrite(tb, path, data)

	return path
}

// Rewrite atomically replaces the contents of the file at path with data.
// Files that are already open keep the previous contents.
func Rewrite(tb testing.TB, path string, data []byte) {
	tb.Helper()

	err := renameio.WriteFile(path, data, 0o600)
	require.NoError(tb, err)
}
