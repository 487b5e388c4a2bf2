// Package xdb contains a searcher for the xdb binary IPv4 region databases.
//
// An xdb file consists of a fixed-size header, a dense vector index keyed by
// the two most significant octets of an address, a segment index, and the
// region data.  All integers are little-endian and all pointers are absolute
// offsets from the beginning of the file.
package xdb

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// Layout constants of the xdb format.
const (
	// HeaderLength is the length of the header block, in bytes.
	HeaderLength = 256

	// VectorIndexRows is the number of rows in the vector index, one for each
	// possible first octet.
	VectorIndexRows = 256

	// VectorIndexCols is the number of columns in the vector index, one for
	// each possible second octet.
	VectorIndexCols = 256

	// VectorIndexSize is the size of a single vector index cell, in bytes.
	VectorIndexSize = 8

	// VectorIndexLength is the length of the whole vector index, in bytes.
	VectorIndexLength = VectorIndexRows * VectorIndexCols * VectorIndexSize

	// SegmentIndexSize is the size of a single segment index entry, in bytes.
	SegmentIndexSize = 14
)

// Mode is the data-access strategy of a [Searcher].
type Mode uint8

// Valid [Mode] values.
const (
	// ModeFile means that nothing is cached and every read is a positioned
	// read from the database file.
	ModeFile Mode = iota + 1

	// ModeVectorCache means that the vector index is cached in memory while
	// the segment index and the region data are read from the file.
	ModeVectorCache

	// ModeFull means that the whole database is loaded into memory.
	ModeFull
)

// Textual representations of [Mode] values.
const (
	modeNameFile        = "file"
	modeNameVectorCache = "vector"
	modeNameFull        = "memory"
)

// ParseMode returns the mode with the given name.  The names are "file",
// "vector", and "memory".
func ParseMode(s string) (m Mode, err error) {
	switch strings.ToLower(s) {
	case modeNameFile:
		return ModeFile, nil
	case modeNameVectorCache:
		return ModeVectorCache, nil
	case modeNameFull:
		return ModeFull, nil
	default:
		return 0, fmt.Errorf("mode: %w: %q", errors.ErrBadEnumValue, s)
	}
}

// type check
var _ fmt.Stringer = Mode(0)

// String implements the [fmt.Stringer] interface for Mode.
func (m Mode) String() (s string) {
	switch m {
	case ModeFile:
		return modeNameFile
	case ModeVectorCache:
		return modeNameVectorCache
	case ModeFull:
		return modeNameFull
	default:
		return fmt.Sprintf("!bad_mode_%d", m)
	}
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface for *Mode.
func (m *Mode) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMode(string(b))

	return err
}

// MarshalText implements the [encoding.TextMarshaler] interface for Mode.
func (m Mode) MarshalText() (b []byte, err error) {
	return []byte(m.String()), nil
}
