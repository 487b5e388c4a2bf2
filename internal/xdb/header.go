package xdb

import (
	"fmt"
	"time"
)

// IndexPolicy is the index policy recorded in the database header.
type IndexPolicy uint16

// Known [IndexPolicy] values.
const (
	IndexPolicyVector IndexPolicy = 1
	IndexPolicyBTree  IndexPolicy = 2
)

// type check
var _ fmt.Stringer = IndexPolicy(0)

// String implements the [fmt.Stringer] interface for IndexPolicy.
func (p IndexPolicy) String() (s string) {
	switch p {
	case IndexPolicyVector:
		return "vector"
	case IndexPolicyBTree:
		return "btree"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(p))
	}
}

// Header is the decoded header of an xdb database.
type Header struct {
	// Version is the version of the database structure.
	Version uint16

	// IndexPolicy is the index policy used by the builder.
	IndexPolicy IndexPolicy

	// CreatedAt is the build time, in seconds since the Unix epoch.
	CreatedAt uint32

	// StartIndexPtr is the absolute offset of the first segment index entry.
	StartIndexPtr uint32

	// EndIndexPtr is the absolute offset of the last segment index entry.
	EndIndexPtr uint32
}

// Created returns the build time of the database in UTC.
func (h *Header) Created() (t time.Time) {
	return time.Unix(int64(h.CreatedAt), 0).UTC()
}

// decodeHeader decodes the header from b, which must be at least
// [HeaderLength] bytes long.
func decodeHeader(b []byte) (h *Header) {
	return &Header{
		Version:       le16(b, 0),
		IndexPolicy:   IndexPolicy(le16(b, 2)),
		CreatedAt:     le32(b, 4),
		StartIndexPtr: le32(b, 8),
		EndIndexPtr:   le32(b, 12),
	}
}
