package xdb

import (
	"fmt"
	"log/slog"
	"math"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// Config is the configuration structure for a file-based [Searcher].
type Config struct {
	// Logger is used to log the operation of the searcher.  If nil,
	// [slog.Default] is used.
	Logger *slog.Logger

	// Path is the path to the database file.  It must not be empty.
	Path string

	// Mode is the data-access strategy.  It must be valid.
	Mode Mode

	// MaxSize is the maximum size of a database file that is loaded in
	// [ModeFull], in bytes.  Zero means no limit.
	MaxSize uint64
}

// Region is the region record of an IPv4 range.
type Region struct {
	// Text is the region data, usually pipe-separated fields, for example
	// "Country|Area|Province|City|ISP".
	Text string

	// StartIP is the first address of the matched range, inclusive.
	StartIP uint32

	// EndIP is the last address of the matched range, inclusive.
	EndIP uint32
}

// Searcher looks up the regions of IPv4 addresses in an xdb database.  The
// database is never modified, so a *Searcher is safe for concurrent use,
// except for [Searcher.Close].
type Searcher struct {
	logger *slog.Logger
	src    source

	// endIndexPtr is the offset of the last segment index entry from the
	// header, or [math.MaxUint32] if the header cannot be read.
	endIndexPtr uint32

	mode Mode
}

// New opens the database from c.Path using the strategy from c.Mode.  c must
// not be nil.  err is an *OpenError if the database cannot be opened.
func New(c *Config) (s *Searcher, err error) {
	var src source
	switch c.Mode {
	case ModeFile:
		src, err = newFileSource(c.Path)
	case ModeVectorCache:
		src, err = newVectorSource(c.Path)
	case ModeFull:
		src, err = newBufferSource(c.Path, c.MaxSize)
	default:
		err = fmt.Errorf("mode: %w: %d", errors.ErrBadEnumValue, c.Mode)
	}

	if err != nil {
		return nil, &OpenError{
			Err:  err,
			Path: c.Path,
		}
	}

	l := c.Logger
	if l == nil {
		l = slog.Default()
	}

	l.Debug("opened database", "path", c.Path, "mode", c.Mode)

	return newSearcher(l, src, c.Mode), nil
}

// NewFromBuffer returns a searcher that works with the database in b using
// [ModeFull].  b must not be modified after that.  If l is nil, [slog.Default]
// is used.  err is an *OpenError if b is empty.
func NewFromBuffer(b []byte, l *slog.Logger) (s *Searcher, err error) {
	if len(b) == 0 {
		return nil, &OpenError{
			Err: errEmptyDatabase,
		}
	}

	if l == nil {
		l = slog.Default()
	}

	return newSearcher(l, &bufferSource{buf: b}, ModeFull), nil
}

// newSearcher returns a new searcher reading from src.  The header is read
// once to learn the bounds of the segment index.
func newSearcher(l *slog.Logger, src source, mode Mode) (s *Searcher) {
	s = &Searcher{
		logger:      l,
		src:         src,
		endIndexPtr: math.MaxUint32,
		mode:        mode,
	}

	if h := s.Header(); h != nil {
		s.endIndexPtr = h.EndIndexPtr
	}

	return s
}

// Mode returns the data-access strategy of the searcher.
func (s *Searcher) Mode() (m Mode) {
	return s.mode
}

// Header returns the decoded header of the database.  h is nil if the header
// cannot be read, for example if the database is truncated.
func (s *Searcher) Header() (h *Header) {
	b, err := s.src.read(0, HeaderLength)
	if err != nil {
		s.logger.Debug("reading header", slogutil.KeyError, err)

		return nil
	}

	return decodeHeader(b)
}

// Search returns the region for the dotted-decimal IPv4 address ip.  r is nil
// if the address isn't covered by any range.  err is an *InvalidIPError if ip
// is malformed and an *IOError if the database cannot be read.
func (s *Searcher) Search(ip string) (r *Region, err error) {
	n, err := ParseIPv4(ip)
	if err != nil {
		return nil, err
	}

	return s.SearchUint32(n)
}

// SearchAddr is like [Searcher.Search] but for ip of type netip.Addr.  ip must
// be an IPv4 or an IPv4-mapped IPv6 address.
func (s *Searcher) SearchAddr(ip netip.Addr) (r *Region, err error) {
	n, err := AddrToUint32(ip)
	if err != nil {
		return nil, err
	}

	return s.SearchUint32(n)
}

// SearchUint32 is like [Searcher.Search] but for ip in numeric form, see
// [ParseIPv4].
func (s *Searcher) SearchUint32(ip uint32) (r *Region, err error) {
	sPtr, ePtr, err := s.locate(ip)
	if err != nil {
		return nil, err
	}

	return s.resolve(ip, sPtr, ePtr)
}

// locate returns the bounds of the segment index block for ip from the vector
// index.
func (s *Searcher) locate(ip uint32) (sPtr, ePtr uint32, err error) {
	b0 := (ip >> 24) & 0xFF
	b1 := (ip >> 16) & 0xFF
	cellOff := b0*VectorIndexCols*VectorIndexSize + b1*VectorIndexSize

	cell, err := s.src.vectorCell(cellOff)
	if err != nil {
		return 0, 0, err
	}

	return le32(cell, 0), le32(cell, 4), nil
}

// resolve searches the segment index block for ip and returns its region.  r
// is nil if there is no such range.  sPtr is the offset of the first entry of
// the block and ePtr is the offset of its last entry, so the entries have
// indexes from 0 to n.  A zero sPtr means an unset cell.
//
// Some builders write ePtr past the last entry.  The extra entry at index n
// then belongs to the next cell and always starts after ip, unless it lies
// past the end of the segment index, which is treated the same way.
func (s *Searcher) resolve(ip, sPtr, ePtr uint32) (r *Region, err error) {
	if sPtr == 0 || ePtr < sPtr {
		return nil, nil
	}

	n := int((ePtr - sPtr) / SegmentIndexSize)
	lo, hi := 0, n
	for lo <= hi {
		m := int(uint(lo+hi) >> 1)
		p := sPtr + uint32(m*SegmentIndexSize)
		if p > s.endIndexPtr {
			hi = m - 1

			continue
		}

		var entry []byte
		entry, err = s.src.read(p, SegmentIndexSize)
		if err != nil {
			return nil, err
		}

		startIP := le32(entry, 0)
		if ip < startIP {
			hi = m - 1

			continue
		}

		endIP := le32(entry, 4)
		if ip > endIP {
			lo = m + 1

			continue
		}

		return s.region(entry, startIP, endIP)
	}

	return nil, nil
}

// region reads the region data referenced by the segment index entry.
func (s *Searcher) region(entry []byte, startIP, endIP uint32) (r *Region, err error) {
	dataLen := int(le16(entry, 8))
	dataPtr := le32(entry, 10)

	data, err := s.src.read(dataPtr, dataLen)
	if err != nil {
		return nil, err
	}

	return &Region{
		Text:    string(data),
		StartIP: startIP,
		EndIP:   endIP,
	}, nil
}

// Close releases the resources of the searcher.  It must not be called
// concurrently with the lookups.
func (s *Searcher) Close() (err error) {
	err = s.src.Close()
	if err != nil {
		return fmt.Errorf("closing %s source: %w", s.mode, err)
	}

	return nil
}
