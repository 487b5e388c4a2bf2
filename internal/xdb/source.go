package xdb

import (
	"fmt"
	"io"
	"os"

	"github.com/AdguardTeam/golibs/errors"
)

// source is a data-access strategy of a database.  Implementations must be
// safe for concurrent use by readers.
type source interface {
	// read returns n bytes at the absolute offset off.  The returned slice
	// must not be modified.  err is an *IOError if the read cannot be
	// satisfied.
	read(off uint32, n int) (b []byte, err error)

	// vectorCell returns the vector index cell at cellOff, which is the
	// offset of the cell within the vector index.  err is an *IOError if the
	// read cannot be satisfied.
	vectorCell(cellOff uint32) (b []byte, err error)

	// Closer closes the underlying file, if any.
	io.Closer
}

// bufferSource is a source that keeps the whole database in memory.
type bufferSource struct {
	buf []byte
}

// type check
var _ source = (*bufferSource)(nil)

// read implements the [source] interface for *bufferSource.
func (s *bufferSource) read(off uint32, n int) (b []byte, err error) {
	end := uint64(off) + uint64(n)
	if end > uint64(len(s.buf)) {
		return nil, &IOError{
			Err:    errors.ErrOutOfRange,
			Offset: off,
			Length: n,
		}
	}

	return s.buf[off:end:end], nil
}

// vectorCell implements the [source] interface for *bufferSource.
func (s *bufferSource) vectorCell(cellOff uint32) (b []byte, err error) {
	return s.read(HeaderLength+cellOff, VectorIndexSize)
}

// Close implements the [source] interface for *bufferSource.  It does
// nothing.
func (s *bufferSource) Close() (err error) {
	return nil
}

// fileSource is a source that reads everything from the file.  It relies on
// [os.File.ReadAt] being safe for concurrent use.
type fileSource struct {
	file *os.File
}

// type check
var _ source = (*fileSource)(nil)

// read implements the [source] interface for *fileSource.
func (s *fileSource) read(off uint32, n int) (b []byte, err error) {
	b = make([]byte, n)
	read, err := s.file.ReadAt(b, int64(off))
	if read == n {
		// ReadAt may return io.EOF along with a full read at the end of the
		// file.
		return b, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return nil, &IOError{
		Err:    err,
		Offset: off,
		Length: n,
	}
}

// vectorCell implements the [source] interface for *fileSource.
func (s *fileSource) vectorCell(cellOff uint32) (b []byte, err error) {
	return s.read(HeaderLength+cellOff, VectorIndexSize)
}

// Close implements the [source] interface for *fileSource.
func (s *fileSource) Close() (err error) {
	return s.file.Close()
}

// vectorSource is a source that keeps the vector index in memory and reads
// everything else from the file.
type vectorSource struct {
	*fileSource

	vector []byte
}

// type check
var _ source = (*vectorSource)(nil)

// vectorCell implements the [source] interface for *vectorSource.
func (s *vectorSource) vectorCell(cellOff uint32) (b []byte, err error) {
	end := cellOff + VectorIndexSize
	if end > VectorIndexLength {
		return nil, &IOError{
			Err:    errors.ErrOutOfRange,
			Offset: HeaderLength + cellOff,
			Length: VectorIndexSize,
		}
	}

	return s.vector[cellOff:end:end], nil
}

// openFile opens the database file at path and checks that it isn't empty.
func openFile(path string) (f *os.File, size int64, err error) {
	// #nosec G304 -- Trust the path to the database file that is given from
	// the environment.
	f, err = os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, errors.WithDeferred(fmt.Errorf("getting file info: %w", err), f.Close())
	}

	size = fi.Size()
	if size == 0 {
		return nil, 0, errors.WithDeferred(errEmptyDatabase, f.Close())
	}

	return f, size, nil
}

// newFileSource returns a source that reads from the file at path.
func newFileSource(path string) (s *fileSource, err error) {
	f, _, err := openFile(path)
	if err != nil {
		return nil, err
	}

	return &fileSource{
		file: f,
	}, nil
}

// newVectorSource returns a source that reads from the file at path and caches
// its vector index.
func newVectorSource(path string) (s *vectorSource, err error) {
	f, _, err := openFile(path)
	if err != nil {
		return nil, err
	}

	fs := &fileSource{
		file: f,
	}

	vector, err := fs.read(HeaderLength, VectorIndexLength)
	if err != nil {
		return nil, errors.WithDeferred(fmt.Errorf("loading vector index: %w", err), f.Close())
	}

	return &vectorSource{
		fileSource: fs,
		vector:     vector,
	}, nil
}

// newBufferSource reads the whole file at path into memory.  maxSize is the
// maximum size of the file, zero means no limit.
func newBufferSource(path string, maxSize uint64) (s *bufferSource, err error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}

	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	if maxSize > 0 && uint64(size) > maxSize {
		return nil, fmt.Errorf("file size %d: %w: max is %d", size, errors.ErrOutOfRange, maxSize)
	}

	buf := make([]byte, size)
	_, err = io.ReadFull(f, buf)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}

	return &bufferSource{
		buf: buf,
	}, nil
}
