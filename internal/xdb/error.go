package xdb

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

// errEmptyDatabase is returned when the database contains no data at all.
const errEmptyDatabase errors.Error = "empty database"

// OpenError is returned from [New] and [NewFromBuffer] when the database
// cannot be opened or loaded.
type OpenError struct {
	// Err is the underlying error.  It is never nil.
	Err error

	// Path is the path to the database file.  It is empty for databases
	// created from buffers.
	Path string
}

// type check
var _ errors.Wrapper = (*OpenError)(nil)

// Error implements the error interface for *OpenError.
func (err *OpenError) Error() (msg string) {
	if err.Path == "" {
		return fmt.Sprintf("opening xdb buffer: %s", err.Err)
	}

	return fmt.Sprintf("opening xdb file %q: %s", err.Path, err.Err)
}

// Unwrap implements the [errors.Wrapper] interface for *OpenError.
func (err *OpenError) Unwrap() (unwrapped error) {
	return err.Err
}

// InvalidIPError is returned when an address is not a valid IPv4 address.
type InvalidIPError struct {
	// IP is the invalid input.
	IP string
}

// Error implements the error interface for *InvalidIPError.
func (err *InvalidIPError) Error() (msg string) {
	return fmt.Sprintf("invalid ipv4 address %q", err.IP)
}

// IsSentryReportable implements the [errcoll.SentryReportableError] interface
// for *InvalidIPError.  Invalid input is never reported.
func (err *InvalidIPError) IsSentryReportable() (ok bool) { return false }

// IOError is returned when a read from the database fails, for example
// because of a short read or an offset out of range in a corrupted index.
type IOError struct {
	// Err is the underlying error.  It is never nil.
	Err error

	// Offset is the absolute offset of the failed read.
	Offset uint32

	// Length is the number of bytes that were requested.
	Length int
}

// type check
var _ errors.Wrapper = (*IOError)(nil)

// Error implements the error interface for *IOError.
func (err *IOError) Error() (msg string) {
	return fmt.Sprintf("reading %d bytes at offset %d: %s", err.Length, err.Offset, err.Err)
}

// Unwrap implements the [errors.Wrapper] interface for *IOError.
func (err *IOError) Unwrap() (unwrapped error) {
	return err.Err
}

// IsSentryReportable implements the [errcoll.SentryReportableError] interface
// for *IOError.  Read failures mean a broken database, so they are always
// reported.
func (err *IOError) IsSentryReportable() (ok bool) { return true }
