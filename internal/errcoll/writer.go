package errcoll

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// WriterErrorCollector is an [Interface] implementation that writes errors to
// a writer.
type WriterErrorCollector struct {
	// mu protects w.
	mu *sync.Mutex
	w  io.Writer
}

// NewWriterErrorCollector returns a new properly initialized
// *WriterErrorCollector.  w must not be nil.
func NewWriterErrorCollector(w io.Writer) (c *WriterErrorCollector) {
	return &WriterErrorCollector{
		mu: &sync.Mutex{},
		w:  w,
	}
}

// type check
var _ Interface = (*WriterErrorCollector)(nil)

// Collect implements the [Interface] interface for *WriterErrorCollector.
func (c *WriterErrorCollector) Collect(_ context.Context, err error) {
	pos := caller(2)
	now := time.Now().Format(time.RFC3339)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.w, "%s: %s: caught error: %s\n", now, pos, err)
}
