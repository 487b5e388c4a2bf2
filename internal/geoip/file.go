package geoip

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/AdguardTeam/xdbgeo/internal/xdb"
)

// FileConfig is the file-based location database configuration structure.
type FileConfig struct {
	// Logger is used for logging the operation of the file-based database.  It
	// must not be nil.
	Logger *slog.Logger

	// Metrics is used for the collection of the database statistics.  It must
	// not be nil.
	Metrics Metrics

	// Path is the path to the xdb database file.
	Path string

	// Mode is the data-access strategy of the database.  It must be valid.
	Mode xdb.Mode

	// MaxSize is the maximum size of the file loaded in [xdb.ModeFull], in
	// bytes.  Zero means no limit.
	MaxSize uint64

	// IPCacheCount is how many lookups are cached by IP address.  Zero means no
	// caching is performed.  It must not be negative.
	IPCacheCount int
}

// File is a file implementation of [Interface].  It must be initially
// refreshed before use.
type File struct {
	logger  *slog.Logger
	metrics Metrics

	// mu protects searcher against closing during a lookup and replacing
	// during a refresh.
	mu *sync.RWMutex

	searcher *xdb.Searcher

	ipCache locationCache

	path    string
	mode    xdb.Mode
	maxSize uint64
}

// NewFile returns a new location database that reads information from a
// file.  c must not be nil.
func NewFile(c *FileConfig) (f *File, err error) {
	if c.IPCacheCount < 0 {
		return nil, fmt.Errorf("ip cache count: %w: %d", errors.ErrNegative, c.IPCacheCount)
	}

	ipCache, err := newLocationCache(c.IPCacheCount)
	if err != nil {
		return nil, fmt.Errorf("ip cache: %w", err)
	}

	return &File{
		logger:  c.Logger,
		metrics: c.Metrics,

		mu: &sync.RWMutex{},

		ipCache: ipCache,

		path:    c.Path,
		mode:    c.Mode,
		maxSize: c.MaxSize,
	}, nil
}

// type check
var _ Interface = (*File)(nil)

// Data implements the [Interface] interface for *File.
func (f *File) Data(ctx context.Context, ip netip.Addr) (l *Location, err error) {
	key, err := xdb.AddrToUint32(ip)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return nil, err
	}

	// Keep the lock for the whole lookup, so that a refresh doesn't mix the
	// results from different databases in the cache.
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.searcher == nil {
		return nil, ErrNotLoaded
	}

	if f.ipCache.enabled() {
		var ok bool
		l, ok = f.ipCache.get(key)
		f.metrics.IncrementCacheLookups(ctx, ok)
		if ok {
			return l, nil
		}
	}

	l, err = f.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	f.ipCache.set(key, l)

	return l, nil
}

// lookup searches for ip in the current database.  f.mu must be locked for
// reading.
func (f *File) lookup(ctx context.Context, ip uint32) (l *Location, err error) {
	start := time.Now()
	r, err := f.searcher.SearchUint32(ip)
	f.metrics.ObserveLookup(ctx, time.Since(start), r != nil)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", xdb.Uint32ToAddr(ip), err)
	}

	if r == nil {
		return nil, nil
	}

	return NewLocation(r.Text, xdb.Uint32ToAddr(r.StartIP), xdb.Uint32ToAddr(r.EndIP)), nil
}

// Header returns the header of the current database.  h is nil if the
// database isn't loaded or its header cannot be read.
func (f *File) Header() (h *xdb.Header) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.searcher == nil {
		return nil
	}

	return f.searcher.Header()
}

// type check
var _ service.Refresher = (*File)(nil)

// Refresh implements the [service.Refresher] interface for *File.  It reopens
// the database file and replaces the current database with it.  The previous
// database is closed and the cache is cleared.
func (f *File) Refresh(ctx context.Context) (err error) {
	f.logger.InfoContext(ctx, "refresh started")
	defer f.logger.InfoContext(ctx, "refresh finished")

	defer func() { f.metrics.HandleRefresh(ctx, err) }()

	s, err := xdb.New(&xdb.Config{
		Logger:  f.logger,
		Path:    f.path,
		Mode:    f.mode,
		MaxSize: f.maxSize,
	})
	if err != nil {
		return fmt.Errorf("reading database: %w", err)
	}

	f.logLoaded(ctx, s.Header())

	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.searcher
	f.searcher = s
	f.ipCache.clear()

	if prev == nil {
		return nil
	}

	err = prev.Close()
	if err != nil {
		// Don't return the error, since the new database is in use already.
		f.logger.WarnContext(ctx, "closing previous database", slogutil.KeyError, err)
	}

	return nil
}

// logLoaded logs the information about the newly loaded database.  h may be
// nil, since a database with an unreadable header can still be searched.
func (f *File) logLoaded(ctx context.Context, h *xdb.Header) {
	if h == nil {
		f.logger.WarnContext(ctx, "database loaded without valid header", "path", f.path)

		return
	}

	f.logger.InfoContext(
		ctx,
		"database loaded",
		"path", f.path,
		"mode", f.mode,
		"version", h.Version,
		"index_policy", h.IndexPolicy,
		"created", h.Created(),
	)
}

// Close closes the current database, if any.  f must not be used after that.
func (f *File) Close() (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.searcher == nil {
		return nil
	}

	err = f.searcher.Close()
	f.searcher = nil

	return errors.Annotate(err, "closing database: %w")
}
