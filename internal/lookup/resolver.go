package lookup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/AdguardTeam/xdbgeo/internal/geoip"
	"github.com/AdguardTeam/xdbgeo/internal/xdb"
)

// Config is the configuration structure for a [Resolver].
type Config struct {
	// Logger is used to log the operation of the resolver.  It must not be
	// nil.
	Logger *slog.Logger

	// GeoIP is the location database.  It must not be nil.
	GeoIP geoip.Interface

	// ErrColl is used to collect the database errors.  It must not be nil.
	ErrColl errcoll.Interface

	// Metrics is used for the collection of the resolver statistics.  It must
	// not be nil.
	Metrics Metrics

	// Format is the output format.  It must be valid.
	Format Format

	// Workers is the number of concurrent lookups.  It must be positive.
	Workers int
}

// Resolver reads addresses and writes their regions.
type Resolver struct {
	logger  *slog.Logger
	geoIP   geoip.Interface
	errColl errcoll.Interface
	metrics Metrics
	format  Format
	workers int
}

// New returns a new properly initialized *Resolver.  c must not be nil and
// must be valid.
func New(c *Config) (r *Resolver) {
	return &Resolver{
		logger:  c.Logger,
		geoIP:   c.GeoIP,
		errColl: c.ErrColl,
		metrics: c.Metrics,
		format:  c.Format,
		workers: c.Workers,
	}
}

// commentPrefix is the prefix of the input lines that are ignored.
const commentPrefix = "#"

// Resolve resolves a single address in dotted-decimal form.  res is never nil.
// Invalid addresses are logged and database errors are also reported to the
// error collector.
func (r *Resolver) Resolve(ctx context.Context, s string) (res *Result) {
	res = &Result{
		Input: s,
	}

	defer func() { r.metrics.HandleResult(ctx, res.Addr, res.Status) }()

	n, err := xdb.ParseIPv4(s)
	if err != nil {
		r.logger.WarnContext(ctx, "skipping line", slogutil.KeyError, err)
		res.Status = StatusInvalid

		return res
	}

	res.Addr = xdb.Uint32ToAddr(n)

	l, err := r.geoIP.Data(ctx, res.Addr)
	switch {
	case err != nil:
		errcoll.Collect(ctx, r.errColl, r.logger, "resolving "+s, err)
		res.Status = StatusError
	case l == nil:
		res.Status = StatusNotFound
	default:
		res.Location = l
		res.Status = StatusFound
	}

	return res
}

// job is a single line to resolve.
type job struct {
	// res receives the result.  It must be buffered.
	res  chan *Result
	line string
}

// ResolveAll reads one address per line from in and writes the results to out
// in the same order.  Empty lines and lines starting with "#" are ignored.
// Invalid addresses and failed lookups are skipped.  err is only returned for
// read and write failures and context cancelation.
func (r *Resolver) ResolveAll(ctx context.Context, in io.Reader, out io.Writer) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *job)
	pending := make(chan chan *Result, r.workers)

	wg := &sync.WaitGroup{}
	for range r.workers {
		wg.Go(func() {
			defer slogutil.RecoverAndLog(ctx, r.logger)

			for j := range jobs {
				j.res <- r.Resolve(ctx, j.line)
			}
		})
	}

	var readErr error
	go func() {
		defer slogutil.RecoverAndLog(ctx, r.logger)
		defer close(pending)
		defer close(jobs)

		readErr = r.read(ctx, in, jobs, pending)
	}()

	bw := bufio.NewWriter(out)
	counts := map[string]int{}
	var writeErr error
	for resCh := range pending {
		res := <-resCh
		counts[res.Status]++

		if writeErr != nil {
			continue
		}

		writeErr = r.write(bw, res)
		if writeErr != nil {
			cancel()
		}
	}

	wg.Wait()

	if writeErr == nil {
		writeErr = bw.Flush()
	}

	r.logger.InfoContext(
		ctx,
		"resolved",
		StatusFound, counts[StatusFound],
		StatusNotFound, counts[StatusNotFound],
		StatusInvalid, counts[StatusInvalid],
		StatusError, counts[StatusError],
	)

	if writeErr != nil {
		return fmt.Errorf("writing results: %w", writeErr)
	}

	return errors.Annotate(readErr, "reading input: %w")
}

// read sends the meaningful lines from in to jobs and their result channels to
// pending in the same order.
func (r *Resolver) read(
	ctx context.Context,
	in io.Reader,
	jobs chan<- *job,
	pending chan<- chan *Result,
) (err error) {
	s := bufio.NewScanner(in)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		j := &job{
			res:  make(chan *Result, 1),
			line: line,
		}

		select {
		case jobs <- j:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case pending <- j.res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return s.Err()
}

// write writes res to w in the resolver's format.  Results of invalid and
// failed lookups are not written.
func (r *Resolver) write(w io.Writer, res *Result) (err error) {
	switch res.Status {
	case StatusFound, StatusNotFound:
		// Go on.
	default:
		return nil
	}

	if r.format == FormatJSON {
		return json.NewEncoder(w).Encode(res)
	}

	region := notFoundText
	if res.Location != nil {
		region = res.Location.Raw
	}

	_, err = fmt.Fprintf(w, "%s\t%s\n", res.Input, region)

	return err
}

// notFoundText is written in [FormatText] for the addresses that aren't in the
// database.
const notFoundText = "not found"
