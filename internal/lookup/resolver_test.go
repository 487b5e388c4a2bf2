package lookup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/AdguardTeam/xdbgeo/internal/geoip"
	"github.com/AdguardTeam/xdbgeo/internal/lookup"
	"github.com/AdguardTeam/xdbgeo/internal/xdb"
	"github.com/AdguardTeam/xdbgeo/internal/xdb/xdbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

// testInput is the common input for tests.
const testInput = "# Addresses to resolve.\n" +
	xdbtest.IPXiamen + "\n" +
	"\n" +
	"  " + xdbtest.IPUS + "  \n" +
	"1.2.3\n" +
	xdbtest.IPGap + "\n" +
	"# " + xdbtest.IPPrivate + "\n" +
	xdbtest.IPFuzhouEnd + "\n"

// newTestGeoIP returns a loaded location database with the fixture data.
func newTestGeoIP(tb testing.TB) (db *geoip.File) {
	tb.Helper()

	path := xdbtest.WriteFile(tb, xdbtest.NewFixture(tb).Build())
	db, err := geoip.NewFile(&geoip.FileConfig{
		Logger:       slogutil.NewDiscardLogger(),
		Metrics:      geoip.EmptyMetrics{},
		Path:         path,
		Mode:         xdb.ModeFull,
		IPCacheCount: 16,
	})
	require.NoError(tb, err)
	testutil.CleanupAndRequireSuccess(tb, db.Close)

	require.NoError(tb, db.Refresh(testutil.ContextWithTimeout(tb, testTimeout)))

	return db
}

// testMetrics is the [lookup.Metrics] implementation for tests.
type testMetrics struct {
	mu       *sync.Mutex
	statuses map[string]int
	addrs    []netip.Addr
}

// type check
var _ lookup.Metrics = (*testMetrics)(nil)

// HandleResult implements the [lookup.Metrics] interface for *testMetrics.
func (m *testMetrics) HandleResult(_ context.Context, ip netip.Addr, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses[status]++
	if ip.IsValid() {
		m.addrs = append(m.addrs, ip)
	}
}

// testGeoIP is the [geoip.Interface] implementation for tests.
type testGeoIP struct {
	onData func(ctx context.Context, ip netip.Addr) (l *geoip.Location, err error)
}

// type check
var _ geoip.Interface = (*testGeoIP)(nil)

// Data implements the [geoip.Interface] interface for *testGeoIP.
func (g *testGeoIP) Data(ctx context.Context, ip netip.Addr) (l *geoip.Location, err error) {
	return g.onData(ctx, ip)
}

// newResolver returns a new resolver with the given parameters.
func newResolver(
	db geoip.Interface,
	errColl errcoll.Interface,
	m lookup.Metrics,
	f lookup.Format,
	workers int,
) (r *lookup.Resolver) {
	return lookup.New(&lookup.Config{
		Logger:  slogutil.NewDiscardLogger(),
		GeoIP:   db,
		ErrColl: errColl,
		Metrics: m,
		Format:  f,
		Workers: workers,
	})
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	r := newResolver(
		newTestGeoIP(t),
		errcoll.NewWriterErrorCollector(io.Discard),
		lookup.EmptyMetrics{},
		lookup.FormatText,
		1,
	)
	ctx := testutil.ContextWithTimeout(t, testTimeout)

	res := r.Resolve(ctx, xdbtest.IPXiamen)
	require.Equal(t, lookup.StatusFound, res.Status)
	require.NotNil(t, res.Location)

	assert.Contains(t, res.Location.Raw, "厦门")
	assert.Equal(t, netip.MustParseAddr(xdbtest.IPXiamen), res.Addr)

	res = r.Resolve(ctx, xdbtest.IPUnindexed)
	assert.Equal(t, lookup.StatusNotFound, res.Status)
	assert.Nil(t, res.Location)

	res = r.Resolve(ctx, "999.1.1.1")
	assert.Equal(t, lookup.StatusInvalid, res.Status)
	assert.False(t, res.Addr.IsValid())
}

func TestResolver_ResolveAll_text(t *testing.T) {
	t.Parallel()

	db := newTestGeoIP(t)

	const want = xdbtest.IPXiamen + "\t" + xdbtest.RegionXiamen + "\n" +
		xdbtest.IPUS + "\t" + xdbtest.RegionUS + "\n" +
		xdbtest.IPGap + "\tnot found\n" +
		xdbtest.IPFuzhouEnd + "\t" + xdbtest.RegionFuzhou + "\n"

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			t.Parallel()

			m := &testMetrics{
				mu:       &sync.Mutex{},
				statuses: map[string]int{},
			}

			errBuf := &bytes.Buffer{}
			r := newResolver(db, errcoll.NewWriterErrorCollector(errBuf), m, lookup.FormatText, workers)

			out := &bytes.Buffer{}
			ctx := testutil.ContextWithTimeout(t, testTimeout)
			err := r.ResolveAll(ctx, strings.NewReader(testInput), out)
			require.NoError(t, err)

			assert.Equal(t, want, out.String())
			assert.Empty(t, errBuf.String())

			m.mu.Lock()
			defer m.mu.Unlock()

			wantStatuses := map[string]int{
				lookup.StatusFound:    3,
				lookup.StatusNotFound: 1,
				lookup.StatusInvalid:  1,
			}
			assert.Equal(t, wantStatuses, m.statuses)
			assert.Len(t, m.addrs, 4)
		})
	}
}

func TestResolver_ResolveAll_json(t *testing.T) {
	t.Parallel()

	r := newResolver(
		newTestGeoIP(t),
		errcoll.NewWriterErrorCollector(io.Discard),
		lookup.EmptyMetrics{},
		lookup.FormatJSON,
		2,
	)

	out := &bytes.Buffer{}
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	err := r.ResolveAll(ctx, strings.NewReader(testInput), out)
	require.NoError(t, err)

	type jsonResult struct {
		Location *geoip.Location `json:"location"`
		IP       string          `json:"ip"`
		Status   string          `json:"status"`
	}

	var got []*jsonResult
	dec := json.NewDecoder(out)
	for dec.More() {
		res := &jsonResult{}
		require.NoError(t, dec.Decode(res))

		got = append(got, res)
	}

	require.Len(t, got, 4)

	assert.Equal(t, xdbtest.IPXiamen, got[0].IP)
	assert.Equal(t, lookup.StatusFound, got[0].Status)
	require.NotNil(t, got[0].Location)

	assert.Equal(t, "厦门市", got[0].Location.City)
	assert.Equal(t, netip.MustParseAddr("120.41.0.0"), got[0].Location.Start)

	assert.Equal(t, xdbtest.IPGap, got[2].IP)
	assert.Equal(t, lookup.StatusNotFound, got[2].Status)
	assert.Nil(t, got[2].Location)
}

func TestResolver_ResolveAll_order(t *testing.T) {
	t.Parallel()

	db := newTestGeoIP(t)

	const n = 1_000

	in := &strings.Builder{}
	ip := netip.MustParseAddr("1.0.0.0")
	for range n {
		_, _ = fmt.Fprintln(in, ip)
		ip = ip.Next()
	}

	input := in.String()
	outs := map[int]string{}
	for _, workers := range []int{1, 8} {
		r := newResolver(
			db,
			errcoll.NewWriterErrorCollector(io.Discard),
			lookup.EmptyMetrics{},
			lookup.FormatText,
			workers,
		)

		out := &bytes.Buffer{}
		ctx := testutil.ContextWithTimeout(t, testTimeout)
		err := r.ResolveAll(ctx, strings.NewReader(input), out)
		require.NoError(t, err)

		outs[workers] = out.String()
	}

	assert.Equal(t, outs[1], outs[8])

	lines := strings.Split(strings.TrimSuffix(outs[8], "\n"), "\n")
	require.Len(t, lines, n)

	assert.Equal(t, "1.0.0.0\t"+xdbtest.RegionAU, lines[0])
	assert.Equal(t, "1.0.3.231\t"+xdbtest.RegionFuzhou, lines[n-1])
}

func TestResolver_ResolveAll_dbError(t *testing.T) {
	t.Parallel()

	db := &testGeoIP{
		onData: func(_ context.Context, ip netip.Addr) (l *geoip.Location, err error) {
			if ip == netip.MustParseAddr(xdbtest.IPUS) {
				return nil, &xdb.IOError{
					Err:    io.ErrUnexpectedEOF,
					Offset: 1024,
					Length: 14,
				}
			}

			return geoip.NewLocation(xdbtest.RegionPrivate, ip, ip), nil
		},
	}

	m := &testMetrics{
		mu:       &sync.Mutex{},
		statuses: map[string]int{},
	}

	errBuf := &bytes.Buffer{}
	r := newResolver(db, errcoll.NewWriterErrorCollector(errBuf), m, lookup.FormatText, 1)

	out := &bytes.Buffer{}
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	err := r.ResolveAll(ctx, strings.NewReader(xdbtest.IPUS+"\n"+xdbtest.IPPrivate+"\n"), out)
	require.NoError(t, err)

	assert.Equal(t, xdbtest.IPPrivate+"\t"+xdbtest.RegionPrivate+"\n", out.String())
	assert.Contains(
		t,
		errBuf.String(),
		"caught error: resolving 8.8.8.8: reading 14 bytes at offset 1024: unexpected EOF",
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	assert.Equal(t, 1, m.statuses[lookup.StatusError])
}

// errWriter is an [io.Writer] that always fails.
type errWriter struct {
	err error
}

// Write implements the [io.Writer] interface for errWriter.
func (w errWriter) Write(_ []byte) (n int, err error) {
	return 0, w.err
}

func TestResolver_ResolveAll_writeError(t *testing.T) {
	t.Parallel()

	r := newResolver(
		newTestGeoIP(t),
		errcoll.NewWriterErrorCollector(io.Discard),
		lookup.EmptyMetrics{},
		lookup.FormatText,
		4,
	)

	const testErr errors.Error = "test error"

	in := strings.Repeat(xdbtest.IPUS+"\n", 10_000)
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	err := r.ResolveAll(ctx, strings.NewReader(in), errWriter{err: testErr})
	assert.ErrorIs(t, err, testErr)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := lookup.ParseFormat("json")
	require.NoError(t, err)

	assert.Equal(t, lookup.FormatJSON, f)

	_, err = lookup.ParseFormat("xml")
	assert.ErrorIs(t, err, errors.ErrBadEnumValue)
}
