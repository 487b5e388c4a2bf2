// Package debugsvc contains the debug HTTP API of xdbgeo.
package debugsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/AdguardTeam/xdbgeo/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path pattern constants.
const (
	PathPatternDebugAPIDatabases = "/debug/api/databases"
	PathPatternDebugAPIRefresh   = "/debug/api/refresh"
	PathPatternHealthCheck       = "/health-check"
	PathPatternMetrics           = "/metrics"
)

// Route pattern constants.
const (
	routePatternDebugAPIDatabases = http.MethodGet + " " + PathPatternDebugAPIDatabases
	routePatternDebugAPIRefresh   = http.MethodPost + " " + PathPatternDebugAPIRefresh
	routePatternHealthCheck       = http.MethodGet + " " + PathPatternHealthCheck
	routePatternMetrics           = http.MethodGet + " " + PathPatternMetrics
)

// Config is the debug HTTP service configuration structure.
type Config struct {
	// Logger is used to log the operation of the service.  It must not be nil.
	Logger *slog.Logger

	// Gatherer is used to serve the Prometheus metrics.  It must not be nil.
	Gatherer prometheus.Gatherer

	// Refreshers are the entities that can be refreshed with the debug API.
	Refreshers Refreshers

	// Addr is the address to listen on.  It must not be empty.
	Addr string
}

// Service is the debug HTTP service of xdbgeo.  It serves the prometheus
// metrics, the health check, and the database API.
type Service struct {
	logger *slog.Logger
	refrs  Refreshers
	http   *http.Server

	// mu protects listener.
	mu       *sync.Mutex
	listener net.Listener
}

// New returns a new properly initialized *Service.  c must not be nil.
func New(c *Config) (svc *Service) {
	svc = &Service{
		logger: c.Logger,
		refrs:  c.Refreshers,
		mu:     &sync.Mutex{},
	}

	mux := http.NewServeMux()
	svc.route(mux, c.Gatherer)

	svc.http = &http.Server{
		// #nosec G112 -- Do not set the timeouts, since the refreshes may be
		// busy for a long time.
		Addr:     c.Addr,
		Handler:  mux,
		ErrorLog: slog.NewLogLogger(c.Logger.Handler(), slog.LevelDebug),
	}

	return svc
}

// route adds the handlers to mux.
func (svc *Service) route(mux *http.ServeMux, g prometheus.Gatherer) {
	routes := []struct {
		handler http.Handler
		pattern string
		lvl     slog.Level
	}{{
		handler: http.HandlerFunc(serveHealthCheck),
		pattern: routePatternHealthCheck,
		lvl:     slog.LevelDebug,
	}, {
		handler: promhttp.HandlerFor(g, promhttp.HandlerOpts{}),
		pattern: routePatternMetrics,
		lvl:     slog.LevelDebug,
	}, {
		handler: http.HandlerFunc(svc.serveDatabases),
		pattern: routePatternDebugAPIDatabases,
		lvl:     slog.LevelDebug,
	}, {
		handler: http.HandlerFunc(svc.serveRefresh),
		pattern: routePatternDebugAPIRefresh,
		lvl:     slog.LevelInfo,
	}}

	for _, r := range routes {
		mux.Handle(r.pattern, svc.withLogging(r.handler, r.lvl))
	}
}

// withLogging returns a handler that adds a request logger to the context and
// logs the start and the result of every request at lvl.
func (svc *Service) withLogging(h http.Handler, lvl slog.Level) (wrapped http.Handler) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(httphdr.Server, version.UserAgent())

		l := svc.logger.With("raddr", r.RemoteAddr, "method", r.Method, "path", r.URL.Path)
		ctx := slogutil.ContextWithLogger(r.Context(), l)

		sw := &statusWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		l.Log(ctx, lvl, "request started")
		h.ServeHTTP(sw, r.WithContext(ctx))
		l.Log(ctx, lvl, "request finished", "status", sw.status)
	})
}

// statusWriter is an [http.ResponseWriter] that remembers the response status.
type statusWriter struct {
	http.ResponseWriter

	status int
}

// type check
var _ http.ResponseWriter = (*statusWriter)(nil)

// WriteHeader implements the [http.ResponseWriter] interface for *statusWriter.
func (w *statusWriter) WriteHeader(status int) {
	w.status = status

	w.ResponseWriter.WriteHeader(status)
}

// serveHealthCheck handles the GET /health-check endpoint.
func serveHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(httphdr.ContentType, "text/plain")

	_, err := io.WriteString(w, "OK\n")
	if err != nil {
		ctx := r.Context()
		slogutil.MustLoggerFromContext(ctx).DebugContext(
			ctx,
			"writing health-check response",
			slogutil.KeyError, err,
		)
	}
}

// serveDatabases handles the GET /debug/api/databases endpoint.  It reports
// the headers of the currently loaded databases.  A database without a valid
// header is reported as null.
func (svc *Service) serveDatabases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbs := map[RefresherID]*databaseInfo{}
	for id, refr := range svc.refrs {
		db, ok := refr.(Database)
		if !ok {
			continue
		}

		var info *databaseInfo
		if h := db.Header(); h != nil {
			info = newDatabaseInfo(h)
		}

		dbs[id] = info
	}

	w.Header().Set(httphdr.ContentType, "application/json")
	err := json.NewEncoder(w).Encode(dbs)
	if err != nil {
		slogutil.MustLoggerFromContext(ctx).ErrorContext(
			ctx,
			"writing response",
			slogutil.KeyError, err,
		)
	}
}

// type check
var _ service.Interface = (*Service)(nil)

// Start implements the [service.Interface] interface for *Service.  It starts
// listening and serves the endpoints in a separate goroutine.
func (svc *Service) Start(ctx context.Context) (err error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", svc.http.Addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", svc.http.Addr, err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.listener = l

	go svc.serve(ctx, l)

	return nil
}

// serve serves the endpoints on l until the server is shut down.  It is
// intended to be used as a goroutine.
func (svc *Service) serve(ctx context.Context, l net.Listener) {
	defer slogutil.RecoverAndLog(ctx, svc.logger)

	svc.logger.InfoContext(ctx, "listening", "addr", l.Addr())

	err := svc.http.Serve(l)
	if !errors.Is(err, http.ErrServerClosed) {
		svc.logger.ErrorContext(ctx, "serving", slogutil.KeyError, err)
	}
}

// LocalAddr returns the address the service is listening on, or nil if it
// hasn't been started.
func (svc *Service) LocalAddr() (addr net.Addr) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.listener == nil {
		return nil
	}

	return svc.listener.Addr()
}

// Shutdown implements the [service.Interface] interface for *Service.  It stops
// serving all endpoints.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	err = svc.http.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	svc.logger.InfoContext(ctx, "server is shutdown")

	return nil
}
