package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/contextutil"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/AdguardTeam/xdbgeo/internal/debugsvc"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/AdguardTeam/xdbgeo/internal/geoip"
	"github.com/AdguardTeam/xdbgeo/internal/lookup"
	"github.com/AdguardTeam/xdbgeo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Constants that define debug identifiers for the debug HTTP service.
const (
	debugIDGeoIP = "geoip"
)

// type check
var _ debugsvc.Database = (*geoip.File)(nil)

// builder contains the logic of configuring and combining together xdbgeo
// entities.
//
// NOTE:  Keep method definitions in the rough order in which they are intended
// to be called.
type builder struct {
	// The fields below are initialized immediately on construction.  Keep them
	// sorted.

	baseLogger     *slog.Logger
	conf           *configuration
	debugRefrs     debugsvc.Refreshers
	env            *environment
	errColl        errcoll.Interface
	logger         *slog.Logger
	mtrcNamespace  string
	promGatherer   prometheus.Gatherer
	promRegisterer prometheus.Registerer

	// The fields below are initialized later by calling the builder's methods.
	// Keep them sorted.

	geoIP    *geoip.File
	resolver *lookup.Resolver

	// services are shut down in the reverse order when xdbgeo exits.
	services []service.Interface
}

// builderConfig contains the initial information for a builder.
type builderConfig struct {
	envs       *environment
	conf       *configuration
	baseLogger *slog.Logger
	errColl    errcoll.Interface
}

// shutdownTimeout is the default shutdown timeout for all services.
const shutdownTimeout = 5 * time.Second

// defaultTimeout is the timeout used for some operations where another timeout
// hasn't been defined yet.
const defaultTimeout = 30 * time.Second

// newBuilder returns a new properly initialized builder.  c must not be nil.
func newBuilder(c *builderConfig) (b *builder) {
	return &builder{
		baseLogger:     c.baseLogger,
		conf:           c.conf,
		debugRefrs:     debugsvc.Refreshers{},
		env:            c.envs,
		errColl:        c.errColl,
		logger:         c.baseLogger.With(slogutil.KeyPrefix, "builder"),
		mtrcNamespace:  metrics.Namespace,
		promGatherer:   prometheus.DefaultGatherer,
		promRegisterer: prometheus.DefaultRegisterer,
	}
}

// initGeoIP creates the region database and performs its initial refresh.
func (b *builder) initGeoIP(ctx context.Context) (err error) {
	b.logger.DebugContext(ctx, "using xdb file", "path", b.env.XDBPath, "mode", b.conf.GeoIP.Mode)

	mtrc, err := metrics.NewGeoIP(b.mtrcNamespace, b.promRegisterer)
	if err != nil {
		return fmt.Errorf("registering geoip metrics: %w", err)
	}

	c := b.conf.GeoIP.toInternal(b.env, b.baseLogger.With(slogutil.KeyPrefix, "geoip"), mtrc)
	b.geoIP, err = geoip.NewFile(c)
	if err != nil {
		return fmt.Errorf("creating geoip: %w", err)
	}

	err = b.geoIP.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("creating geoip: initial refresh: %w", err)
	}

	b.debugRefrs[debugIDGeoIP] = b.geoIP

	b.logger.DebugContext(ctx, "initialized geoip")

	return nil
}

// initGeoIPRefresher creates and starts the refresher of the region database.
//
// [builder.initGeoIP] must be called before this one.
func (b *builder) initGeoIPRefresher(ctx context.Context) (err error) {
	const prefix = "geoip_refresh"
	refrLogger := b.baseLogger.With(slogutil.KeyPrefix, prefix)
	refr := service.NewRefreshWorker(&service.RefreshWorkerConfig{
		ContextConstructor: contextutil.NewTimeoutConstructor(defaultTimeout),
		ErrorHandler:       errcoll.NewRefreshErrorHandler(refrLogger, b.errColl),
		Refresher:          b.geoIP,
		Schedule:           timeutil.NewConstSchedule(time.Duration(b.conf.GeoIP.RefreshIvl)),
		RefreshOnShutdown:  false,
	})
	err = refr.Start(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("starting geoip refresher: %w", err)
	}

	b.services = append(b.services, refr)

	b.logger.DebugContext(ctx, "initialized geoip refresher")

	return nil
}

// initDebugSvc creates and starts the debug HTTP service, if it is enabled.
//
// [builder.initGeoIP] must be called before this one.
func (b *builder) initDebugSvc(ctx context.Context) (err error) {
	if !b.env.debugEnabled() {
		b.logger.DebugContext(ctx, "debug service disabled")

		return nil
	}

	debugSvc := debugsvc.New(b.env.debugConf(b.promGatherer, b.debugRefrs, b.baseLogger))
	err = debugSvc.Start(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("starting debug service: %w", err)
	}

	b.services = append(b.services, debugSvc)

	b.logger.DebugContext(
		ctx,
		"initialized debug",
		"refr_ids", slices.Sorted(maps.Keys(b.debugRefrs)),
	)

	return nil
}

// initResolver creates the address resolver.
//
// [builder.initGeoIP] must be called before this one.
func (b *builder) initResolver(ctx context.Context) (err error) {
	mtrc, err := metrics.NewLookup(b.mtrcNamespace, b.promRegisterer)
	if err != nil {
		return fmt.Errorf("registering lookup metrics: %w", err)
	}

	c, err := b.conf.Lookup.toInternal(
		b.baseLogger.With(slogutil.KeyPrefix, "lookup"),
		b.geoIP,
		b.errColl,
		mtrc,
	)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	}

	b.resolver = lookup.New(c)

	b.logger.DebugContext(ctx, "initialized resolver", "workers", c.Workers, "format", c.Format)

	return nil
}

// run resolves the addresses from args or, if there are none, from the
// standard input and shuts the services down.  code is
// [osutil.ExitCodeSuccess] on success and [osutil.ExitCodeFailure] on error.
//
// run must not be called concurrently with any other methods.
func (b *builder) run(ctx context.Context, args []string) (code osutil.ExitCode) {
	var in io.Reader = os.Stdin
	if len(args) > 0 {
		in = strings.NewReader(strings.Join(args, "\n"))
	}

	code = osutil.ExitCodeSuccess

	err := b.resolver.ResolveAll(ctx, in, os.Stdout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			b.logger.InfoContext(ctx, "interrupted")
		} else {
			b.logger.ErrorContext(ctx, "resolving", slogutil.KeyError, err)
			code = osutil.ExitCodeFailure
		}
	}

	if !b.shutdown(context.WithoutCancel(ctx)) {
		code = osutil.ExitCodeFailure
	}

	return code
}

// shutdown gracefully shuts down all services and closes the database.  ok is
// false if any of them failed.
func (b *builder) shutdown(ctx context.Context) (ok bool) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	b.logger.InfoContext(ctx, "shutting down services")

	ok = true
	for i, svc := range slices.Backward(b.services) {
		err := svc.Shutdown(ctx)
		if err != nil {
			b.logger.ErrorContext(ctx, "shutting down service", "idx", i, slogutil.KeyError, err)
			ok = false
		}
	}

	err := b.geoIP.Close()
	if err != nil {
		b.logger.ErrorContext(ctx, "closing geoip", slogutil.KeyError, err)
		ok = false
	}

	return ok
}
