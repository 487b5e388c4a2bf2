// Package cmd is the xdbgeo entry point.  It contains the on-disk configuration
// file utilities, signal processing logic, and so on.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"runtime"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/xdbgeo/internal/metrics"
	"github.com/AdguardTeam/xdbgeo/internal/version"
	"golang.org/x/sys/unix"
)

// Main is the entry point of application.  The addresses to resolve are taken
// from the command-line arguments or, if there are none, from the standard
// input.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)

	// Restore the default behavior after the first signal, so that a second
	// one terminates xdbgeo even if it is blocked on reading the input.
	context.AfterFunc(ctx, stop)

	envs := errors.Must(parseEnvironment())
	errors.Check(envs.Validate())

	lvl := errors.Must(slogutil.VerbosityToLevel(envs.Verbosity))
	baseLogger := slogutil.New(&slogutil.Config{
		// Don't use [slogutil.NewFormat] here, because the value is validated.
		Format:       slogutil.Format(envs.LogFormat),
		AddTimestamp: bool(envs.LogTimestamp),
		Level:        lvl,
	})

	mainLogger := baseLogger.With(slogutil.KeyPrefix, "main")

	// Signal service startup now that we have the logs set up.
	branch := version.Branch()
	commitTime := version.CommitTime()
	buildVersion := version.Version()
	revision := version.Revision()
	mainLogger.InfoContext(
		ctx,
		"xdbgeo starting",
		"version", buildVersion,
		"revision", revision,
		"branch", branch,
		"commit_time", commitTime,
	)

	// Error collector

	errColl := errors.Must(envs.buildErrColl(baseLogger))

	defer reportPanics(ctx, errColl, mainLogger)

	c := errors.Must(parseConfig(envs.ConfPath))

	errors.Check(c.Validate())

	// Building and running the resolver

	b := newBuilder(&builderConfig{
		envs:       envs,
		conf:       c,
		baseLogger: baseLogger,
		errColl:    errColl,
	})

	errors.Check(metrics.SetAdditionalInfo(
		b.promRegisterer,
		b.mtrcNamespace,
		c.AdditionalMetricsInfo,
	))

	errors.Check(b.initGeoIP(ctx))

	errors.Check(b.initGeoIPRefresher(ctx))

	errors.Check(b.initResolver(ctx))

	errors.Check(b.initDebugSvc(ctx))

	// Signal that xdbgeo is started.
	errors.Check(metrics.SetUpGauge(
		b.promRegisterer,
		b.mtrcNamespace,
		buildVersion,
		commitTime,
		branch,
		revision,
		runtime.Version(),
	))

	code := b.run(ctx, os.Args[1:])

	mainLogger.InfoContext(ctx, "xdbgeo exiting", "code", code)

	os.Exit(code)
}
