package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/AdguardTeam/xdbgeo/internal/debugsvc"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/AdguardTeam/xdbgeo/internal/version"
	"github.com/c2h5oh/datasize"
	"github.com/caarlos0/env/v7"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
)

// environment represents the configuration that is kept in the environment.
type environment struct {
	ConfPath  string `env:"CONFIG_PATH" envDefault:"./config.yaml"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	SentryDSN string `env:"SENTRY_DSN" envDefault:"stderr"`
	XDBPath   string `env:"XDB_PATH" envDefault:"./ip2region.xdb"`

	ListenAddr net.IP `env:"LISTEN_ADDR" envDefault:"127.0.0.1"`

	XDBMaxSize datasize.ByteSize `env:"XDB_MAX_SIZE" envDefault:"256MB"`

	// ListenPort is the port of the debug HTTP service.  Zero disables the
	// service.
	ListenPort uint16 `env:"LISTEN_PORT" envDefault:"8181"`

	Verbosity uint8 `env:"VERBOSE" envDefault:"0"`

	LogTimestamp strictBool `env:"LOG_TIMESTAMP" envDefault:"1"`
}

// parseEnvironment reads the configuration.
func parseEnvironment() (envs *environment, err error) {
	envs = &environment{}
	err = env.Parse(envs)
	if err != nil {
		return nil, fmt.Errorf("parsing environments: %w", err)
	}

	return envs, nil
}

// type check
var _ validate.Interface = (*environment)(nil)

// Validate implements the [validate.Interface] interface for *environment.
func (envs *environment) Validate() (err error) {
	errs := []error{
		validate.NotEmpty("CONFIG_PATH", envs.ConfPath),
		validate.NotEmpty("XDB_PATH", envs.XDBPath),
	}

	_, err = slogutil.NewFormat(envs.LogFormat)
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_FORMAT: %w", err))
	}

	_, err = slogutil.VerbosityToLevel(envs.Verbosity)
	if err != nil {
		errs = append(errs, fmt.Errorf("VERBOSE: %w", err))
	}

	if envs.debugEnabled() && len(envs.ListenAddr) == 0 {
		errs = append(errs, fmt.Errorf("LISTEN_ADDR: %w", errors.ErrNoValue))
	}

	return errors.Join(errs...)
}

// debugEnabled returns true if the debug HTTP service should be started.
func (envs *environment) debugEnabled() (ok bool) {
	return envs.ListenPort != 0
}

// buildErrColl builds and returns an error collector from environment.
func (envs *environment) buildErrColl(
	baseLogger *slog.Logger,
) (errColl errcoll.Interface, err error) {
	dsn := envs.SentryDSN
	if dsn == "stderr" {
		return errcoll.NewWriterErrorCollector(os.Stderr), nil
	}

	cli, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
		Release:          version.Version(),
	})
	if err != nil {
		return nil, err
	}

	l := baseLogger.With(slogutil.KeyPrefix, "sentry_errcoll")

	return errcoll.NewSentryErrorCollector(cli, l), nil
}

// debugConf returns a debug HTTP service configuration from environment.
func (envs *environment) debugConf(
	g prometheus.Gatherer,
	refrs debugsvc.Refreshers,
	logger *slog.Logger,
) (conf *debugsvc.Config) {
	return &debugsvc.Config{
		Logger:     logger.With(slogutil.KeyPrefix, "debugsvc"),
		Gatherer:   g,
		Refreshers: refrs,
		Addr:       netutil.JoinHostPort(envs.ListenAddr.String(), envs.ListenPort),
	}
}

// strictBool is a type for booleans that are parsed from the environment more
// strictly than the usual bool.  It only accepts "0" and "1" as valid values.
type strictBool bool

// UnmarshalText implements the encoding.TextUnmarshaler interface for
// *strictBool.
func (sb *strictBool) UnmarshalText(b []byte) (err error) {
	if len(b) == 1 {
		switch b[0] {
		case '0':
			*sb = false

			return nil
		case '1':
			*sb = true

			return nil
		default:
			// Go on and return an error.
		}
	}

	return fmt.Errorf("invalid value %q, supported: %q, %q", b, "0", "1")
}
