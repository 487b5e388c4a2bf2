package cmd

import (
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/AdguardTeam/xdbgeo/internal/geoip"
	"github.com/AdguardTeam/xdbgeo/internal/xdb"
)

// geoIPConfig is the region database configuration.
type geoIPConfig struct {
	// Mode is the data-access strategy of the database: "file", "vector", or
	// "memory".
	Mode xdb.Mode `yaml:"mode"`

	// IPCacheSize is the size of the IP lookup cache, in entries.  Zero
	// disables the cache.
	IPCacheSize int `yaml:"ip_cache_size"`

	// RefreshIvl defines how often xdbgeo reopens the database file.
	RefreshIvl timeutil.Duration `yaml:"refresh_interval"`
}

// type check
var _ validate.Interface = (*geoIPConfig)(nil)

// Validate implements the [validate.Interface] interface for *geoIPConfig.
func (c *geoIPConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	var errs []error
	if c.Mode == 0 {
		errs = append(errs, errors.Annotate(errors.ErrNoValue, "mode: %w"))
	}

	errs = append(
		errs,
		validate.NotNegative("ip_cache_size", c.IPCacheSize),
		validate.Positive("refresh_interval", c.RefreshIvl),
	)

	return errors.Join(errs...)
}

// toInternal returns the configuration of the file-based region database.  c
// must be valid.
func (c *geoIPConfig) toInternal(
	envs *environment,
	logger *slog.Logger,
	mtrc geoip.Metrics,
) (conf *geoip.FileConfig) {
	return &geoip.FileConfig{
		Logger:       logger,
		Metrics:      mtrc,
		Path:         envs.XDBPath,
		Mode:         c.Mode,
		MaxSize:      envs.XDBMaxSize.Bytes(),
		IPCacheCount: c.IPCacheSize,
	}
}
