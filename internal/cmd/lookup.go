package cmd

import (
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/AdguardTeam/xdbgeo/internal/geoip"
	"github.com/AdguardTeam/xdbgeo/internal/lookup"
)

// lookupConfig is the configuration of the address resolver.
type lookupConfig struct {
	// Format is the output format, "text" or "json".
	Format string `yaml:"format"`

	// Workers is the number of concurrent lookups.
	Workers int `yaml:"workers"`
}

// type check
var _ validate.Interface = (*lookupConfig)(nil)

// Validate implements the [validate.Interface] interface for *lookupConfig.
func (c *lookupConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.Positive("workers", c.Workers),
	}

	_, err = lookup.ParseFormat(c.Format)
	if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// toInternal returns the configuration of the resolver.  c must be valid.
func (c *lookupConfig) toInternal(
	logger *slog.Logger,
	geoIP geoip.Interface,
	errColl errcoll.Interface,
	mtrc lookup.Metrics,
) (conf *lookup.Config, err error) {
	f, err := lookup.ParseFormat(c.Format)
	if err != nil {
		// Should not happen, since the configuration is validated.
		return nil, fmt.Errorf("lookup: %w", err)
	}

	return &lookup.Config{
		Logger:  logger,
		GeoIP:   geoIP,
		ErrColl: errColl,
		Metrics: mtrc,
		Format:  f,
		Workers: c.Workers,
	}, nil
}
