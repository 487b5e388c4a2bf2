package geoip

import "github.com/AdguardTeam/golibs/errors"

// ErrNotLoaded is returned from [File.Data] when the database hasn't been
// loaded by a successful refresh yet.
const ErrNotLoaded errors.Error = "geoip: database is not loaded"
