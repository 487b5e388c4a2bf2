package debugsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/AdguardTeam/xdbgeo/internal/xdb"
)

// RefresherID is a type alias for strings that represent IDs of refreshers.
type RefresherID = string

// Refreshers is a type alias for maps of refresher IDs to Refreshers
// themselves.  Refreshers that also implement [Database] have the header of the
// newly loaded database reported.
type Refreshers map[RefresherID]service.Refresher

// Database is a refreshable region database.
type Database interface {
	service.Refresher

	// Header returns the header of the currently loaded database.  h is nil if
	// there is none or it cannot be read.
	Header() (h *xdb.Header)
}

// refreshAll is the refresher ID that means all refreshers.
const refreshAll RefresherID = "*"

// Refresh statuses.
const (
	statusOK    = "ok"
	statusError = "error"
)

// errRefresherNotFound is reported when there is no refresher with the
// requested ID.
const errRefresherNotFound errors.Error = "refresher not found"

// refreshRequest describes the request to the POST /debug/api/refresh HTTP API.
type refreshRequest struct {
	IDs []RefresherID `json:"ids"`
}

// refreshResponse describes the response to the POST /debug/api/refresh HTTP
// API.
type refreshResponse struct {
	Results map[RefresherID]*refreshResult `json:"results"`
}

// refreshResult is the result of refreshing a single refresher.
type refreshResult struct {
	// Database is the information about the newly loaded database.  It is only
	// set for successfully refreshed databases with a valid header.
	Database *databaseInfo `json:"database,omitempty"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// databaseInfo is the JSON form of an [xdb.Header].
type databaseInfo struct {
	Created     time.Time `json:"created"`
	IndexPolicy string    `json:"index_policy"`
	Version     uint16    `json:"version"`
}

// newDatabaseInfo returns the information about the database with header h.  h
// must not be nil.
func newDatabaseInfo(h *xdb.Header) (info *databaseInfo) {
	return &databaseInfo{
		Created:     h.Created(),
		IndexPolicy: h.IndexPolicy.String(),
		Version:     h.Version,
	}
}

// serveRefresh handles the POST /debug/api/refresh endpoint.
func (svc *Service) serveRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogutil.MustLoggerFromContext(ctx)

	req := &refreshRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		l.ErrorContext(ctx, "decoding request", slogutil.KeyError, err)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	ids, err := svc.refresherIDs(req.IDs)
	if err != nil {
		l.ErrorContext(ctx, "validating request", slogutil.KeyError, err)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	resp := &refreshResponse{
		Results: make(map[RefresherID]*refreshResult, len(ids)),
	}

	for _, id := range ids {
		resp.Results[id] = svc.refresh(ctx, l, id)
	}

	w.Header().Set(httphdr.ContentType, "application/json")
	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		l.ErrorContext(ctx, "writing response", slogutil.KeyError, err)
	}
}

// refresherIDs returns the IDs of the refreshers requested with reqIDs.  The
// only ID [refreshAll] means all known refreshers.
func (svc *Service) refresherIDs(reqIDs []RefresherID) (ids []RefresherID, err error) {
	if len(reqIDs) == 0 {
		return nil, errors.Error("no ids")
	}

	if !slices.Contains(reqIDs, refreshAll) {
		return reqIDs, nil
	} else if len(reqIDs) > 1 {
		return nil, errors.Error(`"*" cannot be used with other ids`)
	}

	return slices.Sorted(maps.Keys(svc.refrs)), nil
}

// refresh refreshes the refresher with the given ID and reports the result.
func (svc *Service) refresh(
	ctx context.Context,
	l *slog.Logger,
	id RefresherID,
) (res *refreshResult) {
	refr, ok := svc.refrs[id]
	if !ok {
		return &refreshResult{
			Status: statusError,
			Error:  errRefresherNotFound.Error(),
		}
	}

	start := time.Now()
	err := refr.Refresh(ctx)
	if err != nil {
		l.ErrorContext(ctx, "refreshing", "id", id, slogutil.KeyError, err)

		return &refreshResult{
			Status: statusError,
			Error:  err.Error(),
		}
	}

	res = &refreshResult{
		Status: statusOK,
	}

	if db, isDB := refr.(Database); isDB {
		if h := db.Header(); h != nil {
			res.Database = newDatabaseInfo(h)
		}
	}

	l.InfoContext(ctx, "refreshed", "id", id, "duration", time.Since(start))

	return res
}
