// Package errcoll contains implementations of error collectors, most notably
// Sentry.
package errcoll

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
)

// Interface is the interface for error collectors that process information
// about errors, possibly sending them to a remote location.
type Interface interface {
	Collect(ctx context.Context, err error)
}

// Collect is a helper for reporting non-critical errors.  It writes the
// resulting error into the log and also into errColl.
func Collect(ctx context.Context, errColl Interface, l *slog.Logger, msg string, err error) {
	l.ErrorContext(ctx, msg, slogutil.KeyError, err)
	errColl.Collect(ctx, fmt.Errorf("%s: %w", msg, err))
}

// RefreshErrorHandler is a [service.ErrorHandler] that logs the refresh errors
// and reports them to an error collector.
type RefreshErrorHandler struct {
	logger  *slog.Logger
	errColl Interface
}

// NewRefreshErrorHandler returns a new properly initialized
// *RefreshErrorHandler.  l and errColl must not be nil.
func NewRefreshErrorHandler(l *slog.Logger, errColl Interface) (h *RefreshErrorHandler) {
	return &RefreshErrorHandler{
		logger:  l,
		errColl: errColl,
	}
}

// type check
var _ service.ErrorHandler = (*RefreshErrorHandler)(nil)

// Handle implements the [service.ErrorHandler] interface for
// *RefreshErrorHandler.
func (h *RefreshErrorHandler) Handle(ctx context.Context, err error) {
	Collect(ctx, h.errColl, h.logger, "refreshing", err)
}

// caller returns the caller position using the appropriate depth.
func caller(depth int) (callerPos string) {
	callerPos = "<position unknown>"

	_, callerFile, callerLine, ok := runtime.Caller(depth)
	if ok {
		callerPos = fmt.Sprintf("%s:%d", filepath.Base(filepath.Dir(callerFile))+"/"+
			filepath.Base(callerFile), callerLine)
	}

	return callerPos
}
