package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
)

// reportPanics reports all panics in Main using the Sentry client, logs them,
// and repanics.  It should be called in a defer.
func reportPanics(ctx context.Context, errColl errcoll.Interface, l *slog.Logger) {
	v := recover()
	if v == nil {
		return
	}

	var err error
	if recErr, ok := v.(error); ok {
		err = fmt.Errorf("panic in cmd.Main: %w", recErr)
	} else {
		err = fmt.Errorf("panic in cmd.Main: %v", v)
	}

	errColl.Collect(ctx, err)
	if flusher, ok := errColl.(errcoll.ErrorFlushCollector); ok {
		flusher.Flush()
	}

	l.ErrorContext(ctx, "recovered from panic", slogutil.KeyError, err)
	slogutil.PrintStack(ctx, l, slog.LevelError)

	panic(v)
}
