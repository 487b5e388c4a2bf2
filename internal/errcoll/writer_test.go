package errcoll_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/stretchr/testify/assert"
)

func TestWriterErrorCollector(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	c := errcoll.NewWriterErrorCollector(buf)
	c.Collect(context.Background(), errors.Error("test error"))

	wantRx := `.*: .*errcoll/writer_test.go:[0-9]+: caught error: test error.*`
	assert.Regexp(t, wantRx, buf.String())
}

func TestCollect(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	c := errcoll.NewWriterErrorCollector(buf)
	errcoll.Collect(
		context.Background(),
		c,
		slogutil.NewDiscardLogger(),
		"loading",
		errors.Error("test error"),
	)

	assert.Contains(t, buf.String(), "caught error: loading: test error")
}

func TestRefreshErrorHandler(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := errcoll.NewRefreshErrorHandler(slogutil.NewDiscardLogger(), errcoll.NewWriterErrorCollector(buf))
	h.Handle(context.Background(), errors.Error("test error"))

	assert.Contains(t, buf.String(), "caught error: refreshing: test error")
}
