package cmd

import (
	"net"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/xdbgeo/internal/errcoll"
	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictBool_UnmarshalText(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		in         string
		wantErrMsg string
		want       strictBool
	}{{
		name:       "true",
		in:         "1",
		wantErrMsg: "",
		want:       true,
	}, {
		name:       "false",
		in:         "0",
		wantErrMsg: "",
		want:       false,
	}, {
		name:       "word",
		in:         "true",
		wantErrMsg: `invalid value "true", supported: "0", "1"`,
		want:       false,
	}, {
		name:       "empty",
		in:         "",
		wantErrMsg: `invalid value "", supported: "0", "1"`,
		want:       false,
	}, {
		name:       "other_digit",
		in:         "2",
		wantErrMsg: `invalid value "2", supported: "0", "1"`,
		want:       false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var sb strictBool
			err := sb.UnmarshalText([]byte(tc.in))
			if tc.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantErrMsg, err.Error())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, sb)
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		envs, err := parseEnvironment()
		require.NoError(t, err)

		assert.Equal(t, "./config.yaml", envs.ConfPath)
		assert.Equal(t, "./ip2region.xdb", envs.XDBPath)
		assert.Equal(t, "stderr", envs.SentryDSN)
		assert.Equal(t, 256*datasize.MB, envs.XDBMaxSize)
		assert.Equal(t, uint16(8181), envs.ListenPort)
		assert.True(t, envs.ListenAddr.Equal(net.IPv4(127, 0, 0, 1)))
		assert.True(t, bool(envs.LogTimestamp))
		assert.True(t, envs.debugEnabled())

		require.NoError(t, envs.Validate())
	})

	t.Run("custom", func(t *testing.T) {
		t.Setenv("XDB_PATH", "/var/lib/xdbgeo/ip2region.xdb")
		t.Setenv("XDB_MAX_SIZE", "1GB")
		t.Setenv("LISTEN_PORT", "0")
		t.Setenv("LOG_FORMAT", "json")
		t.Setenv("LOG_TIMESTAMP", "0")

		envs, err := parseEnvironment()
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/xdbgeo/ip2region.xdb", envs.XDBPath)
		assert.Equal(t, datasize.GB, envs.XDBMaxSize)
		assert.False(t, envs.debugEnabled())
		assert.False(t, bool(envs.LogTimestamp))

		require.NoError(t, envs.Validate())
	})

	t.Run("bad_bool", func(t *testing.T) {
		t.Setenv("LOG_TIMESTAMP", "yes")

		_, err := parseEnvironment()
		require.Error(t, err)
	})

	t.Run("bad_size", func(t *testing.T) {
		t.Setenv("XDB_MAX_SIZE", "lots")

		_, err := parseEnvironment()
		require.Error(t, err)
	})
}

func TestEnvironment_Validate(t *testing.T) {
	t.Parallel()

	newEnvs := func() (envs *environment) {
		return &environment{
			ConfPath:     "./config.yaml",
			LogFormat:    "text",
			SentryDSN:    "stderr",
			XDBPath:      "./ip2region.xdb",
			ListenAddr:   net.IPv4(127, 0, 0, 1),
			XDBMaxSize:   256 * datasize.MB,
			ListenPort:   8181,
			Verbosity:    0,
			LogTimestamp: true,
		}
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, newEnvs().Validate())
	})

	t.Run("empty_path", func(t *testing.T) {
		t.Parallel()

		envs := newEnvs()
		envs.XDBPath = ""

		err := envs.Validate()
		assert.ErrorIs(t, err, errors.ErrEmptyValue)
		assert.ErrorContains(t, err, "XDB_PATH")
	})

	t.Run("bad_log_format", func(t *testing.T) {
		t.Parallel()

		envs := newEnvs()
		envs.LogFormat = "xml"

		assert.ErrorContains(t, envs.Validate(), "LOG_FORMAT")
	})

	t.Run("bad_verbosity", func(t *testing.T) {
		t.Parallel()

		envs := newEnvs()
		envs.Verbosity = 100

		assert.ErrorContains(t, envs.Validate(), "VERBOSE")
	})

	t.Run("no_listen_addr", func(t *testing.T) {
		t.Parallel()

		envs := newEnvs()
		envs.ListenAddr = nil

		err := envs.Validate()
		assert.ErrorIs(t, err, errors.ErrNoValue)
		assert.ErrorContains(t, err, "LISTEN_ADDR")

		envs.ListenPort = 0
		assert.NoError(t, envs.Validate())
	})
}

func TestEnvironment_buildErrColl(t *testing.T) {
	t.Parallel()

	envs := &environment{
		SentryDSN: "stderr",
	}

	errColl, err := envs.buildErrColl(slogutil.NewDiscardLogger())
	require.NoError(t, err)

	assert.IsType(t, (*errcoll.WriterErrorCollector)(nil), errColl)

	envs.SentryDSN = "https://key@sentry.example/1"
	errColl, err = envs.buildErrColl(slogutil.NewDiscardLogger())
	require.NoError(t, err)

	assert.IsType(t, (*errcoll.SentryErrorCollector)(nil), errColl)
}

func TestEnvironment_debugConf(t *testing.T) {
	t.Parallel()

	envs := &environment{
		ListenAddr: net.IPv4(127, 0, 0, 1),
		ListenPort: 8181,
	}

	c := envs.debugConf(nil, nil, slogutil.NewDiscardLogger())
	assert.Equal(t, "127.0.0.1:8181", c.Addr)
}
