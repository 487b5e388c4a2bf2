package xdb_test

import (
	"net/netip"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/AdguardTeam/xdbgeo/internal/xdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPv4(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		in         string
		wantErrMsg string
		want       uint32
	}{{
		name:       "simple",
		in:         "1.2.3.4",
		wantErrMsg: "",
		want:       0x01_02_03_04,
	}, {
		name:       "zero",
		in:         "0.0.0.0",
		wantErrMsg: "",
		want:       0,
	}, {
		name:       "max",
		in:         "255.255.255.255",
		wantErrMsg: "",
		want:       0xFF_FF_FF_FF,
	}, {
		name:       "xiamen",
		in:         "120.41.166.1",
		wantErrMsg: "",
		want:       120<<24 | 41<<16 | 166<<8 | 1,
	}, {
		name:       "octet_too_big",
		in:         "999.1.1.1",
		wantErrMsg: `invalid ipv4 address "999.1.1.1"`,
		want:       0,
	}, {
		name:       "three_octets",
		in:         "1.2.3",
		wantErrMsg: `invalid ipv4 address "1.2.3"`,
		want:       0,
	}, {
		name:       "five_octets",
		in:         "1.2.3.4.5",
		wantErrMsg: `invalid ipv4 address "1.2.3.4.5"`,
		want:       0,
	}, {
		name:       "not_numeric",
		in:         "abc.def.gh.i",
		wantErrMsg: `invalid ipv4 address "abc.def.gh.i"`,
		want:       0,
	}, {
		name:       "empty",
		in:         "",
		wantErrMsg: `invalid ipv4 address ""`,
		want:       0,
	}, {
		name:       "ipv6",
		in:         "2001:db8::1",
		wantErrMsg: `invalid ipv4 address "2001:db8::1"`,
		want:       0,
	}, {
		name:       "ipv4_mapped",
		in:         "::ffff:1.2.3.4",
		wantErrMsg: `invalid ipv4 address "::ffff:1.2.3.4"`,
		want:       0,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := xdb.ParseIPv4(tc.in)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)
			assert.Equal(t, tc.want, got)

			if tc.wantErrMsg != "" {
				ipErr := testutil.RequireTypeAssert[*xdb.InvalidIPError](t, err)
				assert.Equal(t, tc.in, ipErr.IP)
			}
		})
	}
}

func TestAddrToUint32(t *testing.T) {
	t.Parallel()

	got, err := xdb.AddrToUint32(netip.MustParseAddr("::ffff:8.8.8.8"))
	require.NoError(t, err)

	assert.Equal(t, uint32(0x08_08_08_08), got)
	assert.Equal(t, netip.MustParseAddr("8.8.8.8"), xdb.Uint32ToAddr(got))

	_, err = xdb.AddrToUint32(netip.MustParseAddr("2001:db8::1"))
	testutil.AssertErrorMsg(t, `invalid ipv4 address "2001:db8::1"`, err)

	_, err = xdb.AddrToUint32(netip.Addr{})
	testutil.AssertErrorMsg(t, `invalid ipv4 address "invalid IP"`, err)
}
