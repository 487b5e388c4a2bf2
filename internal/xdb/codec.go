package xdb

import (
	"encoding/binary"
	"net/netip"
)

// ParseIPv4 parses s as a dotted-decimal IPv4 address and returns it as a
// big-endian number, so that 1.2.3.4 becomes 0x01020304.  Any other form,
// including IPv6 and IPv4-mapped IPv6 addresses, is an *InvalidIPError.
func ParseIPv4(s string) (ip uint32, err error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, &InvalidIPError{
			IP: s,
		}
	}

	return AddrToUint32(addr)
}

// AddrToUint32 converts an IPv4 or an IPv4-mapped IPv6 address into a number.
// Other addresses are an *InvalidIPError.
func AddrToUint32(addr netip.Addr) (ip uint32, err error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, &InvalidIPError{
			IP: addr.String(),
		}
	}

	a := addr.As4()

	return binary.BigEndian.Uint32(a[:]), nil
}

// Uint32ToAddr converts a number into an IPv4 address.
func Uint32ToAddr(ip uint32) (addr netip.Addr) {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], ip)

	return netip.AddrFrom4(a)
}

// le16 decodes a little-endian uint16 from b at off.  b must contain at least
// off+2 bytes.
func le16(b []byte, off int) (v uint16) {
	return binary.LittleEndian.Uint16(b[off:])
}

// le32 decodes a little-endian uint32 from b at off.  b must contain at least
// off+4 bytes.
func le32(b []byte, off int) (v uint32) {
	return binary.LittleEndian.Uint32(b[off:])
}
