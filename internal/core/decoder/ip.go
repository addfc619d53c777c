// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/peeracct/internal/core"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
)

// decodeIPv4 fills version, protocol and addresses and returns the offset of
// the transport header. The header length comes from IHL and is checked
// against the captured end before the transport offset is trusted.
func decodeIPv4(frame []byte, off, end int, h *core.Headers) (int, error) {
	if !Within(0, end, off, ipv4HeaderMinLen) {
		return 0, core.ErrMalformedFrame
	}
	ip := frame[off : off+ipv4HeaderMinLen]

	headerLen := int(ip[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || !Within(0, end, off, headerLen) {
		return 0, core.ErrMalformedFrame
	}

	h.Version = 4
	h.Protocol = ip[9]
	h.SrcIP = netip.AddrFrom4([4]byte(ip[12:16]))
	h.DstIP = netip.AddrFrom4([4]byte(ip[16:20]))

	return off + headerLen, nil
}

// decodeIPv6 reads the fixed 40 byte base header. Extension headers are not
// walked: next-header is taken as the transport protocol as-is, so traffic
// behind extension headers shows up as an unported protocol.
func decodeIPv6(frame []byte, off, end int, h *core.Headers) (int, error) {
	if !Within(0, end, off, ipv6HeaderLen) {
		return 0, core.ErrMalformedFrame
	}
	ip := frame[off : off+ipv6HeaderLen]

	h.Version = 6
	h.Protocol = ip[6]
	h.SrcIP = netip.AddrFrom16([16]byte(ip[8:24]))
	h.DstIP = netip.AddrFrom16([16]byte(ip[24:40]))

	return off + ipv6HeaderLen, nil
}

// IPv4Addrs reads the addresses of an Ethernet/IPv4 frame as numeric values
// (first octet most significant). Only the Ethernet header and the fixed
// 20 byte IPv4 header need to be present; IHL and transport are not checked.
func IPv4Addrs(frame []byte) (src, dst uint32, ok bool) {
	end := len(frame)
	etherType, off, err := decodeEthernet(frame, end)
	if err != nil || etherType != etherTypeIPv4 {
		return 0, 0, false
	}
	if !Within(0, end, off, ipv4HeaderMinLen) {
		return 0, 0, false
	}
	src = binary.BigEndian.Uint32(frame[off+12 : off+16])
	dst = binary.BigEndian.Uint32(frame[off+16 : off+20])
	return src, dst, true
}
