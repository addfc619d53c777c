// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/peeracct/internal/core"
)

const (
	ethernetHeaderLen = 14

	// EtherType values
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD
)

// decodeEthernet reads the ethertype and returns the offset of the L3 header.
// VLAN tags are not walked: a tagged frame reports 0x8100 and is not IP.
func decodeEthernet(frame []byte, end int) (uint16, int, error) {
	if !Within(0, end, 0, ethernetHeaderLen) {
		return 0, 0, core.ErrMalformedFrame
	}
	return binary.BigEndian.Uint16(frame[12:14]), ethernetHeaderLen, nil
}
