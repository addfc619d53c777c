// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/peeracct/internal/core"
)

const (
	udpHeaderLen    = 8
	tcpHeaderMinLen = 20
)

// decodeTransport reads TCP/UDP ports. Other protocols are left without
// ports and are not an error.
func decodeTransport(frame []byte, off, end int, h *core.Headers) error {
	var need int
	switch h.Protocol {
	case core.ProtoTCP:
		need = tcpHeaderMinLen
	case core.ProtoUDP:
		need = udpHeaderLen
	default:
		return nil
	}

	if !Within(0, end, off, need) {
		return core.ErrMalformedFrame
	}

	h.SrcPort = binary.BigEndian.Uint16(frame[off : off+2])
	h.DstPort = binary.BigEndian.Uint16(frame[off+2 : off+4])
	h.HasPorts = true
	return nil
}
