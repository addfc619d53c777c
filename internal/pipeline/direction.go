package pipeline

import (
	"net"

	"firestige.xyz/peeracct/internal/core"
)

// DirectionFunc tells which hook a captured frame belongs to.
type DirectionFunc func(frame []byte) core.Direction

// ByLocalMAC marks frames sent from one of macs as egress. Frames too short
// to carry a source MAC are ingress.
func ByLocalMAC(macs ...net.HardwareAddr) DirectionFunc {
	local := make(map[[6]byte]struct{}, len(macs))
	for _, mac := range macs {
		if len(mac) != 6 {
			continue
		}
		local[[6]byte(mac)] = struct{}{}
	}
	return func(frame []byte) core.Direction {
		if len(frame) < 12 {
			return core.DirIngress
		}
		if _, ok := local[[6]byte(frame[6:12])]; ok {
			return core.DirEgress
		}
		return core.DirIngress
	}
}
