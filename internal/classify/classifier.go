package classify

import "firestige.xyz/peeracct/internal/core"

// ServicePort selects the port that identifies the local service: the
// source port when the host sends (egress), the destination port when it
// receives (ingress).
func ServicePort(dir core.Direction, srcPort, dstPort uint16) uint16 {
	if dir == core.DirEgress {
		return srcPort
	}
	return dstPort
}

// Classify resolves a parsed frame to a class. TCP may match A or B, UDP
// only C. A port of 0 never matches, so an unset class is disabled.
func Classify(p *Ports, h *core.Headers, dir core.Direction) (core.Class, bool) {
	if !h.HasPorts {
		return 0, false
	}
	port := ServicePort(dir, h.SrcPort, h.DstPort)
	if port == 0 {
		return 0, false
	}

	switch h.Protocol {
	case core.ProtoTCP:
		if port == p.Port(core.ClassA) {
			return core.ClassA, true
		}
		if port == p.Port(core.ClassB) {
			return core.ClassB, true
		}
	case core.ProtoUDP:
		if port == p.Port(core.ClassC) {
			return core.ClassC, true
		}
	}
	return 0, false
}
