// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net/netip"
	"strings"
)

// IP protocol numbers the engine understands.
const (
	ProtoTCP uint8 = 6
	ProtoUDP uint8 = 17
)

// Direction is the path a frame was observed on.
type Direction uint8

const (
	// DirIngress: frame received by the local host.
	DirIngress Direction = iota
	// DirEgress: frame about to be transmitted by the local host.
	DirEgress
)

func (d Direction) String() string {
	switch d {
	case DirIngress:
		return "ingress"
	case DirEgress:
		return "egress"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Flow returns "up" for egress (host to peer) and "down" for ingress.
func (d Direction) Flow() string {
	if d == DirEgress {
		return "up"
	}
	return "down"
}

// Verdict is what a path hook tells the forwarding path.
type Verdict uint8

// VerdictPass lets the frame continue unmodified. It is the only verdict.
const VerdictPass Verdict = 0

func (v Verdict) String() string {
	if v == VerdictPass {
		return "pass"
	}
	return fmt.Sprintf("verdict(%d)", uint8(v))
}

// Class identifies a monitored service.
type Class uint8

const (
	ClassA Class = iota // TCP, request/response control service
	ClassB              // TCP, multiplexed stream service
	ClassC              // UDP, datagram service

	NumClasses = 3
)

// Classes lists every class in counter order.
var Classes = [NumClasses]Class{ClassA, ClassB, ClassC}

func (c Class) String() string {
	switch c {
	case ClassA:
		return "a"
	case ClassB:
		return "b"
	case ClassC:
		return "c"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Protocol returns the only transport protocol a class can match.
func (c Class) Protocol() uint8 {
	if c == ClassC {
		return ProtoUDP
	}
	return ProtoTCP
}

// ParseClass accepts "a", "b", "c" in any case.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return ClassA, nil
	case "b":
		return ClassB, nil
	case "c":
		return ClassC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownClass, s)
	}
}

// Headers holds the fields read from one frame. It lives on the caller's
// stack for the duration of a single hook invocation.
type Headers struct {
	Version  uint8 // 4 or 6
	Protocol uint8
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	HasPorts bool // false for non TCP/UDP protocols
}
