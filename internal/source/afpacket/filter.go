// Package afpacket captures frames from a network interface with a
// TPACKET_V3 memory-mapped ring.
package afpacket

import (
	"golang.org/x/net/bpf"
)

const (
	etherTypeOffset = 12
	etherTypeIPv4   = 0x0800
	etherTypeIPv6   = 0x86DD
)

// ipOnlyProgram accepts IPv4 and IPv6 frames, truncated to snapLen, and
// drops everything else in the kernel. Equivalent to "ip or ip6".
func ipOnlyProgram(snapLen int) []bpf.Instruction {
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: etherTypeOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipTrue: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipFalse: 1},
		bpf.RetConstant{Val: uint32(snapLen)},
		bpf.RetConstant{Val: 0},
	}
}

// IPOnlyFilter assembles ipOnlyProgram for SetBPF.
func IPOnlyFilter(snapLen int) ([]bpf.RawInstruction, error) {
	return bpf.Assemble(ipOnlyProgram(snapLen))
}
