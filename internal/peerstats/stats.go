// Package peerstats holds per-peer byte counters.
//
// Two tables hold the rows: one keyed by IPv4 address, one by IPv6
// address. Rows are created on first use and then only ever incremented
// by the hot path. Removing rows is a control-plane operation.
package peerstats

import (
	"sync/atomic"

	"firestige.xyz/peeracct/internal/core"
)

// numCounters is classes x directions.
const numCounters = core.NumClasses * 2

// counterIndex lays counters out as A-up, A-down, B-up, B-down, C-up, C-down.
func counterIndex(class core.Class, dir core.Direction) int {
	idx := int(class) * 2
	if dir == core.DirIngress {
		idx++
	}
	return idx
}

// Stats is one peer's row. All counters are updated with atomic adds.
type Stats struct {
	c [numCounters]atomic.Uint64
}

// Add adds n bytes to the (class, direction) counter.
func (s *Stats) Add(class core.Class, dir core.Direction, n uint64) {
	if int(class) >= core.NumClasses {
		return
	}
	s.c[counterIndex(class, dir)].Add(n)
}

// Load reads one counter.
func (s *Stats) Load(class core.Class, dir core.Direction) uint64 {
	if int(class) >= core.NumClasses {
		return 0
	}
	return s.c[counterIndex(class, dir)].Load()
}

// Counters copies the row. Each counter is read atomically but the six
// reads are not one snapshot.
func (s *Stats) Counters() Counters {
	return Counters{
		AUp:   s.c[0].Load(),
		ADown: s.c[1].Load(),
		BUp:   s.c[2].Load(),
		BDown: s.c[3].Load(),
		CUp:   s.c[4].Load(),
		CDown: s.c[5].Load(),
	}
}

// Counters is a plain copy of a row.
type Counters struct {
	AUp   uint64 `json:"a_up" yaml:"a_up"`
	ADown uint64 `json:"a_down" yaml:"a_down"`
	BUp   uint64 `json:"b_up" yaml:"b_up"`
	BDown uint64 `json:"b_down" yaml:"b_down"`
	CUp   uint64 `json:"c_up" yaml:"c_up"`
	CDown uint64 `json:"c_down" yaml:"c_down"`
}

// Get returns the (class, direction) counter.
func (c Counters) Get(class core.Class, dir core.Direction) uint64 {
	up := dir == core.DirEgress
	switch class {
	case core.ClassA:
		if up {
			return c.AUp
		}
		return c.ADown
	case core.ClassB:
		if up {
			return c.BUp
		}
		return c.BDown
	case core.ClassC:
		if up {
			return c.CUp
		}
		return c.CDown
	}
	return 0
}

// Total sums all six counters.
func (c Counters) Total() uint64 {
	return c.AUp + c.ADown + c.BUp + c.BDown + c.CUp + c.CDown
}

// IsZero reports whether every counter is zero.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

// Delta returns c - prev per counter. If any counter went backwards the row
// was recreated since prev was taken and c is returned unchanged.
func (c Counters) Delta(prev Counters) Counters {
	if c.AUp < prev.AUp || c.ADown < prev.ADown ||
		c.BUp < prev.BUp || c.BDown < prev.BDown ||
		c.CUp < prev.CUp || c.CDown < prev.CDown {
		return c
	}
	return Counters{
		AUp:   c.AUp - prev.AUp,
		ADown: c.ADown - prev.ADown,
		BUp:   c.BUp - prev.BUp,
		BDown: c.BDown - prev.BDown,
		CUp:   c.CUp - prev.CUp,
		CDown: c.CDown - prev.CDown,
	}
}
