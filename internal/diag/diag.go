// Package diag keeps the diagnostics written by the path hooks: the last
// egress IPv4 address pair and a handful of event counters. Nothing in the
// accounting path reads them back.
package diag

import (
	"fmt"
	"net/netip"
	"sync/atomic"
)

// Event indexes an auxiliary counter.
type Event uint8

const (
	EventIngressFrames Event = iota
	EventEgressFrames
	EventNotIP
	EventMalformed
	EventUnclassified
	EventCapacityExceeded
	EventAccountedV4
	EventAccountedV6

	numEvents
)

var eventNames = [numEvents]string{
	"ingress_frames",
	"egress_frames",
	"not_ip",
	"malformed",
	"unclassified",
	"capacity_exceeded",
	"accounted_v4",
	"accounted_v6",
}

func (e Event) String() string {
	if e < numEvents {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

// Events lists every event in index order.
func Events() []Event {
	out := make([]Event, numEvents)
	for i := range out {
		out[i] = Event(i)
	}
	return out
}

// Sink holds the slots and counters. The zero value is ready to use.
type Sink struct {
	lastSrc4 atomic.Uint32
	lastDst4 atomic.Uint32
	events   [numEvents]atomic.Uint64
}

// Inc bumps one event counter.
func (s *Sink) Inc(e Event) {
	if e < numEvents {
		s.events[e].Add(1)
	}
}

// Count reads one event counter.
func (s *Sink) Count(e Event) uint64 {
	if e < numEvents {
		return s.events[e].Load()
	}
	return 0
}

// RecordEgress4 overwrites both slots. src and dst use the peer table key
// convention (first octet most significant). The two stores are separate,
// so a reader may see a pair from two different frames.
func (s *Sink) RecordEgress4(src, dst uint32) {
	s.lastSrc4.Store(src)
	s.lastDst4.Store(dst)
}

// Snapshot is a read-out of the sink.
type Snapshot struct {
	LastSrc4 netip.Addr        `json:"last_src4" yaml:"last_src4"`
	LastDst4 netip.Addr        `json:"last_dst4" yaml:"last_dst4"`
	Events   map[string]uint64 `json:"events" yaml:"events"`
}

// Snapshot copies the current state.
func (s *Sink) Snapshot() Snapshot {
	snap := Snapshot{
		LastSrc4: addr4(s.lastSrc4.Load()),
		LastDst4: addr4(s.lastDst4.Load()),
		Events:   make(map[string]uint64, numEvents),
	}
	for i := Event(0); i < numEvents; i++ {
		snap.Events[i.String()] = s.events[i].Load()
	}
	return snap
}

func addr4(k uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(k >> 24), byte(k >> 16), byte(k >> 8), byte(k)})
}
