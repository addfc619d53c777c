package peerstats

import (
	"fmt"
	"net/netip"
	"sort"

	"firestige.xyz/peeracct/internal/core"
)

// Store is the pair of per-family peer tables.
type Store struct {
	V4 *Table[uint32]
	V6 *Table[[16]byte]
}

// NewStore returns an empty store. Capacities <= 0 mean DefaultCapacity.
func NewStore(capacityV4, capacityV6 int) *Store {
	return &Store{
		V4: NewTable[uint32](capacityV4, hash4),
		V6: NewTable[[16]byte](capacityV6, hash16),
	}
}

// Row returns the row for peer, creating it if needed.
func (s *Store) Row(peer netip.Addr) (*Stats, error) {
	switch {
	case peer.Is4():
		return s.V4.GetOrInsert(Key4(peer))
	case peer.Is6():
		return s.V6.GetOrInsert(Key16(peer))
	default:
		return nil, core.ErrInvalidAddress
	}
}

// Add adds n bytes to peer's (class, direction) counter, creating the row
// on first use.
func (s *Store) Add(peer netip.Addr, class core.Class, dir core.Direction, n uint64) error {
	row, err := s.Row(peer)
	if err != nil {
		return err
	}
	row.Add(class, dir, n)
	return nil
}

// Lookup returns peer's counters without creating a row.
func (s *Store) Lookup(peer netip.Addr) (Counters, bool) {
	var row *Stats
	switch {
	case peer.Is4():
		row = s.V4.Lookup(Key4(peer))
	case peer.Is6():
		row = s.V6.Lookup(Key16(peer))
	}
	if row == nil {
		return Counters{}, false
	}
	return row.Counters(), true
}

// Delete removes peer's row.
func (s *Store) Delete(peer netip.Addr) error {
	var ok bool
	switch {
	case peer.Is4():
		ok = s.V4.Delete(Key4(peer))
	case peer.Is6():
		ok = s.V6.Delete(Key16(peer))
	default:
		return core.ErrInvalidAddress
	}
	if !ok {
		return fmt.Errorf("%s: %w", peer, core.ErrPeerNotFound)
	}
	return nil
}

// Clear empties both tables.
func (s *Store) Clear() int {
	return s.V4.Clear() + s.V6.Clear()
}

// PeerRecord is one row as read out by the control plane.
type PeerRecord struct {
	Peer     netip.Addr `json:"peer" yaml:"peer"`
	Counters `yaml:",inline"`
}

// Family returns "ipv4" or "ipv6".
func (r PeerRecord) Family() string {
	if r.Peer.Is4() {
		return "ipv4"
	}
	return "ipv6"
}

// Snapshot copies every row, IPv4 first, each family in address order.
func (s *Store) Snapshot() []PeerRecord {
	out := make([]PeerRecord, 0, s.V4.Len()+s.V6.Len())

	s.V4.Range(func(k uint32, row *Stats) bool {
		out = append(out, PeerRecord{Peer: Addr4(k), Counters: row.Counters()})
		return true
	})
	s.V6.Range(func(k [16]byte, row *Stats) bool {
		out = append(out, PeerRecord{Peer: Addr16(k), Counters: row.Counters()})
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		return out[i].Peer.Less(out[j].Peer)
	})
	return out
}

// Occupancy reports table fill levels.
type Occupancy struct {
	V4Entries  int `json:"v4_entries" yaml:"v4_entries"`
	V4Capacity int `json:"v4_capacity" yaml:"v4_capacity"`
	V6Entries  int `json:"v6_entries" yaml:"v6_entries"`
	V6Capacity int `json:"v6_capacity" yaml:"v6_capacity"`
}

// Occupancy returns the current fill levels.
func (s *Store) Occupancy() Occupancy {
	return Occupancy{
		V4Entries:  s.V4.Len(),
		V4Capacity: s.V4.Cap(),
		V6Entries:  s.V6.Len(),
		V6Capacity: s.V6.Cap(),
	}
}
