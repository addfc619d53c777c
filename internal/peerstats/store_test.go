package peerstats

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/peeracct/internal/core"
)

func TestStoreAddSelectsOneCounter(t *testing.T) {
	s := NewStore(0, 0)
	peer := netip.MustParseAddr("198.51.100.7")

	require.NoError(t, s.Add(peer, core.ClassA, core.DirEgress, 1514))

	c, ok := s.Lookup(peer)
	require.True(t, ok)
	assert.Equal(t, Counters{AUp: 1514}, c)
	assert.Equal(t, 1, s.V4.Len())
	assert.Equal(t, 0, s.V6.Len())
}

func TestStoreFamilies(t *testing.T) {
	s := NewStore(0, 0)
	v6 := netip.MustParseAddr("2001:db8::7")

	require.NoError(t, s.Add(v6, core.ClassC, core.DirIngress, 1200))

	c, ok := s.Lookup(v6)
	require.True(t, ok)
	assert.Equal(t, uint64(1200), c.CDown)
	assert.Equal(t, 0, s.V4.Len())
	assert.Equal(t, 1, s.V6.Len())

	assert.ErrorIs(t, s.Add(netip.Addr{}, core.ClassA, core.DirEgress, 1), core.ErrInvalidAddress)
}

func TestStoreCapacityDropsOnlyNewPeers(t *testing.T) {
	s := NewStore(1, 1)
	old := netip.MustParseAddr("10.0.0.1")
	fresh := netip.MustParseAddr("10.0.0.2")

	require.NoError(t, s.Add(old, core.ClassA, core.DirIngress, 10))
	assert.ErrorIs(t, s.Add(fresh, core.ClassA, core.DirIngress, 10), core.ErrCapacityExceeded)
	require.NoError(t, s.Add(old, core.ClassA, core.DirIngress, 5))

	c, _ := s.Lookup(old)
	assert.Equal(t, uint64(15), c.ADown)
	_, ok := s.Lookup(fresh)
	assert.False(t, ok)
}

func TestStoreConcurrentAddsAreNotLost(t *testing.T) {
	s := NewStore(0, 0)
	peer := netip.MustParseAddr("192.0.2.1")
	require.NoError(t, s.Add(peer, core.ClassA, core.DirEgress, 7))

	var wg sync.WaitGroup
	for _, n := range []uint64{1514, 60} {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			_ = s.Add(peer, core.ClassA, core.DirEgress, n)
		}(n)
	}
	wg.Wait()

	c, _ := s.Lookup(peer)
	assert.Equal(t, uint64(7+1514+60), c.AUp)
}

func TestStoreSnapshotOrder(t *testing.T) {
	s := NewStore(0, 0)
	_ = s.Add(netip.MustParseAddr("fd00::1"), core.ClassB, core.DirEgress, 1)
	_ = s.Add(netip.MustParseAddr("10.0.0.9"), core.ClassA, core.DirEgress, 2)
	_ = s.Add(netip.MustParseAddr("10.0.0.3"), core.ClassC, core.DirIngress, 3)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "10.0.0.3", snap[0].Peer.String())
	assert.Equal(t, "10.0.0.9", snap[1].Peer.String())
	assert.Equal(t, "fd00::1", snap[2].Peer.String())
	assert.Equal(t, "ipv6", snap[2].Family())
	assert.Equal(t, uint64(3), snap[0].CDown)
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := NewStore(0, 0)
	a := netip.MustParseAddr("10.1.1.1")
	_ = s.Add(a, core.ClassA, core.DirEgress, 1)
	_ = s.Add(netip.MustParseAddr("fd00::5"), core.ClassA, core.DirEgress, 1)

	require.NoError(t, s.Delete(a))
	assert.ErrorIs(t, s.Delete(a), core.ErrPeerNotFound)
	assert.Equal(t, 1, s.Clear())
	assert.Equal(t, Occupancy{V4Capacity: DefaultCapacity, V6Capacity: DefaultCapacity}, s.Occupancy())
}

func TestCountersDelta(t *testing.T) {
	prev := Counters{AUp: 10, CDown: 5}
	cur := Counters{AUp: 15, CDown: 5, BUp: 1}
	assert.Equal(t, Counters{AUp: 5, BUp: 1}, cur.Delta(prev))

	// Recreated row: counters went backwards.
	assert.Equal(t, Counters{AUp: 3}, Counters{AUp: 3}.Delta(prev))
}

func TestCountersGet(t *testing.T) {
	c := Counters{AUp: 1, ADown: 2, BUp: 3, BDown: 4, CUp: 5, CDown: 6}
	assert.Equal(t, uint64(1), c.Get(core.ClassA, core.DirEgress))
	assert.Equal(t, uint64(2), c.Get(core.ClassA, core.DirIngress))
	assert.Equal(t, uint64(4), c.Get(core.ClassB, core.DirIngress))
	assert.Equal(t, uint64(5), c.Get(core.ClassC, core.DirEgress))
	assert.Equal(t, uint64(21), c.Total())
}
