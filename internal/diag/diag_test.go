package diag

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkSlotsOverwrite(t *testing.T) {
	var s Sink

	s.RecordEgress4(0x0A000001, 0x0A000002)
	s.RecordEgress4(0xC0A80001, 0x08080808)

	snap := s.Snapshot()
	assert.Equal(t, netip.MustParseAddr("192.168.0.1"), snap.LastSrc4)
	assert.Equal(t, netip.MustParseAddr("8.8.8.8"), snap.LastDst4)
}

func TestSinkEvents(t *testing.T) {
	var s Sink

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Inc(EventMalformed)
			}
		}()
	}
	wg.Wait()
	s.Inc(Event(200))

	assert.Equal(t, uint64(1000), s.Count(EventMalformed))
	assert.Equal(t, uint64(0), s.Count(Event(200)))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1000), snap.Events["malformed"])
	assert.Len(t, snap.Events, len(Events()))
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "capacity_exceeded", EventCapacityExceeded.String())
	assert.Equal(t, "event(99)", Event(99).String())
}
