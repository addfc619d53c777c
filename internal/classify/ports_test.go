package classify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/peeracct/internal/core"
)

func TestPortsZeroValueUnset(t *testing.T) {
	var p Ports

	for _, c := range core.Classes {
		assert.Equal(t, uint16(0), p.Port(c))
		_, err := p.Lookup(c)
		assert.ErrorIs(t, err, core.ErrConfigUnavailable)
	}
}

func TestPortsSetAndSnapshot(t *testing.T) {
	p := NewPorts(PortMap{A: 9981, B: 9984, C: 9984})

	port, err := p.Lookup(core.ClassA)
	require.NoError(t, err)
	assert.Equal(t, uint16(9981), port)

	require.NoError(t, p.Set(core.ClassB, 0))
	_, err = p.Lookup(core.ClassB)
	assert.ErrorIs(t, err, core.ErrConfigUnavailable)

	assert.Equal(t, PortMap{A: 9981, B: 0, C: 9984}, p.Snapshot())
}

func TestPortsUnknownClass(t *testing.T) {
	p := NewPorts(PortMap{A: 1, B: 2, C: 3})

	assert.ErrorIs(t, p.Set(core.Class(7), 80), core.ErrUnknownClass)
	_, err := p.Lookup(core.Class(7))
	assert.ErrorIs(t, err, core.ErrUnknownClass)
	assert.Equal(t, uint16(0), p.Port(core.Class(7)))
}

func TestPortMapGet(t *testing.T) {
	m := PortMap{A: 1, B: 2, C: 3}
	assert.Equal(t, uint16(1), m.Get(core.ClassA))
	assert.Equal(t, uint16(2), m.Get(core.ClassB))
	assert.Equal(t, uint16(3), m.Get(core.ClassC))
	assert.Equal(t, uint16(0), m.Get(core.Class(9)))
}

func TestPortsConcurrentReadersSeeOldOrNew(t *testing.T) {
	p := NewPorts(PortMap{A: 1000})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v := p.Port(core.ClassA)
				if v != 1000 && v != 2000 {
					t.Errorf("unexpected port %d", v)
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			_ = p.Set(core.ClassA, 2000)
		} else {
			_ = p.Set(core.ClassA, 1000)
		}
	}
	close(stop)
	wg.Wait()
}
