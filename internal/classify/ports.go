// Package classify maps (protocol, service port) pairs to traffic classes.
package classify

import (
	"fmt"
	"sync/atomic"

	"firestige.xyz/peeracct/internal/core"
)

// PortMap is the control-plane view of the port configuration.
type PortMap struct {
	A uint16 `json:"a" yaml:"a" mapstructure:"a"`
	B uint16 `json:"b" yaml:"b" mapstructure:"b"`
	C uint16 `json:"c" yaml:"c" mapstructure:"c"`
}

// Get returns the port configured for class.
func (m PortMap) Get(class core.Class) uint16 {
	switch class {
	case core.ClassA:
		return m.A
	case core.ClassB:
		return m.B
	case core.ClassC:
		return m.C
	}
	return 0
}

// Ports holds one port per class. Reads are lock-free atomic loads, so a
// frame may see a value from just before or just after an update.
// The zero value has every class unset.
type Ports struct {
	port [core.NumClasses]atomic.Uint32
}

// NewPorts returns a Ports initialised from m.
func NewPorts(m PortMap) *Ports {
	p := &Ports{}
	p.Apply(m)
	return p
}

// Port returns the configured port for class, 0 when unset or unknown.
func (p *Ports) Port(class core.Class) uint16 {
	if int(class) >= core.NumClasses {
		return 0
	}
	return uint16(p.port[class].Load())
}

// Lookup is Port with ErrConfigUnavailable for an unset class.
func (p *Ports) Lookup(class core.Class) (uint16, error) {
	if int(class) >= core.NumClasses {
		return 0, fmt.Errorf("%w: %d", core.ErrUnknownClass, class)
	}
	port := p.Port(class)
	if port == 0 {
		return 0, fmt.Errorf("class %s: %w", class, core.ErrConfigUnavailable)
	}
	return port, nil
}

// Set stores port for class. Port 0 disables the class.
func (p *Ports) Set(class core.Class, port uint16) error {
	if int(class) >= core.NumClasses {
		return fmt.Errorf("%w: %d", core.ErrUnknownClass, class)
	}
	p.port[class].Store(uint32(port))
	return nil
}

// Apply stores every class from m. Classes are updated one at a time; a
// concurrent reader may see a mix of old and new values.
func (p *Ports) Apply(m PortMap) {
	p.port[core.ClassA].Store(uint32(m.A))
	p.port[core.ClassB].Store(uint32(m.B))
	p.port[core.ClassC].Store(uint32(m.C))
}

// Snapshot returns the current configuration.
func (p *Ports) Snapshot() PortMap {
	return PortMap{
		A: p.Port(core.ClassA),
		B: p.Port(core.ClassB),
		C: p.Port(core.ClassC),
	}
}
