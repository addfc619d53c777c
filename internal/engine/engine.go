// Package engine implements the ingress and egress path hooks.
//
// A hook parses the frame, classifies it against the port configuration and
// adds the frame length to one counter of the peer's row. Every hook call
// runs to completion on the caller's goroutine, touches only atomics and the
// sharded peer tables, and returns core.VerdictPass no matter what happened.
package engine

import (
	"errors"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/core/decoder"
	"firestige.xyz/peeracct/internal/diag"
	"firestige.xyz/peeracct/internal/peerstats"
)

// Engine wires the hooks to shared state. It is safe for concurrent use by
// any number of goroutines.
type Engine struct {
	ports *classify.Ports
	store *peerstats.Store
	diag  *diag.Sink
}

// New returns an engine over the given state. A nil sink gets a fresh one.
func New(ports *classify.Ports, store *peerstats.Store, sink *diag.Sink) *Engine {
	if sink == nil {
		sink = &diag.Sink{}
	}
	return &Engine{ports: ports, store: store, diag: sink}
}

// Ports returns the port configuration the engine reads.
func (e *Engine) Ports() *classify.Ports { return e.ports }

// Store returns the peer tables.
func (e *Engine) Store() *peerstats.Store { return e.store }

// Diag returns the diagnostics sink.
func (e *Engine) Diag() *diag.Sink { return e.diag }

// Ingress accounts a received frame. n is the valid length of frame.
func (e *Engine) Ingress(frame []byte, n int) core.Verdict {
	e.diag.Inc(diag.EventIngressFrames)
	e.record(e.account(frame, n, core.DirIngress))
	return core.VerdictPass
}

// Egress accounts a frame about to be transmitted. n is the valid length
// of frame.
func (e *Engine) Egress(frame []byte, n int) core.Verdict {
	e.diag.Inc(diag.EventEgressFrames)
	frame = clamp(frame, n)
	e.record(e.account(frame, len(frame), core.DirEgress))

	if src, dst, ok := decoder.IPv4Addrs(frame); ok {
		e.diag.RecordEgress4(src, dst)
	}
	return core.VerdictPass
}

// Hook returns the hook for dir.
func (e *Engine) Hook(dir core.Direction) func(frame []byte, n int) core.Verdict {
	if dir == core.DirEgress {
		return e.Egress
	}
	return e.Ingress
}

func clamp(frame []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if n > len(frame) {
		n = len(frame)
	}
	return frame[:n]
}

// account returns the IP version of a counted frame, or the reason nothing
// was counted.
func (e *Engine) account(frame []byte, n int, dir core.Direction) (uint8, error) {
	frame = clamp(frame, n)

	h, err := decoder.Decode(frame)
	if err != nil {
		return 0, err
	}

	class, ok := classify.Classify(e.ports, &h, dir)
	if !ok {
		return 0, core.ErrUnclassified
	}

	peer := h.SrcIP
	if dir == core.DirEgress {
		peer = h.DstIP
	}
	if err := e.store.Add(peer, class, dir, uint64(len(frame))); err != nil {
		return 0, err
	}
	return h.Version, nil
}

func (e *Engine) record(version uint8, err error) {
	switch {
	case err == nil && version == 4:
		e.diag.Inc(diag.EventAccountedV4)
	case err == nil:
		e.diag.Inc(diag.EventAccountedV6)
	case errors.Is(err, core.ErrMalformedFrame):
		e.diag.Inc(diag.EventMalformed)
	case errors.Is(err, core.ErrNotIP):
		e.diag.Inc(diag.EventNotIP)
	case errors.Is(err, core.ErrUnclassified):
		e.diag.Inc(diag.EventUnclassified)
	case errors.Is(err, core.ErrCapacityExceeded):
		e.diag.Inc(diag.EventCapacityExceeded)
	}
}
