// Package core defines sentinel errors.
package core

import "errors"

// Frame outcomes. None of these reach a hook caller; each maps to a
// diagnostics counter.
var (
	// ErrMalformedFrame is returned when a header extent falls outside the
	// captured buffer at any layer.
	ErrMalformedFrame = errors.New("peeracct: malformed frame")

	// ErrNotIP is returned for link ethertypes other than IPv4 and IPv6.
	ErrNotIP = errors.New("peeracct: not an ip frame")

	// ErrUnclassified is returned when a fully parsed frame matches no class.
	ErrUnclassified = errors.New("peeracct: unclassified traffic")

	// ErrCapacityExceeded is returned when a new peer cannot be inserted
	// because its table is full.
	ErrCapacityExceeded = errors.New("peeracct: peer table capacity exceeded")

	// ErrConfigUnavailable is returned when a class has no configured port.
	ErrConfigUnavailable = errors.New("peeracct: class has no configured port")
)

// Control plane errors.
var (
	ErrUnknownClass     = errors.New("peeracct: unknown traffic class")
	ErrInvalidAddress   = errors.New("peeracct: invalid peer address")
	ErrPeerNotFound     = errors.New("peeracct: peer not found")
	ErrConfigInvalid    = errors.New("peeracct: invalid configuration")
	ErrDaemonNotRunning = errors.New("peeracct: daemon not running")
)
