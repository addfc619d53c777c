// Package decoder implements the L2-L4 parse used by the path hooks.
//
// Decoding is straight-line: Ethernet, then one IP layer, then at most one
// transport header. Each layer bounds-checks its own extent against the
// captured end before reading, since its offset is only known after the
// previous layer is parsed. Nothing here allocates.
package decoder

import "firestige.xyz/peeracct/internal/core"

// Decode parses frame and returns the fields the classifier needs.
//
// Errors are core.ErrMalformedFrame when any header extent runs past the
// captured data and core.ErrNotIP for non IP ethertypes. A frame carrying a
// protocol other than TCP or UDP decodes without error and HasPorts unset.
func Decode(frame []byte) (core.Headers, error) {
	var h core.Headers
	end := len(frame)

	etherType, off, err := decodeEthernet(frame, end)
	if err != nil {
		return h, err
	}

	switch etherType {
	case etherTypeIPv4:
		off, err = decodeIPv4(frame, off, end, &h)
	case etherTypeIPv6:
		off, err = decodeIPv6(frame, off, end, &h)
	default:
		return h, core.ErrNotIP
	}
	if err != nil {
		return core.Headers{}, err
	}

	if err := decodeTransport(frame, off, end, &h); err != nil {
		return core.Headers{}, err
	}
	return h, nil
}
