package peerstats

import (
	"encoding/binary"
	"net/netip"
)

// Key convention, shared by every reader of the tables:
//
//   - IPv4 keys are the address's numeric value with the first octet in the
//     most significant byte, so 10.0.0.1 is 0x0A000001 on any host.
//   - IPv6 keys are the 16 address bytes in wire order.

// Key4 converts an IPv4 address to its table key. a must be IPv4.
func Key4(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

// Addr4 converts a table key back to an address.
func Addr4(k uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], k)
	return netip.AddrFrom4(b)
}

// Key16 converts an IPv6 address to its table key.
func Key16(a netip.Addr) [16]byte {
	return a.As16()
}

// Addr16 converts a table key back to an address.
func Addr16(k [16]byte) netip.Addr {
	return netip.AddrFrom16(k)
}

func hash4(k uint32) uint64 {
	return uint64(k)
}

// hash16 is FNV-1a over the key bytes.
func hash16(k [16]byte) uint64 {
	h := uint64(14695981039346656037)
	for _, b := range k {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}
