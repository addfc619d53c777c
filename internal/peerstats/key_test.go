package peerstats

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey4IsNumericValue(t *testing.T) {
	assert.Equal(t, uint32(0x0A000001), Key4(netip.MustParseAddr("10.0.0.1")))
	assert.Equal(t, uint32(0xC0A80102), Key4(netip.MustParseAddr("192.168.1.2")))
	assert.Equal(t, uint32(0xFFFFFFFF), Key4(netip.MustParseAddr("255.255.255.255")))
}

func TestKey4RoundTrip(t *testing.T) {
	for _, s := range []string{"0.0.0.0", "1.2.3.4", "203.0.113.200"} {
		a := netip.MustParseAddr(s)
		assert.Equal(t, a, Addr4(Key4(a)))
	}
}

func TestKey16IsWireOrder(t *testing.T) {
	k := Key16(netip.MustParseAddr("2001:db8::1"))
	assert.Equal(t, byte(0x20), k[0])
	assert.Equal(t, byte(0x01), k[1])
	assert.Equal(t, byte(0x0d), k[2])
	assert.Equal(t, byte(0xb8), k[3])
	assert.Equal(t, byte(0x01), k[15])
	assert.Equal(t, netip.MustParseAddr("2001:db8::1"), Addr16(k))
}

func TestHash16Spreads(t *testing.T) {
	a := hash16(Key16(netip.MustParseAddr("fd00::1")))
	b := hash16(Key16(netip.MustParseAddr("fd00::2")))
	assert.NotEqual(t, a, b)
}
