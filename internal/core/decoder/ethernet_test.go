package decoder

import (
	"errors"
	"testing"

	"firestige.xyz/peeracct/internal/core"
)

func TestDecodeEthernetBasic(t *testing.T) {
	data := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // Dst MAC
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // Src MAC
		0x08, 0x00, // EtherType: IPv4
		0x45, 0x00, // start of IP header
	}

	etherType, off, err := decodeEthernet(data, len(data))
	if err != nil {
		t.Fatalf("decodeEthernet failed: %v", err)
	}
	if etherType != 0x0800 {
		t.Errorf("Expected EtherType 0x0800, got 0x%04x", etherType)
	}
	if off != 14 {
		t.Errorf("Expected L3 offset 14, got %d", off)
	}
}

func TestDecodeEthernetVLANNotWalked(t *testing.T) {
	data := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
		0x81, 0x00, // EtherType: VLAN
		0x00, 0x0A, // TCI
		0x08, 0x00, // inner EtherType: IPv4
	}

	etherType, _, err := decodeEthernet(data, len(data))
	if err != nil {
		t.Fatalf("decodeEthernet failed: %v", err)
	}
	if etherType != 0x8100 {
		t.Errorf("Expected outer EtherType 0x8100, got 0x%04x", etherType)
	}
}

func TestDecodeEthernetTooShort(t *testing.T) {
	data := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x08}

	_, _, err := decodeEthernet(data, len(data))
	if !errors.Is(err, core.ErrMalformedFrame) {
		t.Errorf("Expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeEthernetRespectsEnd(t *testing.T) {
	// Buffer is long enough but the valid end says otherwise.
	data := make([]byte, 64)

	_, _, err := decodeEthernet(data, 10)
	if !errors.Is(err, core.ErrMalformedFrame) {
		t.Errorf("Expected ErrMalformedFrame, got %v", err)
	}
}
