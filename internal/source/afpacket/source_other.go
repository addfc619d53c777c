//go:build !linux

package afpacket

import (
	"errors"
	"net"

	"github.com/google/gopacket"

	"firestige.xyz/peeracct/internal/config"
)

// Source is unavailable outside Linux.
type Source struct{}

// Open always fails outside Linux.
func Open(config.CaptureConfig) (*Source, error) {
	return nil, errors.New("afpacket capture requires linux")
}

func (*Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return nil, gopacket.CaptureInfo{}, errors.New("afpacket capture requires linux")
}

func (*Source) HardwareAddr() net.HardwareAddr { return nil }

func (*Source) Stats() (packets, drops uint, err error) { return 0, 0, nil }

func (*Source) Close() error { return nil }
