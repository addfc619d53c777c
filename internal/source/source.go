// Package source provides the frame sources feeding the capture pipeline.
package source

import (
	"errors"

	"github.com/google/gopacket"
)

// ErrTimeout is returned by live sources when no frame arrived within the
// poll interval.
var ErrTimeout = errors.New("source: read timeout")

// Source yields raw Ethernet frames. ReadPacketData returns io.EOF when a
// finite source is exhausted.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close() error
}
