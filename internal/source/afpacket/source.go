//go:build linux

package afpacket

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"

	"firestige.xyz/peeracct/internal/config"
	"firestige.xyz/peeracct/internal/source"
)

// Source is a live capture on one interface.
type Source struct {
	handle *afpacket.TPacket
	iface  *net.Interface
}

// Open creates the ring on cfg.Interface, joins the fanout group if one is
// configured and attaches the IP-only filter.
func Open(cfg config.CaptureConfig) (*Source, error) {
	iface, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", cfg.Interface, err)
	}

	frameSize, blockSize, numBlocks, err := ringLayout(cfg.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(cfg.Timeout()),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("open tpacket on %s: %w", cfg.Interface, err)
	}

	if cfg.FanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, uint16(cfg.FanoutID)); err != nil {
			tp.Close()
			return nil, fmt.Errorf("set fanout %d: %w", cfg.FanoutID, err)
		}
	}

	filter, err := IPOnlyFilter(cfg.SnapLen)
	if err != nil {
		tp.Close()
		return nil, fmt.Errorf("assemble filter: %w", err)
	}
	if err := tp.SetBPF(filter); err != nil {
		tp.Close()
		return nil, fmt.Errorf("attach filter: %w", err)
	}

	slog.Info("afpacket source opened",
		"interface", cfg.Interface,
		"mac", iface.HardwareAddr.String(),
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks,
		"fanout_id", cfg.FanoutID,
	)
	return &Source{handle: tp, iface: iface}, nil
}

// ReadPacketData implements source.Source. The returned slice is only valid
// until the next call.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	if errors.Is(err, afpacket.ErrTimeout) {
		return nil, ci, source.ErrTimeout
	}
	return data, ci, err
}

// HardwareAddr returns the capture interface's MAC.
func (s *Source) HardwareAddr() net.HardwareAddr {
	return s.iface.HardwareAddr
}

// Stats returns kernel ring counters.
func (s *Source) Stats() (packets, drops uint, err error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return 0, 0, err
	}
	return v3.Packets(), v3.Drops(), nil
}

// Close releases the ring.
func (s *Source) Close() error {
	s.handle.Close()
	return nil
}
