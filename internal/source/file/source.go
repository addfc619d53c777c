// Package file replays frames from a pcap or pcapng capture file.
package file

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var ngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source reads frames from a capture file until io.EOF.
type Source struct {
	path   string
	f      *os.File
	reader packetReader
}

// Open opens path. Only Ethernet captures are accepted.
func Open(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture header %s: %w", path, err)
	}

	var r packetReader
	if bytes.Equal(magic, ngMagic) {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse capture file %s: %w", path, err)
	}

	if lt := r.LinkType(); lt != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("capture file %s: unsupported link type %s", path, lt)
	}

	return &Source{path: path, f: f, reader: r}, nil
}

// ReadPacketData implements source.Source.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return s.reader.ReadPacketData()
}

// Path returns the file being replayed.
func (s *Source) Path() string {
	return s.path
}

// Close closes the file.
func (s *Source) Close() error {
	return s.f.Close()
}
