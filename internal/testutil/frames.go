// Package testutil builds Ethernet frames for tests.
package testutil

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Default MACs used by Frame. LocalMAC is the "host" side.
var (
	LocalMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	RemoteMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// FrameSpec describes a TCP or UDP frame.
type FrameSpec struct {
	SrcMAC, DstMAC   net.HardwareAddr
	Src, Dst         netip.Addr
	Protocol         layers.IPProtocol // TCP or UDP
	SrcPort, DstPort uint16
	// Length is the total frame length; the payload is padded to reach it.
	// Zero means headers only.
	Length int
}

// Frame serialises spec with gopacket. It panics on invalid input.
func Frame(spec FrameSpec) []byte {
	if spec.SrcMAC == nil {
		spec.SrcMAC = RemoteMAC
	}
	if spec.DstMAC == nil {
		spec.DstMAC = LocalMAC
	}

	eth := &layers.Ethernet{SrcMAC: spec.SrcMAC, DstMAC: spec.DstMAC}
	var network gopacket.NetworkLayer
	var l3 gopacket.SerializableLayer
	headerLen := 14

	if spec.Src.Is4() {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: spec.Protocol,
			SrcIP:    net.IP(spec.Src.AsSlice()),
			DstIP:    net.IP(spec.Dst.AsSlice()),
		}
		network, l3 = ip, ip
		headerLen += 20
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: spec.Protocol,
			SrcIP:      net.IP(spec.Src.AsSlice()),
			DstIP:      net.IP(spec.Dst.AsSlice()),
		}
		network, l3 = ip, ip
		headerLen += 40
	}

	var l4 gopacket.SerializableLayer
	switch spec.Protocol {
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(spec.SrcPort),
			DstPort: layers.TCPPort(spec.DstPort),
			ACK:     true,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(network); err != nil {
			panic(err)
		}
		l4 = tcp
		headerLen += 20
	case layers.IPProtocolUDP:
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(spec.SrcPort),
			DstPort: layers.UDPPort(spec.DstPort),
		}
		if err := udp.SetNetworkLayerForChecksum(network); err != nil {
			panic(err)
		}
		l4 = udp
		headerLen += 8
	default:
		panic("testutil: unsupported protocol " + spec.Protocol.String())
	}

	payload := 0
	if spec.Length > headerLen {
		payload = spec.Length - headerLen
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, l3, l4, gopacket.Payload(make([]byte, payload))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TCP4 is a shorthand for an IPv4 TCP frame from src to dst.
func TCP4(src, dst string, sport, dport uint16, length int) []byte {
	return Frame(FrameSpec{
		Src: netip.MustParseAddr(src), Dst: netip.MustParseAddr(dst),
		Protocol: layers.IPProtocolTCP, SrcPort: sport, DstPort: dport, Length: length,
	})
}

// UDP4 is a shorthand for an IPv4 UDP frame from src to dst.
func UDP4(src, dst string, sport, dport uint16, length int) []byte {
	return Frame(FrameSpec{
		Src: netip.MustParseAddr(src), Dst: netip.MustParseAddr(dst),
		Protocol: layers.IPProtocolUDP, SrcPort: sport, DstPort: dport, Length: length,
	})
}

// TCP6 is a shorthand for an IPv6 TCP frame from src to dst.
func TCP6(src, dst string, sport, dport uint16, length int) []byte {
	return Frame(FrameSpec{
		Src: netip.MustParseAddr(src), Dst: netip.MustParseAddr(dst),
		Protocol: layers.IPProtocolTCP, SrcPort: sport, DstPort: dport, Length: length,
	})
}

// UDP6 is a shorthand for an IPv6 UDP frame from src to dst.
func UDP6(src, dst string, sport, dport uint16, length int) []byte {
	return Frame(FrameSpec{
		Src: netip.MustParseAddr(src), Dst: netip.MustParseAddr(dst),
		Protocol: layers.IPProtocolUDP, SrcPort: sport, DstPort: dport, Length: length,
	})
}
