// Package packet provides TCP stream identification from raw captured frames.
//
// A StreamID is the standard 5-tuple (source IP, destination IP, source port,
// destination port, protocol) and uniquely identifies one TCP connection's
// traffic. Frames arrive in two framings depending on the capture backend:
// Ethernet frames (libpcap/Npcap) and raw IP packets (some Windows drivers).
// Parsing tries the Ethernet framing first and falls back to inspecting the
// IP version nibble directly.
//
// There is no real TCP stack here: no reordering, no retransmission handling,
// no sequence tracking. Parse only identifies the connection and slices out
// the TCP payload so the stream buffer can accumulate it.
package packet

import (
	"encoding/binary"
	"net/netip"
)

const (
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD
	protoTCP      = 6

	etherHeaderLen = 14
	ipv4MinHeader  = 20
	ipv6HeaderLen  = 40
	tcpMinHeader   = 20
)

// StreamID identifies a TCP connection by its 5-tuple. netip.Addr keeps the
// two address families distinct under comparison, so the struct is directly
// usable as a map key.
type StreamID struct {
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// FromFrame parses a StreamID from one raw captured frame. It returns false
// for anything that is not a well-formed TCP/IP frame in a supported framing;
// malformed frames are expected and are not an error.
func FromFrame(frame []byte) (StreamID, bool) {
	id, _, ok := Parse(frame)
	return id, ok
}

// Parse identifies the connection a frame belongs to and returns its TCP
// payload. The payload may be empty (pure ACKs); it is nil when the TCP
// data offset runs past the captured bytes.
func Parse(frame []byte) (StreamID, []byte, bool) {
	if id, payload, ok := parseEthernetFrame(frame); ok {
		return id, payload, true
	}
	return parseIPPacket(frame)
}

// parseEthernetFrame parses a frame with a 14-byte Ethernet header
// (6 bytes dst MAC, 6 bytes src MAC, 2 bytes EtherType).
func parseEthernetFrame(frame []byte) (StreamID, []byte, bool) {
	if len(frame) < etherHeaderLen {
		return StreamID{}, nil, false
	}

	ethertype := binary.BigEndian.Uint16(frame[12:14])
	ipPacket := frame[etherHeaderLen:]

	switch ethertype {
	case etherTypeIPv4:
		return parseIPv4Packet(ipPacket)
	case etherTypeIPv6:
		return parseIPv6Packet(ipPacket)
	default:
		return StreamID{}, nil, false
	}
}

// parseIPPacket parses a frame that starts directly at the network layer,
// dispatching on the IP version nibble.
func parseIPPacket(packet []byte) (StreamID, []byte, bool) {
	if len(packet) == 0 {
		return StreamID{}, nil, false
	}

	switch packet[0] >> 4 {
	case 4:
		return parseIPv4Packet(packet)
	case 6:
		return parseIPv6Packet(packet)
	default:
		return StreamID{}, nil, false
	}
}

func parseIPv4Packet(packet []byte) (StreamID, []byte, bool) {
	if len(packet) < ipv4MinHeader {
		return StreamID{}, nil, false
	}

	if packet[9] != protoTCP {
		return StreamID{}, nil, false
	}

	// Header length from the IHL nibble, in 32-bit words
	ihl := int(packet[0]&0x0F) * 4
	if len(packet) < ihl+tcpMinHeader {
		// Not enough data for IP header + TCP header
		return StreamID{}, nil, false
	}

	id := StreamID{
		SrcIP:    netip.AddrFrom4([4]byte(packet[12:16])),
		DstIP:    netip.AddrFrom4([4]byte(packet[16:20])),
		Protocol: protoTCP,
	}
	return finishTCP(id, packet[ihl:])
}

func parseIPv6Packet(packet []byte) (StreamID, []byte, bool) {
	if len(packet) < ipv6HeaderLen {
		return StreamID{}, nil, false
	}

	// Next-header must be TCP directly after the fixed header. Extension
	// headers are not walked; traffic carrying them is silently missed.
	nextHeader := packet[6]
	if nextHeader != protoTCP {
		return StreamID{}, nil, false
	}

	id := StreamID{
		SrcIP:    netip.AddrFrom16([16]byte(packet[8:24])),
		DstIP:    netip.AddrFrom16([16]byte(packet[24:40])),
		Protocol: nextHeader,
	}
	return finishTCP(id, packet[ipv6HeaderLen:])
}

// finishTCP reads the ports and slices the payload past the TCP data offset
func finishTCP(id StreamID, tcpHeader []byte) (StreamID, []byte, bool) {
	if len(tcpHeader) < 4 {
		return StreamID{}, nil, false
	}
	id.SrcPort = binary.BigEndian.Uint16(tcpHeader[0:2])
	id.DstPort = binary.BigEndian.Uint16(tcpHeader[2:4])

	var payload []byte
	if len(tcpHeader) >= 13 {
		dataOffset := int(tcpHeader[12]>>4) * 4
		if dataOffset >= tcpMinHeader && dataOffset <= len(tcpHeader) {
			payload = tcpHeader[dataOffset:]
		}
	}
	return id, payload, true
}
