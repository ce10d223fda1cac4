package protocol

import (
	"PcapSpectra/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParsePacket extracts the metadata the engine needs from a decoded packet.
// It never fails: frames without an IPv4 or IPv6 layer come back with
// LayerNone so that they still count towards capture totals.
func ParsePacket(packet gopacket.Packet) *model.PacketRecord {
	rec := &model.PacketRecord{
		Length: len(packet.Data()),
	}

	if meta := packet.Metadata(); meta != nil {
		rec.Timestamp = meta.Timestamp
		// Prefer the on-the-wire length over a truncated snapshot.
		if meta.Length > 0 {
			rec.Length = meta.Length
		}
	}

	// Get IP layer
	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		rec.SrcIP = ip.SrcIP
		rec.DstIP = ip.DstIP
		rec.IPProtocol = uint8(ip.Protocol)
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		rec.SrcIP = ip.SrcIP
		rec.DstIP = ip.DstIP
		rec.IPProtocol = uint8(ip.NextHeader)
	} else {
		rec.Layer = model.LayerNone
		return rec
	}
	rec.Layer = model.LayerIP

	// Get transport layer
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		rec.SrcPort = uint16(tcp.SrcPort)
		rec.DstPort = uint16(tcp.DstPort)
		rec.Layer = model.LayerTCP
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		rec.SrcPort = uint16(udp.SrcPort)
		rec.DstPort = uint16(udp.DstPort)
		rec.Layer = model.LayerUDP
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil || packet.Layer(layers.LayerTypeICMPv6) != nil {
		rec.Layer = model.LayerICMP
	}

	return rec
}
