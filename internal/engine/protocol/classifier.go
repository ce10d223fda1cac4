package protocol

import (
	"fmt"

	"PcapSpectra/internal/model"

	"github.com/google/gopacket/layers"
)

// Transport and application labels produced by Classify.
const (
	LabelTCP   = "TCP"
	LabelUDP   = "UDP"
	LabelICMP  = "ICMP"
	LabelHTTP  = "HTTP"
	LabelHTTPS = "HTTPS"
	LabelSSH   = "SSH"
	LabelDNS   = "DNS"
)

type portLabel struct {
	port  uint16
	label string
}

// Checked in order; the first port matching on either side wins.
var (
	tcpServices = []portLabel{{80, LabelHTTP}, {443, LabelHTTPS}, {22, LabelSSH}}
	udpServices = []portLabel{{53, LabelDNS}}
)

// Classify returns the protocol label of a packet. An application label
// replaces the transport label when either port is well known. Packets with
// neither TCP, UDP nor ICMP are named after their IP protocol number.
func Classify(rec *model.PacketRecord) string {
	switch rec.Layer {
	case model.LayerTCP:
		return byPort(rec, tcpServices, LabelTCP)
	case model.LayerUDP:
		return byPort(rec, udpServices, LabelUDP)
	case model.LayerICMP:
		return LabelICMP
	default:
		return ipProtocolName(rec.IPProtocol)
	}
}

func byPort(rec *model.PacketRecord, services []portLabel, fallback string) string {
	for _, s := range services {
		if rec.SrcPort == s.port || rec.DstPort == s.port {
			return s.label
		}
	}
	return fallback
}

// ipProtocolName uses gopacket's registry of IP protocol numbers.
func ipProtocolName(proto uint8) string {
	name := layers.IPProtocol(proto).String()
	if name == "" || name == "UnknownIPProtocol" {
		return fmt.Sprintf("IP-%d", proto)
	}
	return name
}
