package flowaggregator

import "PcapSpectra/internal/model"

// CanonicalKey returns the direction-free key of the conversation a packet
// belongs to. The endpoint with the lexically smaller address is placed
// first; when both addresses are equal the smaller port goes first. A packet
// and its reply therefore always map to the same key.
func CanonicalKey(rec *model.PacketRecord, protocolLabel string) model.FlowKey {
	srcIP, dstIP := rec.SrcIP.String(), rec.DstIP.String()
	srcPort, dstPort := rec.SrcPort, rec.DstPort

	if srcIP > dstIP || (srcIP == dstIP && srcPort > dstPort) {
		srcIP, dstIP = dstIP, srcIP
		srcPort, dstPort = dstPort, srcPort
	}

	return model.FlowKey{
		SrcIP:    srcIP,
		SrcPort:  srcPort,
		DstIP:    dstIP,
		DstPort:  dstPort,
		Protocol: protocolLabel,
	}
}
