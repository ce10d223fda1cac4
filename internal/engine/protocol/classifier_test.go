package protocol

import (
	"testing"

	"PcapSpectra/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rec  model.PacketRecord
		want string
	}{
		{"plain tcp", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 40000, DstPort: 8080}, LabelTCP},
		{"http to server", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 40000, DstPort: 80}, LabelHTTP},
		{"http from server", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 80, DstPort: 40000}, LabelHTTP},
		{"https to server", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 40000, DstPort: 443}, LabelHTTPS},
		{"https from server", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 443, DstPort: 40000}, LabelHTTPS},
		{"ssh", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 22, DstPort: 40000}, LabelSSH},
		{"http wins over https", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 443, DstPort: 80}, LabelHTTP},
		{"https wins over ssh", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 22, DstPort: 443}, LabelHTTPS},
		{"plain udp", model.PacketRecord{Layer: model.LayerUDP, SrcPort: 5000, DstPort: 5001}, LabelUDP},
		{"dns query", model.PacketRecord{Layer: model.LayerUDP, SrcPort: 5000, DstPort: 53}, LabelDNS},
		{"dns answer", model.PacketRecord{Layer: model.LayerUDP, SrcPort: 53, DstPort: 5000}, LabelDNS},
		{"udp on port 80 is not http", model.PacketRecord{Layer: model.LayerUDP, SrcPort: 80, DstPort: 5000}, LabelUDP},
		{"tcp on port 53 is not dns", model.PacketRecord{Layer: model.LayerTCP, SrcPort: 53, DstPort: 5000}, LabelTCP},
		{"icmp", model.PacketRecord{Layer: model.LayerICMP}, LabelICMP},
		{"igmp", model.PacketRecord{Layer: model.LayerIP, IPProtocol: 2}, "IGMP"},
		{"esp", model.PacketRecord{Layer: model.LayerIP, IPProtocol: 50}, "ESP"},
		{"gre", model.PacketRecord{Layer: model.LayerIP, IPProtocol: 47}, "GRE"},
		{"unregistered number", model.PacketRecord{Layer: model.LayerIP, IPProtocol: 253}, "IP-253"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.rec); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
