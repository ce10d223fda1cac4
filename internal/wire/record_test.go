package wire

import (
	"errors"
	"net"
	"testing"
	"time"

	"PcapSpectra/internal/model"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  *model.PacketRecord
	}{
		{"ipv4 tcp", &model.PacketRecord{
			Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 123456789, time.UTC),
			Length:    1514, SrcIP: net.ParseIP("10.1.2.3"), DstIP: net.ParseIP("10.3.2.1"),
			SrcPort: 443, DstPort: 50123, IPProtocol: 6, Layer: model.LayerTCP,
		}},
		{"ipv6 icmp", &model.PacketRecord{
			Timestamp: time.Date(2024, 6, 1, 10, 0, 1, 0, time.UTC),
			Length:    118, SrcIP: net.ParseIP("fe80::1"), DstIP: net.ParseIP("fe80::2"),
			IPProtocol: 58, Layer: model.LayerICMP,
		}},
		{"non ip", &model.PacketRecord{
			Timestamp: time.Date(2024, 6, 1, 10, 0, 2, 0, time.UTC),
			Length:    60,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalRecord(MarshalRecord(nil, tt.rec))
			if err != nil {
				t.Fatalf("UnmarshalRecord failed: %v", err)
			}
			if !got.Timestamp.Equal(tt.rec.Timestamp) {
				t.Errorf("Timestamp: got %v, want %v", got.Timestamp, tt.rec.Timestamp)
			}
			if got.Length != tt.rec.Length || got.SrcPort != tt.rec.SrcPort || got.DstPort != tt.rec.DstPort ||
				got.IPProtocol != tt.rec.IPProtocol || got.Layer != tt.rec.Layer {
				t.Errorf("Scalar fields differ: got %+v, want %+v", got, tt.rec)
			}
			if !got.SrcIP.Equal(tt.rec.SrcIP) || !got.DstIP.Equal(tt.rec.DstIP) {
				t.Errorf("Addresses differ: got %v->%v, want %v->%v", got.SrcIP, got.DstIP, tt.rec.SrcIP, tt.rec.DstIP)
			}
		})
	}
}

func TestUnmarshalRecord_SkipsUnknownFields(t *testing.T) {
	b := protowire.AppendTag(nil, 42, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	b = MarshalRecord(b, &model.PacketRecord{Length: 99, Layer: model.LayerUDP})

	rec, err := UnmarshalRecord(b)
	if err != nil {
		t.Fatalf("UnmarshalRecord failed: %v", err)
	}
	if rec.Length != 99 || rec.Layer != model.LayerUDP {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestUnmarshalRecord_Malformed(t *testing.T) {
	good := MarshalRecord(nil, &model.PacketRecord{Length: 1500, SrcIP: net.ParseIP("1.2.3.4")})

	badAddr := protowire.AppendTag(nil, fieldSrcIP, protowire.BytesType)
	badAddr = protowire.AppendBytes(badAddr, []byte{1, 2, 3})

	for name, b := range map[string][]byte{
		"truncated":   good[:len(good)-1],
		"bad tag":     {0xff},
		"bad address": badAddr,
	} {
		if _, err := UnmarshalRecord(b); !errors.Is(err, model.ErrDecodeFailure) {
			t.Errorf("%s: expected ErrDecodeFailure, got %v", name, err)
		}
	}
}
