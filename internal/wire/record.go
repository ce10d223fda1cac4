// Package wire encodes PacketRecords in protobuf wire format for the
// packet stream between ns-probe and ns-engine.
package wire

import (
	"fmt"
	"net"
	"time"

	"PcapSpectra/internal/model"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the PacketRecord message:
//
//	message PacketRecord {
//	  int64  seconds     = 1;
//	  int32  nanos       = 2;
//	  uint32 length      = 3;
//	  bytes  src_ip      = 4;
//	  bytes  dst_ip      = 5;
//	  uint32 src_port    = 6;
//	  uint32 dst_port    = 7;
//	  uint32 ip_protocol = 8;
//	  uint32 layer       = 9;
//	}
const (
	fieldSeconds    protowire.Number = 1
	fieldNanos      protowire.Number = 2
	fieldLength     protowire.Number = 3
	fieldSrcIP      protowire.Number = 4
	fieldDstIP      protowire.Number = 5
	fieldSrcPort    protowire.Number = 6
	fieldDstPort    protowire.Number = 7
	fieldIPProtocol protowire.Number = 8
	fieldLayer      protowire.Number = 9
)

// MarshalRecord appends the encoding of rec to b. Zero-valued fields are
// omitted.
func MarshalRecord(b []byte, rec *model.PacketRecord) []byte {
	if !rec.Timestamp.IsZero() {
		b = appendVarint(b, fieldSeconds, uint64(rec.Timestamp.Unix()))
		b = appendVarint(b, fieldNanos, uint64(rec.Timestamp.Nanosecond()))
	}
	b = appendVarint(b, fieldLength, uint64(rec.Length))
	b = appendIP(b, fieldSrcIP, rec.SrcIP)
	b = appendIP(b, fieldDstIP, rec.DstIP)
	b = appendVarint(b, fieldSrcPort, uint64(rec.SrcPort))
	b = appendVarint(b, fieldDstPort, uint64(rec.DstPort))
	b = appendVarint(b, fieldIPProtocol, uint64(rec.IPProtocol))
	b = appendVarint(b, fieldLayer, uint64(rec.Layer))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendIP(b []byte, num protowire.Number, ip net.IP) []byte {
	if len(ip) == 0 {
		return b
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, ip)
}

// UnmarshalRecord decodes one record. Unknown fields are skipped; malformed
// input yields an error wrapping model.ErrDecodeFailure.
func UnmarshalRecord(b []byte) (*model.PacketRecord, error) {
	rec := &model.PacketRecord{}
	var seconds, nanos uint64
	var hasTime bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num != fieldSrcIP && num != fieldDstIP:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeError(n)
			}
			b = b[n:]
			switch num {
			case fieldSeconds:
				seconds, hasTime = v, true
			case fieldNanos:
				nanos, hasTime = v, true
			case fieldLength:
				rec.Length = int(v)
			case fieldSrcPort:
				rec.SrcPort = uint16(v)
			case fieldDstPort:
				rec.DstPort = uint16(v)
			case fieldIPProtocol:
				rec.IPProtocol = uint8(v)
			case fieldLayer:
				rec.Layer = model.LayerTag(v)
			}
		case typ == protowire.BytesType && (num == fieldSrcIP || num == fieldDstIP):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeError(n)
			}
			b = b[n:]
			if len(v) != net.IPv4len && len(v) != net.IPv6len {
				return nil, fmt.Errorf("%w: address of %d bytes", model.ErrDecodeFailure, len(v))
			}
			ip := append(net.IP(nil), v...)
			if num == fieldSrcIP {
				rec.SrcIP = ip
			} else {
				rec.DstIP = ip
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, decodeError(n)
			}
			b = b[n:]
		}
	}

	if hasTime {
		rec.Timestamp = time.Unix(int64(seconds), int64(nanos)).UTC()
	}
	return rec, nil
}

func decodeError(n int) error {
	return fmt.Errorf("%w: %v", model.ErrDecodeFailure, protowire.ParseError(n))
}
