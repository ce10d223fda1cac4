package model

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// LayerTag tells which headers the decoder found above the link layer.
type LayerTag uint8

const (
	// LayerNone marks a frame without an IP layer (ARP, LLDP, ...).
	LayerNone LayerTag = iota
	// LayerIP marks an IP packet whose transport is not TCP, UDP or ICMP.
	LayerIP
	LayerTCP
	LayerUDP
	LayerICMP
)

func (t LayerTag) String() string {
	switch t {
	case LayerNone:
		return "none"
	case LayerIP:
		return "ip"
	case LayerTCP:
		return "tcp"
	case LayerUDP:
		return "udp"
	case LayerICMP:
		return "icmp"
	default:
		return "unknown"
	}
}

// HasIP reports whether the record carries network-layer addresses.
func (t LayerTag) HasIP() bool {
	return t != LayerNone
}

// PacketRecord holds the metadata extracted from a single decoded packet.
// Ports are zero when the transport carries none.
type PacketRecord struct {
	Timestamp  time.Time
	Length     int
	SrcIP      net.IP
	DstIP      net.IP
	SrcPort    uint16
	DstPort    uint16
	IPProtocol uint8
	Layer      LayerTag
}

// FlowKey identifies one bidirectional conversation. Keys produced by
// flowaggregator.CanonicalKey are already ordered, so equal conversations
// compare equal with ==.
type FlowKey struct {
	SrcIP    string
	SrcPort  uint16
	DstIP    string
	DstPort  uint16
	Protocol string
}

// FlowSummary is the running aggregate of one conversation.
type FlowSummary struct {
	FlowKey
	PacketCount uint64
	TotalBytes  uint64
	StartTime   time.Time
	EndTime     time.Time
}

// Duration returns the time between the first and the last packet.
func (f FlowSummary) Duration() time.Duration {
	return f.EndTime.Sub(f.StartTime)
}

// ProtocolCounter is the running packet and byte count of one protocol label.
type ProtocolCounter struct {
	Protocol    string
	PacketCount uint64
	Bytes       uint64
}

// ProtocolStat is a ProtocolCounter read against a packet total.
type ProtocolStat struct {
	Protocol    string  `json:"protocol"`
	PacketCount uint64  `json:"packetCount"`
	Bytes       uint64  `json:"bytes"`
	Percentage  float64 `json:"percentage"`
}

// TimeBin covers [Timestamp, Timestamp+interval). Protocols maps a protocol
// label to the packets of the flows that started inside the bin.
type TimeBin struct {
	Timestamp   time.Time         `json:"timestamp"`
	PacketCount uint64            `json:"packetCount"`
	Bytes       uint64            `json:"bytes"`
	Protocols   map[string]uint64 `json:"protocols"`
}

// Result is the output of one streaming pass over a capture.
// StartTime and EndTime are zero when the capture held no packets.
type Result struct {
	PacketCount uint64
	TotalBytes  uint64
	StartTime   time.Time
	EndTime     time.Time
	Protocols   []ProtocolStat
	Flows       []FlowSummary
}

// Duration returns the span between the first and the last packet.
func (r *Result) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Capture is a finished, immutable analysis of one packet stream.
type Capture struct {
	ID         uuid.UUID
	Name       string
	AnalyzedAt time.Time
	Result     *Result
}
