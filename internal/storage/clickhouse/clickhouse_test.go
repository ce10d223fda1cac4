package clickhouse

import (
	"testing"
	"time"

	"PcapSpectra/internal/model"

	"github.com/google/uuid"
)

func sampleCapture() *model.Capture {
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	return &model.Capture{
		ID:         uuid.New(),
		Name:       "edge.pcap",
		AnalyzedAt: start.Add(time.Hour),
		Result: &model.Result{
			PacketCount: 12,
			TotalBytes:  5160,
			StartTime:   start,
			EndTime:     start.Add(time.Minute),
			Protocols: []model.ProtocolStat{
				{Protocol: "HTTP", PacketCount: 10, Bytes: 5000, Percentage: 83.3},
				{Protocol: "DNS", PacketCount: 2, Bytes: 160, Percentage: 16.7},
			},
			Flows: []model.FlowSummary{
				{FlowKey: model.FlowKey{SrcIP: "10.0.0.1", SrcPort: 1000, DstIP: "10.0.0.2", DstPort: 80, Protocol: "HTTP"},
					PacketCount: 10, TotalBytes: 5000, StartTime: start, EndTime: start.Add(time.Second)},
				{FlowKey: model.FlowKey{SrcIP: "10.0.0.1", SrcPort: 2000, DstIP: "8.8.8.8", DstPort: 53, Protocol: "DNS"},
					PacketCount: 2, TotalBytes: 160, StartTime: start.Add(time.Minute), EndTime: start.Add(time.Minute)},
			},
		},
	}
}

func TestRows(t *testing.T) {
	c := sampleCapture()

	row := captureRow(c)
	if len(row) != 7 || row[0] != c.ID || row[3] != uint64(12) {
		t.Errorf("Unexpected capture row: %v", row)
	}

	protocols := protocolRows(c)
	if len(protocols) != 2 || protocols[1][1] != "DNS" {
		t.Errorf("Unexpected protocol rows: %v", protocols)
	}

	conversations := conversationRows(c)
	if len(conversations) != 2 || len(conversations[0]) != 10 {
		t.Fatalf("Unexpected conversation rows: %v", conversations)
	}
	if conversations[0][2] != uint16(1000) || conversations[1][5] != "DNS" {
		t.Errorf("Unexpected conversation row values: %v", conversations)
	}
}

// rowsOf converts the insert rows back into scanned records.
func rowsOf(c *model.Capture) ([]captureRecord, []protocolRecord, []conversationRecord) {
	r := captureRow(c)
	captures := []captureRecord{{
		CaptureID: r[0].(uuid.UUID), Name: r[1].(string), AnalyzedAt: r[2].(time.Time),
		PacketCount: r[3].(uint64), TotalBytes: r[4].(uint64), StartTime: r[5].(time.Time), EndTime: r[6].(time.Time),
	}}

	var protocols []protocolRecord
	for _, p := range protocolRows(c) {
		protocols = append(protocols, protocolRecord{
			CaptureID: p[0].(uuid.UUID), Protocol: p[1].(string), PacketCount: p[2].(uint64), Bytes: p[3].(uint64), Percentage: p[4].(float64),
		})
	}

	var conversations []conversationRecord
	rows := conversationRows(c)
	// Storage order is not insertion order.
	for i := len(rows) - 1; i >= 0; i-- {
		f := rows[i]
		conversations = append(conversations, conversationRecord{
			CaptureID: f[0].(uuid.UUID), SrcIP: f[1].(string), SrcPort: f[2].(uint16), DstIP: f[3].(string), DstPort: f[4].(uint16),
			Protocol: f[5].(string), PacketCount: f[6].(uint64), TotalBytes: f[7].(uint64), StartTime: f[8].(time.Time), EndTime: f[9].(time.Time),
		})
	}
	return captures, protocols, conversations
}

func TestAssemble(t *testing.T) {
	c := sampleCapture()
	captures, protocols, conversations := rowsOf(c)

	// Rows of an unknown capture are ignored.
	protocols = append(protocols, protocolRecord{CaptureID: uuid.New(), Protocol: "SSH", PacketCount: 99})

	out := assemble(captures, protocols, conversations)
	if len(out) != 1 {
		t.Fatalf("Expected one capture, got %d", len(out))
	}
	got := out[0]
	if got.ID != c.ID || got.Result.PacketCount != 12 || !got.Result.StartTime.Equal(c.Result.StartTime) {
		t.Errorf("Unexpected capture: %+v", got)
	}
	if len(got.Result.Protocols) != 2 || got.Result.Protocols[0].Protocol != "HTTP" {
		t.Errorf("Unexpected protocols: %+v", got.Result.Protocols)
	}
	if len(got.Result.Flows) != 2 || got.Result.Flows[0].Protocol != "HTTP" || got.Result.Flows[1].FlowKey != c.Result.Flows[1].FlowKey {
		t.Errorf("Flows should be restored in start time order: %+v", got.Result.Flows)
	}
}

func TestAssemble_EmptyCapture(t *testing.T) {
	c := &model.Capture{ID: uuid.New(), Name: "empty.pcap", Result: &model.Result{}}
	captures, protocols, conversations := rowsOf(c)
	if !captures[0].StartTime.Equal(time.Unix(0, 0)) {
		t.Errorf("Empty capture should be stored with an epoch time range, got %v", captures[0].StartTime)
	}

	out := assemble(captures, protocols, conversations)
	if !out[0].Result.StartTime.IsZero() || out[0].Result.Duration() != 0 {
		t.Errorf("Empty capture should keep a zero time range")
	}
	if out[0].Result.Flows == nil || out[0].Result.Protocols == nil {
		t.Errorf("Lists should be empty, not nil")
	}
}
