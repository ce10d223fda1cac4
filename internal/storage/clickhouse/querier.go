package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

type captureRecord struct {
	CaptureID   uuid.UUID `ch:"CaptureID"`
	Name        string    `ch:"Name"`
	AnalyzedAt  time.Time `ch:"AnalyzedAt"`
	PacketCount uint64    `ch:"PacketCount"`
	TotalBytes  uint64    `ch:"TotalBytes"`
	StartTime   time.Time `ch:"StartTime"`
	EndTime     time.Time `ch:"EndTime"`
}

type protocolRecord struct {
	CaptureID   uuid.UUID `ch:"CaptureID"`
	Protocol    string    `ch:"Protocol"`
	PacketCount uint64    `ch:"PacketCount"`
	Bytes       uint64    `ch:"Bytes"`
	Percentage  float64   `ch:"Percentage"`
}

type conversationRecord struct {
	CaptureID   uuid.UUID `ch:"CaptureID"`
	SrcIP       string    `ch:"SrcIP"`
	SrcPort     uint16    `ch:"SrcPort"`
	DstIP       string    `ch:"DstIP"`
	DstPort     uint16    `ch:"DstPort"`
	Protocol    string    `ch:"Protocol"`
	PacketCount uint64    `ch:"PacketCount"`
	TotalBytes  uint64    `ch:"TotalBytes"`
	StartTime   time.Time `ch:"StartTime"`
	EndTime     time.Time `ch:"EndTime"`
}

// Querier reads captures back from ClickHouse. It implements
// model.CaptureStore.
type Querier struct {
	conn driver.Conn
}

// NewQuerier connects to ClickHouse.
func NewQuerier(ctx context.Context, cfg config.ClickHouseConfig) (*Querier, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &Querier{conn: conn}, nil
}

// List returns every capture with its protocol stats and conversations,
// newest first.
func (q *Querier) List(ctx context.Context) ([]*model.Capture, error) {
	var captures []captureRecord
	if err := q.conn.Select(ctx, &captures, "SELECT * FROM captures FINAL ORDER BY AnalyzedAt DESC"); err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	var protocols []protocolRecord
	if err := q.conn.Select(ctx, &protocols, "SELECT * FROM protocol_stats FINAL"); err != nil {
		return nil, fmt.Errorf("failed to query protocol stats: %w", err)
	}
	var conversations []conversationRecord
	if err := q.conn.Select(ctx, &conversations, "SELECT * FROM conversations FINAL"); err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	return assemble(captures, protocols, conversations), nil
}

// Get returns one capture or an error wrapping model.ErrNotFound.
func (q *Querier) Get(ctx context.Context, id uuid.UUID) (*model.Capture, error) {
	var captures []captureRecord
	if err := q.conn.Select(ctx, &captures, "SELECT * FROM captures FINAL WHERE CaptureID = ?", id); err != nil {
		return nil, fmt.Errorf("failed to query capture: %w", err)
	}
	if len(captures) == 0 {
		return nil, fmt.Errorf("capture %s: %w", id, model.ErrNotFound)
	}
	var protocols []protocolRecord
	if err := q.conn.Select(ctx, &protocols, "SELECT * FROM protocol_stats FINAL WHERE CaptureID = ?", id); err != nil {
		return nil, fmt.Errorf("failed to query protocol stats: %w", err)
	}
	var conversations []conversationRecord
	if err := q.conn.Select(ctx, &conversations, "SELECT * FROM conversations FINAL WHERE CaptureID = ?", id); err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	return assemble(captures, protocols, conversations)[0], nil
}

// Close releases the connection.
func (q *Querier) Close() error {
	return q.conn.Close()
}

// assemble groups rows by capture and restores the in-memory ordering:
// protocols by packet count, flows by start time.
func assemble(captures []captureRecord, protocols []protocolRecord, conversations []conversationRecord) []*model.Capture {
	byID := make(map[uuid.UUID]*model.Capture, len(captures))
	out := make([]*model.Capture, 0, len(captures))
	for _, r := range captures {
		c := &model.Capture{
			ID:         r.CaptureID,
			Name:       r.Name,
			AnalyzedAt: r.AnalyzedAt,
			Result: &model.Result{
				PacketCount: r.PacketCount,
				TotalBytes:  r.TotalBytes,
				Protocols:   []model.ProtocolStat{},
				Flows:       []model.FlowSummary{},
			},
		}
		if r.PacketCount > 0 {
			c.Result.StartTime = r.StartTime
			c.Result.EndTime = r.EndTime
		}
		byID[r.CaptureID] = c
		out = append(out, c)
	}

	for _, r := range protocols {
		if c, ok := byID[r.CaptureID]; ok {
			c.Result.Protocols = append(c.Result.Protocols, model.ProtocolStat{
				Protocol:    r.Protocol,
				PacketCount: r.PacketCount,
				Bytes:       r.Bytes,
				Percentage:  r.Percentage,
			})
		}
	}
	for _, r := range conversations {
		if c, ok := byID[r.CaptureID]; ok {
			c.Result.Flows = append(c.Result.Flows, model.FlowSummary{
				FlowKey: model.FlowKey{
					SrcIP: r.SrcIP, SrcPort: r.SrcPort,
					DstIP: r.DstIP, DstPort: r.DstPort,
					Protocol: r.Protocol,
				},
				PacketCount: r.PacketCount,
				TotalBytes:  r.TotalBytes,
				StartTime:   r.StartTime,
				EndTime:     r.EndTime,
			})
		}
	}

	for _, c := range out {
		stats := c.Result.Protocols
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].PacketCount != stats[j].PacketCount {
				return stats[i].PacketCount > stats[j].PacketCount
			}
			return stats[i].Protocol < stats[j].Protocol
		})
		flows := c.Result.Flows
		sort.SliceStable(flows, func(i, j int) bool {
			return flows[i].StartTime.Before(flows[j].StartTime)
		})
	}
	return out
}
