// Package clickhouse persists finished captures to ClickHouse and reads them
// back for the query service.
package clickhouse

import (
	"context"
	"fmt"

	"PcapSpectra/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS captures (
    CaptureID   UUID,
    Name        String,
    AnalyzedAt  DateTime64(3),
    PacketCount UInt64,
    TotalBytes  UInt64,
    StartTime   DateTime64(9),
    EndTime     DateTime64(9)
) ENGINE = ReplacingMergeTree()
ORDER BY CaptureID`,
	`CREATE TABLE IF NOT EXISTS protocol_stats (
    CaptureID   UUID,
    Protocol    String,
    PacketCount UInt64,
    Bytes       UInt64,
    Percentage  Float64
) ENGINE = ReplacingMergeTree()
ORDER BY (CaptureID, Protocol)`,
	`CREATE TABLE IF NOT EXISTS conversations (
    CaptureID   UUID,
    SrcIP       String,
    SrcPort     UInt16,
    DstIP       String,
    DstPort     UInt16,
    Protocol    String,
    PacketCount UInt64,
    TotalBytes  UInt64,
    StartTime   DateTime64(9),
    EndTime     DateTime64(9)
) ENGINE = ReplacingMergeTree()
ORDER BY (CaptureID, SrcIP, SrcPort, DstIP, DstPort, Protocol)`,
}

func connect(ctx context.Context, cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func ensureSchema(ctx context.Context, conn driver.Conn) error {
	for _, stmt := range schema {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}
