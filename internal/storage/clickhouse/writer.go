package clickhouse

import (
	"context"
	"fmt"
	"log"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/factory"
	"PcapSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		return NewWriter(context.Background(), def.ClickHouse)
	})
}

// Writer inserts finished captures into the captures, protocol_stats and
// conversations tables. It implements the model.Writer interface.
type Writer struct {
	conn driver.Conn
}

// NewWriter connects to ClickHouse and ensures the tables exist.
func NewWriter(ctx context.Context, cfg config.ClickHouseConfig) (*Writer, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := ensureSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")
	return &Writer{conn: conn}, nil
}

// Name returns the writer type.
func (w *Writer) Name() string {
	return "clickhouse"
}

// Write inserts one capture. Conversations and protocol stats are written
// before the capture row, so a reader that finds the capture finds its rows.
func (w *Writer) Write(ctx context.Context, c *model.Capture) error {
	if err := w.insert(ctx, "INSERT INTO conversations", conversationRows(c)); err != nil {
		return err
	}
	if err := w.insert(ctx, "INSERT INTO protocol_stats", protocolRows(c)); err != nil {
		return err
	}
	if err := w.insert(ctx, "INSERT INTO captures", [][]any{captureRow(c)}); err != nil {
		return err
	}

	log.Printf("Wrote %d conversations to ClickHouse for capture '%s'", len(c.Result.Flows), c.Name)
	return nil
}

// Close releases the connection.
func (w *Writer) Close() error {
	return w.conn.Close()
}

func (w *Writer) insert(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func captureRow(c *model.Capture) []any {
	res := c.Result
	start, end := res.StartTime, res.EndTime
	if res.PacketCount == 0 {
		// DateTime64 cannot hold the zero time.
		start, end = time.Unix(0, 0).UTC(), time.Unix(0, 0).UTC()
	}
	return []any{c.ID, c.Name, c.AnalyzedAt, res.PacketCount, res.TotalBytes, start, end}
}

func protocolRows(c *model.Capture) [][]any {
	rows := make([][]any, 0, len(c.Result.Protocols))
	for _, p := range c.Result.Protocols {
		rows = append(rows, []any{c.ID, p.Protocol, p.PacketCount, p.Bytes, p.Percentage})
	}
	return rows
}

func conversationRows(c *model.Capture) [][]any {
	rows := make([][]any, 0, len(c.Result.Flows))
	for _, f := range c.Result.Flows {
		rows = append(rows, []any{
			c.ID, f.SrcIP, f.SrcPort, f.DstIP, f.DstPort, f.Protocol,
			f.PacketCount, f.TotalBytes, f.StartTime, f.EndTime,
		})
	}
	return rows
}
