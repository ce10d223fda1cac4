package snapshot

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/factory"
	"PcapSpectra/internal/model"
)

const (
	captureFile = "capture.gob"
	summaryFile = "summary.json"
)

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		if def.Gob.RootPath == "" {
			return nil, fmt.Errorf("gob writer requires a root_path")
		}
		return NewWriter(def.Gob.RootPath), nil
	})
}

// SummaryData is the human-readable sidecar written next to each snapshot.
type SummaryData struct {
	CaptureID    string               `json:"capture_id"`
	Name         string               `json:"name"`
	AnalyzedAt   string               `json:"analyzed_at"`
	TotalPackets uint64               `json:"total_packets"`
	TotalBytes   uint64               `json:"total_bytes"`
	TotalFlows   int                  `json:"total_flows"`
	StartTime    string               `json:"start_time,omitempty"`
	EndTime      string               `json:"end_time,omitempty"`
	Protocols    []model.ProtocolStat `json:"protocols"`
}

// Writer persists finished captures to disk, one directory per capture.
// It implements the model.Writer interface.
type Writer struct {
	rootPath string
}

// NewWriter creates a new snapshot writer rooted at rootPath.
func NewWriter(rootPath string) *Writer {
	return &Writer{rootPath: rootPath}
}

// Name returns the writer type.
func (w *Writer) Name() string {
	return "gob"
}

// Write stores the capture as <root>/<id>/capture.gob plus a summary.json.
// The gob file is written under a temporary name and renamed into place, so
// Load never sees a partial snapshot.
func (w *Writer) Write(ctx context.Context, capture *model.Capture) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	captureDir := filepath.Join(w.rootPath, capture.ID.String())
	if err := os.MkdirAll(captureDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := writeGob(filepath.Join(captureDir, captureFile), capture); err != nil {
		return err
	}

	res := capture.Result
	summary := SummaryData{
		CaptureID:    capture.ID.String(),
		Name:         capture.Name,
		AnalyzedAt:   capture.AnalyzedAt.UTC().Format(time.RFC3339),
		TotalPackets: res.PacketCount,
		TotalBytes:   res.TotalBytes,
		TotalFlows:   len(res.Flows),
		Protocols:    res.Protocols,
	}
	if res.PacketCount > 0 {
		summary.StartTime = res.StartTime.UTC().Format(time.RFC3339Nano)
		summary.EndTime = res.EndTime.UTC().Format(time.RFC3339Nano)
	}

	if err := writeSummary(filepath.Join(captureDir, summaryFile), summary); err != nil {
		return err
	}

	log.Printf("Wrote snapshot of capture '%s' (%d flows) to %s", capture.Name, len(res.Flows), captureDir)
	return nil
}

func writeSummary(path string, summary SummaryData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}

	jsonEncoder := json.NewEncoder(f)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close summary file '%s': %w", path, err)
	}
	return nil
}

func writeGob(path string, capture *model.Capture) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", tmp, err)
	}

	if err := gob.NewEncoder(file).Encode(capture); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode capture to gob for file '%s': %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot file '%s': %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
