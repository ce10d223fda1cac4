package report

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/engine/timeline"
	"PcapSpectra/internal/factory"
	"PcapSpectra/internal/model"
)

func init() {
	factory.RegisterWriter("report", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		if def.Report.RootPath == "" {
			return nil, fmt.Errorf("report writer requires a root_path")
		}
		return NewWriter(def.Report.RootPath, cfg.Analysis), nil
	})
}

// Writer stores a Markdown and an HTML report per capture.
type Writer struct {
	rootPath string
	binner   *timeline.Binner
	analysis config.AnalysisConfig
}

// NewWriter creates a report writer.
func NewWriter(rootPath string, analysis config.AnalysisConfig) *Writer {
	return &Writer{
		rootPath: rootPath,
		binner:   timeline.NewBinner(analysis),
		analysis: analysis,
	}
}

// Name returns the writer type.
func (w *Writer) Name() string {
	return "report"
}

// Render builds the Markdown report of a capture, including its timeline at
// the default interval.
func (w *Writer) Render(c *model.Capture) ([]byte, error) {
	opts := Options{TopConversations: w.analysis.TopConversations}
	bins, err := w.binner.ForCapture(c.Result, timeline.Request{IntervalSeconds: int64(w.analysis.DefaultTimelineInterval)})
	if err != nil {
		return nil, err
	}
	opts.Timeline = bins
	if len(bins) > 1 {
		opts.TimelineInterval = bins[1].Timestamp.Sub(bins[0].Timestamp)
	} else {
		opts.TimelineInterval = time.Duration(w.analysis.DefaultTimelineInterval) * time.Second
	}
	return Markdown(c, opts), nil
}

// Write renders the capture to <root>/<id>.md and <root>/<id>.html.
func (w *Writer) Write(ctx context.Context, c *model.Capture) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	md, err := w.Render(c)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.MkdirAll(w.rootPath, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	base := filepath.Join(w.rootPath, c.ID.String())
	if err := os.WriteFile(base+".md", md, 0644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	if err := os.WriteFile(base+".html", HTML("Traffic report: "+c.Name, md), 0644); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}

	log.Printf("Wrote report for capture '%s' to %s.html", c.Name, base)
	return nil
}
