// Package api exposes finished captures over HTTP and gRPC.
package api

import (
	"context"
	"fmt"
	"time"

	"PcapSpectra/internal/assembler"
	"PcapSpectra/internal/config"
	"PcapSpectra/internal/engine/timeline"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/report"

	"github.com/google/uuid"
)

// Service holds the query logic shared by the HTTP and gRPC surfaces.
type Service struct {
	store    model.CaptureStore
	binner   *timeline.Binner
	reports  *report.Writer
	analysis config.AnalysisConfig
}

// NewService creates a Service over a capture store.
func NewService(store model.CaptureStore, analysis config.AnalysisConfig) *Service {
	return &Service{
		store:    store,
		binner:   timeline.NewBinner(analysis),
		reports:  report.NewWriter("", analysis),
		analysis: analysis,
	}
}

// CaptureInfo is the list entry of a capture.
type CaptureInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"fileName"`
	AnalyzedAt  time.Time `json:"analyzedAt"`
	PacketCount uint64    `json:"packetCount"`
	TotalBytes  uint64    `json:"totalBytes"`
	FlowCount   int       `json:"flowCount"`
}

// TimelineQuery selects a timeline. Zero Start and End cover the whole
// capture; a nil IntervalSeconds uses the configured default.
type TimelineQuery struct {
	IntervalSeconds *int64
	MaxDataPoints   int
	AutoAdjust      *bool
	Start           time.Time
	End             time.Time
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid capture id %q", model.ErrInvalidArgument, id)
	}
	return parsed, nil
}

func (s *Service) capture(ctx context.Context, id string) (*model.Capture, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, parsed)
}

// List returns every capture, newest first.
func (s *Service) List(ctx context.Context) ([]CaptureInfo, error) {
	captures, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CaptureInfo, 0, len(captures))
	for _, c := range captures {
		out = append(out, CaptureInfo{
			ID:          c.ID.String(),
			Name:        c.Name,
			AnalyzedAt:  c.AnalyzedAt,
			PacketCount: c.Result.PacketCount,
			TotalBytes:  c.Result.TotalBytes,
			FlowCount:   len(c.Result.Flows),
		})
	}
	return out, nil
}

// Summary returns the overview of a capture. A topN of zero or less uses the
// configured default.
func (s *Service) Summary(ctx context.Context, id string, topN int) (*assembler.Summary, error) {
	c, err := s.capture(ctx, id)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = s.analysis.TopConversations
	}
	return assembler.Summarize(c, topN), nil
}

// Protocols returns the protocol distribution of a capture.
func (s *Service) Protocols(ctx context.Context, id string) ([]model.ProtocolStat, error) {
	c, err := s.capture(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Result.Protocols == nil {
		return []model.ProtocolStat{}, nil
	}
	return c.Result.Protocols, nil
}

// Conversations returns one page of a capture's conversations.
func (s *Service) Conversations(ctx context.Context, id string, page, size int) (assembler.Page[assembler.Conversation], error) {
	c, err := s.capture(ctx, id)
	if err != nil {
		return assembler.Page[assembler.Conversation]{}, err
	}
	return assembler.Paginate(assembler.Conversations(c.ID, c.Result.Flows), page, size), nil
}

// Timeline bins a capture's flows.
func (s *Service) Timeline(ctx context.Context, id string, q TimelineQuery) ([]model.TimeBin, error) {
	c, err := s.capture(ctx, id)
	if err != nil {
		return nil, err
	}
	interval := int64(s.analysis.DefaultTimelineInterval)
	if q.IntervalSeconds != nil {
		interval = *q.IntervalSeconds
	}
	if q.MaxDataPoints < 0 {
		return nil, fmt.Errorf("%w: maxDataPoints must not be negative", model.ErrInvalidArgument)
	}
	return s.binner.ForCapture(c.Result, timeline.Request{
		Start:           q.Start,
		End:             q.End,
		IntervalSeconds: interval,
		MaxBins:         q.MaxDataPoints,
		AutoAdjust:      q.AutoAdjust,
	})
}

// Report renders the Markdown report of a capture.
func (s *Service) Report(ctx context.Context, id string) (*model.Capture, []byte, error) {
	c, err := s.capture(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	md, err := s.reports.Render(c)
	if err != nil {
		return nil, nil, err
	}
	return c, md, nil
}
