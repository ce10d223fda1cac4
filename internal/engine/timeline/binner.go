package timeline

import (
	"fmt"
	"log"
	"math"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"
)

// Request describes one timeline query over a finalized flow set.
type Request struct {
	// Start is inclusive, End is exclusive.
	Start time.Time
	End   time.Time
	// IntervalSeconds is the requested bin width and must be positive.
	IntervalSeconds int64
	// MaxBins overrides the configured budget when positive.
	MaxBins int
	// AutoAdjust overrides the configured auto-adjust flag when set.
	AutoAdjust *bool
}

// Binner distributes flows into fixed-width time bins. It holds only
// configuration, so one Binner can serve concurrent requests.
type Binner struct {
	maxBins     int
	minInterval int64
	autoAdjust  bool
}

// NewBinner creates a Binner with the configured defaults.
func NewBinner(cfg config.AnalysisConfig) *Binner {
	return &Binner{
		maxBins:     cfg.MaxTimelineDataPoints,
		minInterval: int64(cfg.MinTimelineInterval),
		autoAdjust:  cfg.AutoAdjustInterval,
	}
}

// EffectiveInterval returns the bin width to use for a range of
// durationSeconds. When auto-adjusting and the requested width would produce
// more than maxBins bins, the width is widened to the smallest value that
// fits, but never below minInterval. The result always fits in an int32.
func EffectiveInterval(durationSeconds, requested int64, maxBins int, minInterval int64, autoAdjust bool) int64 {
	interval := requested
	if autoAdjust && maxBins > 0 && ceilDiv(durationSeconds, requested) > int64(maxBins) {
		interval = ceilDiv(durationSeconds, int64(maxBins))
		if interval < minInterval {
			interval = minInterval
		}
	}
	if interval > math.MaxInt32 {
		interval = math.MaxInt32
	}
	return interval
}

// Compute partitions [req.Start, req.End) into bins and attributes every flow
// to the bin holding its start time. All bins are returned in time order,
// empty ones included. Flows starting before req.Start are skipped; flows
// starting at or after the last boundary land in the last bin.
//
// A flow spanning several bins is counted entirely in its first bin.
func (b *Binner) Compute(flows []model.FlowSummary, req Request) ([]model.TimeBin, error) {
	if req.IntervalSeconds <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %d", model.ErrInvalidArgument, req.IntervalSeconds)
	}
	if !req.Start.Before(req.End) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", model.ErrInvalidArgument,
			req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339))
	}

	maxBins := b.maxBins
	if req.MaxBins > 0 {
		maxBins = req.MaxBins
	}
	autoAdjust := b.autoAdjust
	if req.AutoAdjust != nil {
		autoAdjust = *req.AutoAdjust
	}

	durationSeconds := ceilDiv(int64(req.End.Sub(req.Start)), int64(time.Second))
	interval := EffectiveInterval(durationSeconds, req.IntervalSeconds, maxBins, b.minInterval, autoAdjust)
	if interval != req.IntervalSeconds {
		log.Printf("Timeline auto-adjusted: duration=%ds, requestedInterval=%ds, adjustedInterval=%ds, limit=%d",
			durationSeconds, req.IntervalSeconds, interval, maxBins)
	}

	binCount := ceilDiv(durationSeconds, interval)
	if binCount > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d bins of %ds exceed the supported bin count", model.ErrInvalidArgument, binCount, interval)
	}

	step := time.Duration(interval) * time.Second
	bins := make([]model.TimeBin, 0, binCount)
	for ts := req.Start; ts.Before(req.End); ts = ts.Add(step) {
		bins = append(bins, model.TimeBin{Timestamp: ts, Protocols: make(map[string]uint64)})
	}

	last := int64(len(bins) - 1)
	for i := range flows {
		flow := &flows[i]
		offset := flow.StartTime.Sub(req.Start)
		if offset < 0 {
			continue
		}
		idx := int64(offset / step)
		if idx > last {
			idx = last
		}

		bin := &bins[idx]
		bin.PacketCount += flow.PacketCount
		bin.Bytes += flow.TotalBytes
		bin.Protocols[flow.Protocol] += flow.PacketCount
	}

	return bins, nil
}

// ForCapture bins a capture's flows. A zero Start or End falls back to the
// capture's own first or last packet time. Without an explicit range, a
// capture with no flows or zero duration yields no bins. With an explicit
// range only flows overlapping it are considered.
func (b *Binner) ForCapture(res *model.Result, req Request) ([]model.TimeBin, error) {
	if req.IntervalSeconds <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %d", model.ErrInvalidArgument, req.IntervalSeconds)
	}

	explicit := !req.Start.IsZero() || !req.End.IsZero()
	if req.Start.IsZero() {
		req.Start = res.StartTime
	}
	if req.End.IsZero() {
		req.End = res.EndTime
	}

	if !explicit {
		if len(res.Flows) == 0 || !req.Start.Before(req.End) {
			return []model.TimeBin{}, nil
		}
		return b.Compute(res.Flows, req)
	}
	return b.Compute(Overlapping(res.Flows, req.Start, req.End), req)
}

// Overlapping returns the flows active at some point in [start, end].
func Overlapping(flows []model.FlowSummary, start, end time.Time) []model.FlowSummary {
	out := make([]model.FlowSummary, 0, len(flows))
	for _, f := range flows {
		if !f.EndTime.Before(start) && !f.StartTime.After(end) {
			out = append(out, f)
		}
	}
	return out
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
