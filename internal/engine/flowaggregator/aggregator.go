package flowaggregator

import (
	"sort"

	"PcapSpectra/internal/model"
)

// Aggregator maintains one FlowSummary per conversation of a single capture.
// It is owned by exactly one analysis and is not safe for concurrent use.
type Aggregator struct {
	flows map[model.FlowKey]*model.FlowSummary
}

// New creates an empty flow aggregator.
func New() *Aggregator {
	return &Aggregator{flows: make(map[model.FlowKey]*model.FlowSummary)}
}

// Observe attributes one packet to its conversation, creating the summary on
// first sight. EndTime never moves backwards, so out-of-order timestamps are
// tolerated.
func (a *Aggregator) Observe(rec *model.PacketRecord, protocolLabel string) {
	key := CanonicalKey(rec, protocolLabel)

	flow, ok := a.flows[key]
	if !ok {
		flow = &model.FlowSummary{
			FlowKey:   key,
			StartTime: rec.Timestamp,
			EndTime:   rec.Timestamp,
		}
		a.flows[key] = flow
	}

	flow.PacketCount++
	flow.TotalBytes += uint64(rec.Length)
	if rec.Timestamp.After(flow.EndTime) {
		flow.EndTime = rec.Timestamp
	}
	if rec.Timestamp.Before(flow.StartTime) {
		flow.StartTime = rec.Timestamp
	}
}

// Len returns the number of conversations seen so far.
func (a *Aggregator) Len() int {
	return len(a.flows)
}

// Finalize returns every conversation ordered by start time and releases the
// aggregator's table. The aggregator must not be used afterwards.
func (a *Aggregator) Finalize() []model.FlowSummary {
	flows := make([]model.FlowSummary, 0, len(a.flows))
	for _, flow := range a.flows {
		flows = append(flows, *flow)
	}
	a.flows = nil

	sort.Slice(flows, func(i, j int) bool {
		return lessFlow(&flows[i], &flows[j])
	})
	return flows
}

// lessFlow orders flows by start time, then by key, so output is stable.
func lessFlow(a, b *model.FlowSummary) bool {
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	if a.SrcIP != b.SrcIP {
		return a.SrcIP < b.SrcIP
	}
	if a.SrcPort != b.SrcPort {
		return a.SrcPort < b.SrcPort
	}
	if a.DstIP != b.DstIP {
		return a.DstIP < b.DstIP
	}
	if a.DstPort != b.DstPort {
		return a.DstPort < b.DstPort
	}
	return a.Protocol < b.Protocol
}
