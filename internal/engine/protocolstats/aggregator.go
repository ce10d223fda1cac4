package protocolstats

import (
	"sort"

	"PcapSpectra/internal/model"
)

// Aggregator keeps running packet and byte counters per protocol label for a
// single capture. It is not safe for concurrent use.
type Aggregator struct {
	counters map[string]*model.ProtocolCounter
}

// New creates an empty protocol aggregator.
func New() *Aggregator {
	return &Aggregator{counters: make(map[string]*model.ProtocolCounter)}
}

// Observe counts one packet of the given size against a label.
func (a *Aggregator) Observe(protocolLabel string, packetSize int) {
	c, ok := a.counters[protocolLabel]
	if !ok {
		c = &model.ProtocolCounter{Protocol: protocolLabel}
		a.counters[protocolLabel] = c
	}
	c.PacketCount++
	c.Bytes += uint64(packetSize)
}

// Counters returns a copy of the raw counters, ordered by label.
func (a *Aggregator) Counters() []model.ProtocolCounter {
	out := make([]model.ProtocolCounter, 0, len(a.counters))
	for _, c := range a.counters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Protocol < out[j].Protocol })
	return out
}

// Snapshot reads every counter against totalPackets. Percentages are
// computed here and never stored; a zero total gives 0% for every label.
// The result is ordered by packet count, largest first.
func (a *Aggregator) Snapshot(totalPackets uint64) []model.ProtocolStat {
	stats := make([]model.ProtocolStat, 0, len(a.counters))
	for _, c := range a.counters {
		stats = append(stats, model.ProtocolStat{
			Protocol:    c.Protocol,
			PacketCount: c.PacketCount,
			Bytes:       c.Bytes,
			Percentage:  Percentage(c.PacketCount, totalPackets),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PacketCount != stats[j].PacketCount {
			return stats[i].PacketCount > stats[j].PacketCount
		}
		return stats[i].Protocol < stats[j].Protocol
	})
	return stats
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
