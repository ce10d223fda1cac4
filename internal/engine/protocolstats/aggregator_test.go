package protocolstats

import (
	"math"
	"testing"
)

func TestAggregator_Snapshot(t *testing.T) {
	agg := New()
	for i := 0; i < 3; i++ {
		agg.Observe("HTTP", 100)
	}
	agg.Observe("DNS", 80)

	stats := agg.Snapshot(4)
	if len(stats) != 2 {
		t.Fatalf("Expected 2 labels, got %d", len(stats))
	}
	if stats[0].Protocol != "HTTP" || stats[0].PacketCount != 3 || stats[0].Bytes != 300 {
		t.Errorf("Unexpected first stat: %+v", stats[0])
	}
	if stats[0].Percentage != 75 {
		t.Errorf("Expected 75%%, got %v", stats[0].Percentage)
	}
	if stats[1].Protocol != "DNS" || stats[1].Percentage != 25 {
		t.Errorf("Unexpected second stat: %+v", stats[1])
	}
}

func TestAggregator_SnapshotZeroTotal(t *testing.T) {
	agg := New()
	agg.Observe("TCP", 60)
	agg.Observe("UDP", 60)

	for _, s := range agg.Snapshot(0) {
		if s.Percentage != 0 || math.IsNaN(s.Percentage) {
			t.Errorf("Expected 0%% for %s with zero total, got %v", s.Protocol, s.Percentage)
		}
	}
}

func TestAggregator_SnapshotDividesByCaptureTotal(t *testing.T) {
	agg := New()
	agg.Observe("TCP", 60)

	// One classified packet out of four captured frames.
	stats := agg.Snapshot(4)
	if stats[0].Percentage != 25 {
		t.Errorf("Expected 25%%, got %v", stats[0].Percentage)
	}
}

func TestAggregator_SnapshotIsReadOnly(t *testing.T) {
	agg := New()
	agg.Observe("SSH", 200)

	first := agg.Snapshot(1)
	second := agg.Snapshot(1)
	if first[0] != second[0] {
		t.Errorf("Snapshot changed state: %+v vs %+v", first[0], second[0])
	}

	counters := agg.Counters()
	if len(counters) != 1 || counters[0].PacketCount != 1 || counters[0].Bytes != 200 {
		t.Errorf("Unexpected counters after snapshots: %+v", counters)
	}
}

func TestAggregator_Empty(t *testing.T) {
	if stats := New().Snapshot(10); len(stats) != 0 {
		t.Errorf("Expected no stats, got %+v", stats)
	}
}
