package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Analysis.MaxTimelineDataPoints != 1000 {
		t.Errorf("Expected default max points 1000, got %d", cfg.Analysis.MaxTimelineDataPoints)
	}
	if cfg.Analysis.MinTimelineInterval != 1 {
		t.Errorf("Expected default min interval 1, got %d", cfg.Analysis.MinTimelineInterval)
	}
	if !cfg.Analysis.AutoAdjustInterval {
		t.Errorf("Expected auto adjust to default to true")
	}
	if cfg.Analysis.TopConversations != 10 {
		t.Errorf("Expected top conversations 10, got %d", cfg.Analysis.TopConversations)
	}
}

func TestParse_Overrides(t *testing.T) {
	data := []byte(`
analysis:
  max_timeline_data_points: 50
  auto_adjust_interval: false
writers:
  - type: gob
    enabled: true
    gob:
      root_path: /tmp/snapshots
probe:
  subject: test.packets
  eos_timeout: 5s
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Analysis.MaxTimelineDataPoints != 50 {
		t.Errorf("Expected 50, got %d", cfg.Analysis.MaxTimelineDataPoints)
	}
	if cfg.Analysis.AutoAdjustInterval {
		t.Errorf("Expected auto adjust to be disabled")
	}
	if cfg.Analysis.MinTimelineInterval != 1 {
		t.Errorf("Unset key should keep its default, got %d", cfg.Analysis.MinTimelineInterval)
	}
	if len(cfg.Writers) != 1 || cfg.Writers[0].Gob.RootPath != "/tmp/snapshots" {
		t.Errorf("Unexpected writers: %+v", cfg.Writers)
	}
	if cfg.Probe.NATSURL != "nats://127.0.0.1:4222" || cfg.Probe.Subject != "test.packets" {
		t.Errorf("Unexpected probe config: %+v", cfg.Probe)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero max points", "analysis:\n  max_timeline_data_points: 0\n"},
		{"negative min interval", "analysis:\n  min_timeline_interval: -1\n"},
		{"zero workers", "engine:\n  num_workers: 0\n"},
		{"bad timeout", "probe:\n  eos_timeout: soon\n"},
		{"unknown api source", "api:\n  source: postgres\n"},
		{"bad reload interval", "api:\n  reload_interval: often\n"},
		{"not yaml", "analysis: [1, 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Expected an error for %q", tt.data)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  num_workers: 2\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.NumWorkers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Engine.NumWorkers)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}

func TestAPIConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
api:
  source: clickhouse
  reload_interval: "0"
writers:
  - type: clickhouse
    enabled: false
    clickhouse:
      host: disabled.example
  - type: clickhouse
    enabled: true
    clickhouse:
      host: ch.example
      port: 9000
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d, _ := cfg.API.Reload(); d != 0 {
		t.Errorf("Expected reloading to be disabled, got %v", d)
	}
	ch, ok := cfg.ClickHouse()
	if !ok || ch.Host != "ch.example" {
		t.Errorf("Expected the enabled clickhouse writer, got %+v (found=%v)", ch, ok)
	}

	if d, _ := Default().API.Reload(); d.Seconds() != 30 {
		t.Errorf("Expected default reload interval of 30s, got %v", d)
	}
	if _, ok := Default().ClickHouse(); ok {
		t.Errorf("Default config should have no clickhouse writer")
	}
}
