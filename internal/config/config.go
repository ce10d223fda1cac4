package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig holds the engine's read-only tuning values.
type AnalysisConfig struct {
	MaxTimelineDataPoints   int  `yaml:"max_timeline_data_points"`
	MinTimelineInterval     int  `yaml:"min_timeline_interval"`
	AutoAdjustInterval      bool `yaml:"auto_adjust_interval"`
	DefaultTimelineInterval int  `yaml:"default_timeline_interval"`
	TopConversations        int  `yaml:"top_conversations"`
}

// EngineConfig sizes the worker pool that analyzes captures.
type EngineConfig struct {
	NumWorkers       int `yaml:"num_workers"`
	SizeOfJobChannel int `yaml:"size_of_job_channel"`
}

// GobConfig holds the configuration for the gob snapshot writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// ReportConfig holds the configuration for the HTML report writer.
type ReportConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SMTPConfig holds the settings of the email writer. To is a comma-separated
// recipient list.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// WriterDef defines a single writer from the config file.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Gob        GobConfig        `yaml:"gob"`
	Report     ReportConfig     `yaml:"report"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	SMTP       SMTPConfig       `yaml:"smtp"`
}

// ProbeConfig holds the NATS stream settings shared by ns-probe and ns-engine.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
	// EOSTimeout bounds how long a capture stream may stay silent.
	EOSTimeout string `yaml:"eos_timeout"`
}

// APIConfig holds the query service settings.
type APIConfig struct {
	HTTPListenAddr string `yaml:"http_listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr"`
	// Source selects where captures are read from: "snapshot" or "clickhouse".
	Source       string `yaml:"source"`
	SnapshotPath string `yaml:"snapshot_path"`
	// ReloadInterval is how often snapshots are rescanned; "0" disables it.
	ReloadInterval string `yaml:"reload_interval"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Engine   EngineConfig   `yaml:"engine"`
	Writers  []WriterDef    `yaml:"writers"`
	Probe    ProbeConfig    `yaml:"probe"`
	API      APIConfig      `yaml:"api"`
}

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxTimelineDataPoints:   1000,
			MinTimelineInterval:     1,
			AutoAdjustInterval:      true,
			DefaultTimelineInterval: 60,
			TopConversations:        10,
		},
		Engine: EngineConfig{
			NumWorkers:       4,
			SizeOfJobChannel: 16,
		},
		Probe: ProbeConfig{
			NATSURL:    "nats://127.0.0.1:4222",
			Subject:    "spectra.packets",
			EOSTimeout: "30s",
		},
		API: APIConfig{
			HTTPListenAddr: ":8080",
			GRPCListenAddr: ":9090",
			Source:         "snapshot",
			SnapshotPath:   "./snapshots",
			ReloadInterval: "30s",
		},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	if c.Analysis.MaxTimelineDataPoints <= 0 {
		return fmt.Errorf("analysis.max_timeline_data_points must be positive, got %d", c.Analysis.MaxTimelineDataPoints)
	}
	if c.Analysis.MinTimelineInterval <= 0 {
		return fmt.Errorf("analysis.min_timeline_interval must be positive, got %d", c.Analysis.MinTimelineInterval)
	}
	if c.Analysis.DefaultTimelineInterval <= 0 {
		return fmt.Errorf("analysis.default_timeline_interval must be positive, got %d", c.Analysis.DefaultTimelineInterval)
	}
	if c.Analysis.TopConversations < 0 {
		return fmt.Errorf("analysis.top_conversations must not be negative, got %d", c.Analysis.TopConversations)
	}
	if c.Engine.NumWorkers <= 0 {
		return fmt.Errorf("engine.num_workers must be positive, got %d", c.Engine.NumWorkers)
	}
	if _, err := c.Probe.Timeout(); err != nil {
		return err
	}
	if c.API.Source != "snapshot" && c.API.Source != "clickhouse" {
		return fmt.Errorf("api.source must be 'snapshot' or 'clickhouse', got '%s'", c.API.Source)
	}
	if _, err := c.API.Reload(); err != nil {
		return err
	}
	return nil
}

// ClickHouse returns the first enabled ClickHouse writer's connection details.
func (c *Config) ClickHouse() (ClickHouseConfig, bool) {
	for _, def := range c.Writers {
		if def.Enabled && def.Type == "clickhouse" {
			return def.ClickHouse, true
		}
	}
	return ClickHouseConfig{}, false
}

// Reload parses ReloadInterval. Zero disables reloading.
func (a APIConfig) Reload() (time.Duration, error) {
	if a.ReloadInterval == "" || a.ReloadInterval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.ReloadInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid api.reload_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("api.reload_interval must not be negative")
	}
	return d, nil
}

// Timeout parses EOSTimeout.
func (p ProbeConfig) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(p.EOSTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid probe.eos_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("probe.eos_timeout must be a positive duration")
	}
	return d, nil
}
