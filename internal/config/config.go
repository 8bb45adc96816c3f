// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"storebench/internal/audit"
	"storebench/internal/bench"
)

// Environment variables overriding file values.
const (
	EnvVariant          = "STOREBENCH_VARIANT"
	EnvGreptimeEndpoint = "GREPTIMEDB_ENDPOINT"
	EnvGreptimeDatabase = "GREPTIMEDB_DATABASE"
	EnvRunsTable        = "STOREBENCH_RUNS_TABLE"
)

// Backend describes one store backend.
type Backend struct {
	Name         string  `yaml:"name"`
	BundleSizeKB float64 `yaml:"bundle_size_kb"`
}

// Server configures the web UI.
type Server struct {
	Addr string `yaml:"addr"`
}

// Audit configures the bundle size auditor.
type Audit struct {
	Dir              string   `yaml:"dir"`
	Report           string   `yaml:"report"`
	PreviewURL       string   `yaml:"preview_url"`
	Lighthouse       bool     `yaml:"lighthouse"`
	Install          bool     `yaml:"install"`
	LighthouseOutput string   `yaml:"lighthouse_output"`
	Extensions       []string `yaml:"extensions"`
	VendorMarker     string   `yaml:"vendor_marker"`
	WatchDebounceMs  int      `yaml:"watch_debounce_ms"`
}

// Greptime configures the optional GreptimeDB sink. An empty endpoint
// disables it.
type Greptime struct {
	Endpoint    string `yaml:"endpoint"`
	Database    string `yaml:"database"`
	RunsTable   string `yaml:"runs_table"`
	PhasesTable string `yaml:"phases_table"`
}

// Config is the root configuration.
type Config struct {
	Variant            string             `yaml:"variant"`
	// Iterations and ThroughputWindowMs override the preset when non-zero.
	Iterations         int                `yaml:"iterations"`
	ThroughputWindowMs int                `yaml:"throughput_window_ms"`
	SettleDelayMs      int                `yaml:"settle_delay_ms"`
	MemorySource       string             `yaml:"memory_source"`
	LogLevel           string             `yaml:"log_level"`
	Backends           map[string]Backend `yaml:"backends"`
	Server             Server             `yaml:"server"`
	Audit              Audit              `yaml:"audit"`
	Greptime           Greptime           `yaml:"greptime"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Variant:       bench.VariantSingleScreen,
		SettleDelayMs: int(bench.DefaultSettleDelay / time.Millisecond),
		MemorySource:  bench.MemoryRSS,
		LogLevel:      "info",
		Backends: map[string]Backend{
			bench.BackendRedux: {Name: "Redux Toolkit", BundleSizeKB: 13.5},
			bench.BackendAlt:   {Name: "Nanostores", BundleSizeKB: 2.1},
		},
		Server: Server{Addr: ":3000"},
		Audit: Audit{
			Dir:              "dist",
			Report:           audit.DefaultReportPath,
			PreviewURL:       audit.DefaultPreviewURL,
			Lighthouse:       true,
			Install:          true,
			LighthouseOutput: audit.DefaultLighthouseOutput,
			Extensions:       []string{".js"},
			VendorMarker:     audit.DefaultVendorMarker,
			WatchDebounceMs:  500,
		},
		Greptime: Greptime{Database: "public"},
	}
}

// Load validates the YAML file at configPath against the CUE schema at
// schemaPath and decodes it over Default. Environment overrides are applied
// last.
func Load(configPath, schemaPath string) (*Config, error) {
	if err := ValidateWithCue(configPath, schemaPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", configPath, err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvVariant); v != "" {
		c.Variant = v
	}
	if v := os.Getenv(EnvGreptimeEndpoint); v != "" {
		c.Greptime.Endpoint = v
	}
	if v := os.Getenv(EnvGreptimeDatabase); v != "" {
		c.Greptime.Database = v
	}
	if v := os.Getenv(EnvRunsTable); v != "" {
		c.Greptime.RunsTable = v
	}
}

// BenchConfig resolves the preset named by Variant and applies overrides.
func (c *Config) BenchConfig() (bench.Config, error) {
	bc, ok := bench.Preset(c.Variant)
	if !ok {
		return bench.Config{}, fmt.Errorf("unknown variant %q (known: %v)", c.Variant, bench.PresetNames())
	}
	if c.Iterations > 0 {
		bc.Iterations = c.Iterations
	}
	if c.ThroughputWindowMs > 0 {
		bc.ThroughputWindow = time.Duration(c.ThroughputWindowMs) * time.Millisecond
	}
	if c.SettleDelayMs >= 0 {
		bc.SettleDelay = time.Duration(c.SettleDelayMs) * time.Millisecond
	}
	return bc, bc.Validate()
}

// Backend returns the settings for a backend id, falling back to defaults.
func (c *Config) Backend(id string) Backend {
	if b, ok := c.Backends[id]; ok {
		if b.Name == "" {
			b.Name = Default().Backends[id].Name
		}
		return b
	}
	return Default().Backends[id]
}

// AuditConfig converts the audit section for the auditor.
func (c *Config) AuditConfig() audit.Config {
	return audit.Config{
		Dir:        c.Audit.Dir,
		ReportPath: c.Audit.Report,
		PreviewURL: c.Audit.PreviewURL,
		Lighthouse: c.Audit.Lighthouse,
		Install:    c.Audit.Install,
		Bundle: audit.BundleOptions{
			Extensions:   c.Audit.Extensions,
			VendorMarker: c.Audit.VendorMarker,
		},
	}
}

// WatchDebounce returns the audit watch debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	if c.Audit.WatchDebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Audit.WatchDebounceMs) * time.Millisecond
}
