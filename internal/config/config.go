// Package config provides configuration loading for readygate.
//
// Configuration is loaded from a YAML file, then overridden with
// environment variables. All pipeline thresholds and weights live here;
// the code ships defaults but never hardcodes a tuning decision.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

// Config holds the complete readygate configuration.
type Config struct {
	Pipeline  workflow.PipelineConfig `koanf:"pipeline"`
	Storage   StorageConfig           `koanf:"storage"`
	Server    ServerConfig            `koanf:"server"`
	Logging   LoggingConfig           `koanf:"logging"`
	Telemetry TelemetryConfig         `koanf:"telemetry"`
	Notify    NotifyConfig            `koanf:"notify"`
	Report    ReportConfig            `koanf:"report"`
}

// StorageConfig holds assessment store configuration.
type StorageConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory
	// store: assessments are not persisted and trend history is per
	// process.
	Path string `koanf:"path"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string   `koanf:"addr"`
	ReadTimeout     Duration `koanf:"read_timeout"`
	WriteTimeout    Duration `koanf:"write_timeout"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration. Telemetry is
// disabled by default; the pipeline works without a collector.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	ServiceName    string   `koanf:"service_name"`
	Insecure       bool     `koanf:"insecure"`
	ExportInterval Duration `koanf:"export_interval"`
}

// NotifyConfig holds NATS event publishing configuration.
type NotifyConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`

	// Credentials is the contents-path of a NATS credentials file.
	Credentials Secret `koanf:"credentials"`
}

// ReportConfig holds GitHub commit status reporting configuration.
type ReportConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   Secret `koanf:"token"`
	Context string `koanf:"context"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Pipeline: workflow.DefaultPipelineConfig(),
		Server: ServerConfig{
			Addr:            ":8087",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "localhost:4317",
			ServiceName:    "readygate",
			Insecure:       true,
			ExportInterval: Duration(15 * time.Second),
		},
		Notify: NotifyConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "readygate.assessments",
		},
		Report: ReportConfig{
			Context: "readygate/deployment-readiness",
		},
	}
}

// Validate fails fast on any inconsistent setting. A process must never
// start with a half-valid configuration.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server: addr is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry: endpoint is required when enabled")
	}
	if c.Notify.Enabled {
		if c.Notify.URL == "" {
			return fmt.Errorf("notify: url is required when enabled")
		}
		if c.Notify.Subject == "" {
			return fmt.Errorf("notify: subject is required when enabled")
		}
	}
	if c.Report.Enabled && !c.Report.Token.IsSet() {
		return fmt.Errorf("report: token is required when enabled")
	}
	return nil
}
