// Package config loads the YAML configuration for a bcp-engine process:
// which serial device to open, the link's timing budget, and where to
// expose metrics.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the full on-disk configuration shape.
type File struct {
	Serial    SerialInfo    `yaml:"serial"`
	Link      LinkInfo      `yaml:"link"`
	Metrics   MetricsInfo   `yaml:"metrics"`
	Logging   LoggingInfo   `yaml:"logging"`
	Heartbeat HeartbeatInfo `yaml:"heartbeat"`
}

// SerialInfo identifies the transport device.
type SerialInfo struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// LinkInfo holds the protocol's timing budget.
type LinkInfo struct {
	ReplyTimeout         time.Duration `yaml:"reply_timeout"`
	DataInspectionWindow time.Duration `yaml:"data_inspection_window"`
	MaxReplyTimeouts     int           `yaml:"max_reply_timeouts"`
	IdleENQPerSecond     float64       `yaml:"idle_enq_per_second"`
}

// MetricsInfo configures the Prometheus exposition endpoint.
type MetricsInfo struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingInfo configures the slog handler.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// HeartbeatInfo configures the periodic status log line.
type HeartbeatInfo struct {
	Schedule string `yaml:"schedule"` // cron expression
}

// Default returns a runnable configuration for a device path supplied on
// the command line.
func Default(device string) *File {
	return &File{
		Serial: SerialInfo{
			Device:      device,
			Baud:        9600,
			ReadTimeout: 100 * time.Millisecond,
		},
		Link: LinkInfo{
			ReplyTimeout:         2 * time.Second,
			DataInspectionWindow: 10 * time.Millisecond,
			MaxReplyTimeouts:     5,
			IdleENQPerSecond:     2,
		},
		Metrics: MetricsInfo{
			Enabled: true,
			Address: ":9600",
		},
		Logging: LoggingInfo{
			Level:  "info",
			Format: "text",
		},
		Heartbeat: HeartbeatInfo{
			Schedule: "@every 30s",
		},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if f.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	if f.Link.ReplyTimeout <= 0 {
		return fmt.Errorf("link.reply_timeout must be positive")
	}
	if f.Link.DataInspectionWindow <= 0 {
		return fmt.Errorf("link.data_inspection_window must be positive")
	}
	if f.Link.DataInspectionWindow >= f.Link.ReplyTimeout {
		return fmt.Errorf("link.data_inspection_window must be smaller than link.reply_timeout")
	}
	if f.Link.MaxReplyTimeouts <= 0 {
		return fmt.Errorf("link.max_reply_timeouts must be positive")
	}
	if f.Link.IdleENQPerSecond <= 0 {
		return fmt.Errorf("link.idle_enq_per_second must be positive")
	}
	if f.Metrics.Enabled && f.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics.enabled is true")
	}
	return nil
}
