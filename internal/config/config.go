// Package config loads fervo.json for the demo binary.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "fervo.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default export output directory.
	DefaultOutput = "dist"
)

// Config represents the complete fervo.json configuration.
type Config struct {
	// Name is the project name, used as the page title.
	Name string `json:"name,omitempty"`

	// Serve contains live server configuration.
	Serve ServeConfig `json:"serve,omitempty"`

	// Export contains static export configuration.
	Export ExportConfig `json:"export,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServeConfig contains live server configuration.
type ServeConfig struct {
	// Host is the interface to bind.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `json:"metrics,omitempty"`

	// HeartbeatSeconds is the WebSocket ping interval.
	HeartbeatSeconds int `json:"heartbeat_seconds,omitempty"`
}

// ExportConfig contains static export configuration.
type ExportConfig struct {
	// Output is the directory exported pages are written to.
	Output string `json:"output,omitempty"`

	// S3Bucket, when set, publishes pages to S3 instead of disk.
	S3Bucket string `json:"s3_bucket,omitempty"`

	// S3Prefix is the key prefix for published pages.
	S3Prefix string `json:"s3_prefix,omitempty"`

	// PruneDays deletes S3 objects older than this many days after an
	// export. Zero disables pruning.
	PruneDays int `json:"prune_days,omitempty"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	return &Config{
		Name: "fervo",
		Serve: ServeConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Export: ExportConfig{
			Output: DefaultOutput,
		},
	}
}

// Load reads fervo.json from dir. A missing file yields the defaults;
// a malformed file is an error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.configPath = path
	return cfg, nil
}

// Addr returns the host:port pair for the live server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Serve.Host, c.Serve.Port)
}

// Heartbeat returns the WebSocket ping interval.
func (c *Config) Heartbeat() time.Duration {
	if c.Serve.HeartbeatSeconds <= 0 {
		return 25 * time.Second
	}
	return time.Duration(c.Serve.HeartbeatSeconds) * time.Second
}

// Path returns where the config was loaded from, empty for defaults.
func (c *Config) Path() string {
	return c.configPath
}
