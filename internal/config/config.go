// Package config loads server settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// Environment variables that override file settings.
const (
	EnvLogLevel = "PGM_MCP_LOG_LEVEL"
	EnvHTTP     = "PGM_MCP_HTTP"
)

// DefaultPath is read when no -config flag is given. It may be absent.
const DefaultPath = "pgm-mcp.yml"

// Config holds the server settings.
type Config struct {
	// LogLevel is "info" or "debug".
	LogLevel string `yaml:"log_level"`

	// HTTPListen is the address of the optional HTTP transport, e.g.
	// "127.0.0.1:8070". Empty disables it.
	HTTPListen string `yaml:"http_listen"`

	// MaxPixels caps the size of any raster the server creates.
	MaxPixels int `yaml:"max_pixels"`

	// MaxHandles caps the number of live raster handles.
	MaxHandles int `yaml:"max_handles"`

	// JPEGQuality is used for jpeg exports (1..100).
	JPEGQuality int `yaml:"jpeg_quality"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		MaxPixels:   raster.MaxPixels,
		MaxHandles:  256,
		JPEGQuality: 90,
	}
}

// Load reads the YAML file at path on top of the defaults and then
// applies environment overrides.
//
// An empty path means DefaultPath; that file is optional. A path given
// explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath
	}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("failed to decode config at %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config at %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvHTTP); ok {
		c.HTTPListen = v
	}
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "info", "debug":
	case "":
		c.LogLevel = "info"
	default:
		return fmt.Errorf("log_level %q: want info or debug", c.LogLevel)
	}
	if c.MaxPixels <= 0 || c.MaxPixels > raster.MaxPixels {
		return fmt.Errorf("max_pixels %d: want 1..%d", c.MaxPixels, raster.MaxPixels)
	}
	if c.MaxHandles <= 0 {
		return fmt.Errorf("max_handles %d: must be positive", c.MaxHandles)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality %d: want 1..100", c.JPEGQuality)
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}
