package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the TCP port devices are provisioned to poll.
	DefaultPort = 8070

	// DefaultMaxConnections bounds concurrently served connections.
	// Sized to the expected fleet of embedded clients.
	DefaultMaxConnections = 50

	// DefaultFirmwareFile is the artifact filename inside FirmwareDir.
	DefaultFirmwareFile = "firmware.bin"

	// DefaultIOTimeout is the per-connection socket read/write deadline.
	// Prevents a stalled client from holding a connection slot forever.
	DefaultIOTimeout = 60 * time.Second
)

// Config holds the OTA server configuration, loaded from a YAML file
// and overridable by command-line flags.
type Config struct {
	// Host is the listen address (empty = all interfaces).
	Host string `yaml:"host"`

	// Port is the TCP listen port.
	Port int `yaml:"port"`

	// FirmwareDir is the directory holding the firmware artifact.
	FirmwareDir string `yaml:"firmware_dir"`

	// FirmwareFile is the artifact filename inside FirmwareDir. This is
	// also the filename advertised to devices in Content-Disposition.
	FirmwareFile string `yaml:"firmware_file"`

	// MaxConnections is the hard ceiling on concurrently served
	// connections. Connections beyond it are closed without a response.
	MaxConnections int `yaml:"max_connections"`

	// IOTimeoutSeconds is the socket read/write deadline per connection.
	// Zero means DefaultIOTimeout.
	IOTimeoutSeconds int `yaml:"io_timeout_seconds"`

	// LogLevel controls zap verbosity (debug, info, warn, error).
	// Empty means silent unless FOTAD_LOG_LEVEL is set.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Host:           "",
		Port:           DefaultPort,
		FirmwareDir:    ".",
		FirmwareFile:   DefaultFirmwareFile,
		MaxConnections: DefaultMaxConnections,
		LogLevel:       "info",
	}
}

// Load reads the configuration from path. If the file does not exist,
// the defaults are returned. The loaded configuration is validated.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so omitted keys keep their default values
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	// Port 0 is allowed and means OS-assigned
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range (0-65535)", c.Port)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.FirmwareFile == "" {
		return fmt.Errorf("firmware_file must not be empty")
	}
	if filepath.Base(c.FirmwareFile) != c.FirmwareFile {
		return fmt.Errorf("firmware_file must be a bare filename, got %q", c.FirmwareFile)
	}
	if c.IOTimeoutSeconds < 0 {
		return fmt.Errorf("io_timeout_seconds must not be negative, got %d", c.IOTimeoutSeconds)
	}
	return nil
}

// FirmwarePath returns the full path of the firmware artifact.
func (c *Config) FirmwarePath() string {
	return filepath.Join(c.FirmwareDir, c.FirmwareFile)
}

// IOTimeout returns the per-connection deadline as a duration.
func (c *Config) IOTimeout() time.Duration {
	if c.IOTimeoutSeconds == 0 {
		return DefaultIOTimeout
	}
	return time.Duration(c.IOTimeoutSeconds) * time.Second
}

// WriteExample writes a commented example configuration to path.
// Performs an atomic write to prevent a torn file on crash.
func WriteExample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# fotad configuration file
#
# Devices poll GET /version to detect a new firmware build and fetch it
# from GET /update (resumable via Range requests). Drop the firmware
# artifact at <firmware_dir>/<firmware_file>; no restart is needed when
# the file changes, the server re-reads it per request.

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	// Atomic rename (this is atomic on all platforms)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
