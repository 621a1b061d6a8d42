package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
	assert.Equal(t, DefaultFirmwareFile, cfg.FirmwareFile)
	assert.Equal(t, DefaultIOTimeout, cfg.IOTimeout())
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fotad.yaml")
	content := `
host: 10.0.0.5
port: 9090
firmware_dir: /srv/ota
firmware_file: image.bin
max_connections: 10
io_timeout_seconds: 30
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/srv/ota", cfg.FirmwareDir)
	assert.Equal(t, "image.bin", cfg.FirmwareFile)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.IOTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join("/srv/ota", "image.bin"), cfg.FirmwarePath())
}

func TestLoadOmittedKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fotad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
	assert.Equal(t, DefaultFirmwareFile, cfg.FirmwareFile)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fotad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "port zero is OS-assigned",
			mutate: func(c *Config) { c.Port = 0 },
		},
		{
			name:    "negative port",
			mutate:  func(c *Config) { c.Port = -1 },
			wantErr: true,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero max connections",
			mutate:  func(c *Config) { c.MaxConnections = 0 },
			wantErr: true,
		},
		{
			name:    "empty firmware file",
			mutate:  func(c *Config) { c.FirmwareFile = "" },
			wantErr: true,
		},
		{
			name:    "firmware file with path components",
			mutate:  func(c *Config) { c.FirmwareFile = "../escape.bin" },
			wantErr: true,
		},
		{
			name:    "negative io timeout",
			mutate:  func(c *Config) { c.IOTimeoutSeconds = -5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteExampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "fotad.yaml")
	require.NoError(t, WriteExample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	// Header comment survives in the written file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# fotad configuration file")
}
