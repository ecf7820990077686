package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "euc.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverDefaults(t *testing.T) {
	path := writeFile(t, `
radio = "HCI"
redis_addr = "10.0.0.2:6379"
connect_timeout = "8s"
buffer_limit = 256
log_format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RadioHCI, cfg.Radio)
	assert.Equal(t, "10.0.0.2:6379", cfg.Redis.Addr)
	assert.Equal(t, 8*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 256, cfg.BufferLimit)
	assert.Equal(t, "json", cfg.Log.Format)

	// untouched
	assert.Equal(t, "/dev/ttymxc1", cfg.Serial.Device)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, `connect_timeout = "soon"`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, `colour = "blue"`))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"radio", func(c *Config) { c.Radio = "zigbee" }},
		{"serial", func(c *Config) { c.Serial.Device = "" }},
		{"baud", func(c *Config) { c.Serial.Baud = 0 }},
		{"redis", func(c *Config) { c.Redis.Addr = "" }},
		{"connect timeout", func(c *Config) { c.ConnectTimeout = 0 }},
		{"poll interval", func(c *Config) { c.PollInterval = -time.Second }},
		{"buffer limit", func(c *Config) { c.BufferLimit = 19 }},
		{"publish rate", func(c *Config) { c.PublishRate = 0 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Radio = RadioHCI
	cfg.Serial.Device = ""
	assert.NoError(t, cfg.Validate())
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, `
redis_addr = "10.0.0.2:6379"
baud = 9600
`)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", path, "-baud", "57600", "-connect-timeout", "2s"}))

	cfg, err := flags.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	// file value survives an unset flag with a different default
	assert.Equal(t, "10.0.0.2:6379", cfg.Redis.Addr)
}

func TestFlagsValidate(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-radio", "nfc"}))

	_, err := flags.Resolve()
	assert.ErrorIs(t, err, ErrInvalid)
}
