package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "weather.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, TransportPigpiod, cfg.Transport)
	assert.Equal(t, Bus{SDA: 6, SCL: 13, Baud: 100_000}, cfg.Bus)
	assert.Equal(t, "localhost:8888", cfg.Pigpiod.Address)
	assert.Equal(t, 60, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Interval)
	assert.Len(t, cfg.ChannelOpts(), 2)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
transport: sim
bus:
  sda: 2
  scl: 3
retry:
  max_attempts: 5
  interval: 250ms
  backoff: 2
  max_interval: 2s
simulator:
  pressure: 99000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TransportSim, cfg.Transport)
	assert.Equal(t, Bus{SDA: 2, SCL: 3, Baud: 100_000}, cfg.Bus)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Interval)
	assert.Equal(t, 2.0, cfg.Retry.Backoff)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxInterval)
	assert.Equal(t, 99000.0, cfg.Simulator.Pressure)
	assert.Equal(t, 21.5, cfg.Simulator.Temperature)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "transprot: sim\n"))
	assert.ErrorContains(t, err, "could not parse config file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		msg    string
	}{
		{"unknown transport", func(c *Config) { c.Transport = "spi" }, `unknown transport "spi"`},
		{"shared pin", func(c *Config) { c.Bus.SCL = c.Bus.SDA }, "share pin 6"},
		{"zero baud", func(c *Config) { c.Bus.Baud = 0 }, "baud must be positive"},
		{"no daemon address", func(c *Config) { c.Pigpiod.Address = "" }, "pigpiod address is empty"},
		{"negative interval", func(c *Config) { c.Retry.Interval = -time.Second }, "must not be negative"},
		{"negative polls", func(c *Config) { c.Simulator.ConversionPolls = -1 }, "conversion polls"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, test.msg)
		})
	}
}
