// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minitel-service/pkg/driver"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "minitel-service",
			Version:     "1.0.0",
			Environment: "test",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8091",
			Mode: "test",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Terminal: TerminalConfig{
			Link:  "serial",
			Port:  "/dev/ttyUSB0",
			Speed: SpeedAuto,
		},
		Events: EventsConfig{
			JournalSize: 256,
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "minitel-service", cfg.App.Name)
	assert.Equal(t, "8091", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "serial", cfg.Terminal.Link)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Terminal.Port)
	assert.Equal(t, SpeedAuto, cfg.Terminal.Speed)
	assert.True(t, cfg.Terminal.AllowUpgrade)
	assert.False(t, cfg.Terminal.AutoConnect)
	assert.True(t, cfg.Terminal.DisableEcho)
	assert.Equal(t, 256, cfg.Events.JournalSize)
	assert.True(t, cfg.Discovery.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid serial config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid tcp config",
			mutate: func(c *Config) {
				c.Terminal.Link = "tcp"
				c.Terminal.Host = "192.168.1.50"
				c.Terminal.TCPPort = 2217
			},
		},
		{
			name: "valid fixed speed",
			mutate: func(c *Config) {
				c.Terminal.Speed = "4800"
			},
		},
		{
			name:    "serial link without port",
			mutate:  func(c *Config) { c.Terminal.Port = "" },
			wantErr: "terminal.port is required",
		},
		{
			name: "tcp link without host",
			mutate: func(c *Config) {
				c.Terminal.Link = "tcp"
				c.Terminal.TCPPort = 2217
			},
			wantErr: "terminal.host is required",
		},
		{
			name: "tcp link with bad port",
			mutate: func(c *Config) {
				c.Terminal.Link = "tcp"
				c.Terminal.Host = "192.168.1.50"
				c.Terminal.TCPPort = 70000
			},
			wantErr: "terminal.tcp_port",
		},
		{
			name:    "unknown link kind",
			mutate:  func(c *Config) { c.Terminal.Link = "carrier-pigeon" },
			wantErr: "terminal.link must be serial or tcp",
		},
		{
			name:    "speed not a candidate",
			mutate:  func(c *Config) { c.Terminal.Speed = "300" },
			wantErr: "terminal.speed",
		},
		{
			name:    "speed not numeric",
			mutate:  func(c *Config) { c.Terminal.Speed = "fast" },
			wantErr: "terminal.speed",
		},
		{
			name:    "bad logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad environment",
			mutate:  func(c *Config) { c.App.Environment = "prod" },
			wantErr: "app.environment",
		},
		{
			name:    "zero journal size",
			mutate:  func(c *Config) { c.Events.JournalSize = 0 },
			wantErr: "events.journal_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSpeedValue(t *testing.T) {
	tc := TerminalConfig{Speed: SpeedAuto}
	assert.Equal(t, driver.SpeedAuto, tc.SpeedValue())

	tc.Speed = "9600"
	assert.Equal(t, 9600, tc.SpeedValue())
}

func TestLinkSettings(t *testing.T) {
	tc := TerminalConfig{
		Link:         "tcp",
		Host:         "10.0.0.7",
		TCPPort:      2217,
		Speed:        "1200",
		AllowUpgrade: true,
	}

	settings := tc.LinkSettings()
	assert.Equal(t, driver.LinkTCP, settings.Kind)
	assert.Equal(t, "10.0.0.7", settings.Host)
	assert.Equal(t, 2217, settings.TCPPort)
	assert.Equal(t, 1200, settings.Speed)
	assert.True(t, settings.AllowUpgrade)
	assert.False(t, settings.IsAuto())
}
