// internal/config/config.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// SpeedAuto is the terminal.speed value requesting automatic detection.
const SpeedAuto = "auto"

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Terminal  TerminalConfig  `mapstructure:"terminal"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Events    EventsConfig    `mapstructure:"events"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host" validate:"required"`
	Port           string        `mapstructure:"port" validate:"required"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"` // empty allows all
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TerminalConfig represents the terminal link configuration. The line
// format is fixed by the protocol (7 data bits, even parity, 1 stop
// bit); only the link kind, endpoint and speed policy are configurable.
type TerminalConfig struct {
	Link         string        `mapstructure:"link"`     // serial or tcp
	Port         string        `mapstructure:"port"`     // serial device path
	Host         string        `mapstructure:"host"`     // ser2net bridge host
	TCPPort      int           `mapstructure:"tcp_port"` // ser2net bridge port
	Speed        string        `mapstructure:"speed"`    // "auto" or 1200|4800|9600
	AllowUpgrade bool          `mapstructure:"allow_upgrade"`
	AutoConnect  bool          `mapstructure:"auto_connect"`
	DisableEcho  bool          `mapstructure:"disable_echo"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WebSocketConfig represents WebSocket endpoint configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxClients      int           `mapstructure:"max_clients"`
}

// DiscoveryConfig represents port discovery configuration
type DiscoveryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ScanInterval time.Duration `mapstructure:"scan_interval"` // 0 disables periodic scans
	USBEnabled   bool          `mapstructure:"usb_enabled"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// EventsConfig represents the session event journal configuration
type EventsConfig struct {
	JournalSize int `mapstructure:"journal_size"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Environment variable support
	viper.SetEnvPrefix("MINITEL_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// The defaults cover every key, so a missing config file is fine;
	// anything else (syntax error, unreadable file) is not.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "minitel-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8091")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.allowed_origins", []string{})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// Terminal defaults
	viper.SetDefault("terminal.link", "serial")
	viper.SetDefault("terminal.port", "/dev/ttyUSB0")
	viper.SetDefault("terminal.host", "")
	viper.SetDefault("terminal.tcp_port", 2217)
	viper.SetDefault("terminal.speed", SpeedAuto)
	viper.SetDefault("terminal.allow_upgrade", true)
	viper.SetDefault("terminal.auto_connect", false)
	viper.SetDefault("terminal.disable_echo", true)
	viper.SetDefault("terminal.write_timeout", "5s")

	// WebSocket defaults
	viper.SetDefault("websocket.read_buffer_size", 1024)
	viper.SetDefault("websocket.write_buffer_size", 1024)
	viper.SetDefault("websocket.ping_interval", "30s")
	viper.SetDefault("websocket.write_timeout", "10s")
	viper.SetDefault("websocket.max_clients", 16)

	// Discovery defaults
	viper.SetDefault("discovery.enabled", true)
	viper.SetDefault("discovery.scan_interval", "0s")
	viper.SetDefault("discovery.usb_enabled", true)
	viper.SetDefault("discovery.probe_timeout", "2s")

	// Events defaults
	viper.SetDefault("events.journal_size", 256)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	// Validate terminal link
	switch config.Terminal.Link {
	case string(driver.LinkSerial):
		if config.Terminal.Port == "" {
			return fmt.Errorf("terminal.port is required for serial links")
		}
	case string(driver.LinkTCP):
		if config.Terminal.Host == "" {
			return fmt.Errorf("terminal.host is required for tcp links")
		}
		if config.Terminal.TCPPort < 1 || config.Terminal.TCPPort > 65535 {
			return fmt.Errorf("terminal.tcp_port must be a valid port, got %d", config.Terminal.TCPPort)
		}
	default:
		return fmt.Errorf("terminal.link must be serial or tcp, got %q", config.Terminal.Link)
	}

	// Validate terminal speed
	if config.Terminal.Speed != SpeedAuto {
		speed, err := strconv.Atoi(config.Terminal.Speed)
		if err != nil || !videotex.IsCandidateSpeed(speed) {
			return fmt.Errorf("terminal.speed must be %q or one of %v, got %q",
				SpeedAuto, videotex.CandidateSpeeds, config.Terminal.Speed)
		}
	}

	if config.Events.JournalSize < 1 {
		return fmt.Errorf("events.journal_size must be positive, got %d", config.Events.JournalSize)
	}

	return nil
}

// SpeedValue returns the configured speed in bauds, or driver.SpeedAuto
// for automatic detection. Call after validation.
func (c *TerminalConfig) SpeedValue() int {
	if c.Speed == SpeedAuto {
		return driver.SpeedAuto
	}
	speed, err := strconv.Atoi(c.Speed)
	if err != nil {
		return driver.SpeedAuto
	}
	return speed
}

// LinkSettings converts the terminal section into driver link settings.
func (c *TerminalConfig) LinkSettings() driver.LinkSettings {
	return driver.LinkSettings{
		Kind:         driver.LinkKind(c.Link),
		Port:         c.Port,
		Host:         c.Host,
		TCPPort:      c.TCPPort,
		Speed:        c.SpeedValue(),
		AllowUpgrade: c.AllowUpgrade,
	}
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
