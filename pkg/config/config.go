// Package config loads and saves the allegro.toml configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gwillem/allegro/pkg/allegro"
	"github.com/gwillem/allegro/pkg/protocol"
	"github.com/gwillem/allegro/pkg/supervisor"
	"github.com/gwillem/allegro/pkg/teleop"
	"github.com/gwillem/allegro/pkg/transport"
)

const DefaultConfigFile = "allegro.toml"

// Duration is a time.Duration written as a Go duration string ("1s", "100ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds the client configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Connect  ConnectConfig  `toml:"connect"`
	Joystick JoystickConfig `toml:"joystick"`
}

// ServerConfig describes how the hand server is launched and reached
type ServerConfig struct {
	Executable   string   `toml:"executable,omitempty"`
	Attach       bool     `toml:"attach"`
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	StartupDelay Duration `toml:"startup_delay"`
	GraceTimeout Duration `toml:"grace_timeout"`
}

// ConnectConfig holds connection retry settings
type ConnectConfig struct {
	MaxAttempts     int      `toml:"max_attempts"`
	RetryDelay      Duration `toml:"retry_delay"`
	ResponseTimeout Duration `toml:"response_timeout"`
}

// JoystickConfig holds teleoperation input settings
type JoystickConfig struct {
	Device   string  `toml:"device,omitempty"`
	Axis     int     `toml:"axis"`
	MaxAngle float64 `toml:"max_angle"`
	Hz       int     `toml:"hz"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         allegro.DefaultHost,
			Port:         protocol.DefaultPort,
			StartupDelay: Duration{allegro.DefaultStartupDelay},
			GraceTimeout: Duration{supervisor.DefaultGraceTimeout},
		},
		Connect: ConnectConfig{
			MaxAttempts: transport.DefaultMaxAttempts,
			RetryDelay:  Duration{transport.DefaultRetryDelay},
		},
		Joystick: JoystickConfig{
			Device:   "/dev/input/js0",
			Axis:     teleop.DefaultAxis,
			MaxAngle: teleop.DefaultMaxAngle,
			Hz:       teleop.DefaultHz,
		},
	}
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom loads configuration from a specific file. Keys missing from the
// file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and returns defaults otherwise
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFrom(path)
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Exists returns true if the default config file exists
func Exists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// HandConfig converts the file settings into a session configuration
func (c *Config) HandConfig() allegro.Config {
	return allegro.Config{
		Executable:   c.Server.Executable,
		Attach:       c.Server.Attach,
		Host:         c.Server.Host,
		Port:         c.Server.Port,
		StartupDelay: c.Server.StartupDelay.Duration,
		GraceTimeout: c.Server.GraceTimeout.Duration,
		Dial: transport.DialConfig{
			MaxAttempts:     c.Connect.MaxAttempts,
			RetryDelay:      c.Connect.RetryDelay.Duration,
			ResponseTimeout: c.Connect.ResponseTimeout.Duration,
		},
	}
}
