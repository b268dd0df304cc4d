// Package config loads the controller's startup configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/robot.frontend/internal/motor"
	"github.com/banshee-data/robot.frontend/internal/network"
)

// Defaults for fields left out of the file.
const (
	DefaultAdminListen  = "localhost:8080"
	DefaultSettingsDB   = "settings.db"
	DefaultPollInterval = "250ms"
)

// maxFileSize caps config files at 1MB.
const maxFileSize = 1 * 1024 * 1024

// Config is the root configuration. Fields are pointers so that omitted
// values fall back to the defaults returned by the Get* methods.
type Config struct {
	Port            *int    `json:"port,omitempty" yaml:"port,omitempty"`
	AddressFamily   *string `json:"address_family,omitempty" yaml:"address_family,omitempty"`
	MaxDatagramSize *int    `json:"max_datagram_size,omitempty" yaml:"max_datagram_size,omitempty"`
	PollInterval    *string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"` // duration string like "250ms"

	// AdminListen is the debug HTTP address; "" disables it.
	AdminListen *string `json:"admin_listen,omitempty" yaml:"admin_listen,omitempty"`
	SettingsDB  *string `json:"settings_db,omitempty" yaml:"settings_db,omitempty"`

	// MotorSerialPort names the drive controller's serial device. Empty
	// leaves the dispatcher without a motor handler.
	MotorSerialPort *string           `json:"motor_serial_port,omitempty" yaml:"motor_serial_port,omitempty"`
	MotorSerial     motor.PortOptions `json:"motor_serial" yaml:"motor_serial"`
	LogMotorActions *bool             `json:"log_motor_actions,omitempty" yaml:"log_motor_actions,omitempty"`
}

// Load reads a Config from a .json, .yaml or .yml file and validates it.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.Port != nil && (*c.Port < 0 || *c.Port > 65535) {
		return fmt.Errorf("port must be between 0 and 65535, got %d", *c.Port)
	}
	if c.AddressFamily != nil {
		if _, err := network.ParseAddressFamily(*c.AddressFamily); err != nil {
			return err
		}
	}
	if c.MaxDatagramSize != nil && (*c.MaxDatagramSize < 1 || *c.MaxDatagramSize > network.MaxDatagramSize) {
		return fmt.Errorf("max_datagram_size must be between 1 and %d, got %d", network.MaxDatagramSize, *c.MaxDatagramSize)
	}
	if c.PollInterval != nil && *c.PollInterval != "" {
		d, err := time.ParseDuration(*c.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive, got %s", d)
		}
	}
	if c.GetMotorSerialPort() != "" {
		if _, err := c.MotorSerial.Normalize(); err != nil {
			return fmt.Errorf("motor_serial: %w", err)
		}
	}
	return nil
}

func (c *Config) GetPort() int {
	if c.Port == nil {
		return network.DefaultPort
	}
	return *c.Port
}

// GetAddressFamily returns the configured family, IPv4 by default.
func (c *Config) GetAddressFamily() network.AddressFamily {
	if c.AddressFamily == nil {
		return network.IPv4
	}
	f, err := network.ParseAddressFamily(*c.AddressFamily)
	if err != nil {
		return network.IPv4
	}
	return f
}

func (c *Config) GetMaxDatagramSize() int {
	if c.MaxDatagramSize == nil {
		return network.MaxDatagramSize
	}
	return *c.MaxDatagramSize
}

// GetPollInterval parses and returns PollInterval as a time.Duration.
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return network.DefaultPollInterval
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil || d <= 0 {
		return network.DefaultPollInterval
	}
	return d
}

func (c *Config) GetAdminListen() string {
	if c.AdminListen == nil {
		return DefaultAdminListen
	}
	return *c.AdminListen
}

func (c *Config) GetSettingsDB() string {
	if c.SettingsDB == nil || *c.SettingsDB == "" {
		return DefaultSettingsDB
	}
	return *c.SettingsDB
}

func (c *Config) GetMotorSerialPort() string {
	if c.MotorSerialPort == nil {
		return ""
	}
	return *c.MotorSerialPort
}

func (c *Config) GetLogMotorActions() bool {
	return c.LogMotorActions != nil && *c.LogMotorActions
}
