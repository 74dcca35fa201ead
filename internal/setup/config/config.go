// Package config loads the application configuration from TOML files on a
// fixed search path.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentVersion of the config file format.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version  int      `koanf:"version"`
	Debug    Debug    `koanf:"debug"`
	Ollama   Ollama   `koanf:"ollama"`
	Notifier Notifier `koanf:"notifier"`
	Server   Server   `koanf:"server"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// Ollama contains configuration for the local inference service.
type Ollama struct {
	// Base URL of the local Ollama API.
	BaseURL string `koanf:"base_url"`
	// Model to use for classification and reply generation.
	Model string `koanf:"model"`
	// Classification/reply request timeout in seconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Health and permission probe timeout in seconds.
	ProbeTimeout int `koanf:"probe_timeout"`
	// Maximum concurrent in-flight requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
}

// Notifier contains parent-notification configuration. Absence of any relay
// credential means "relay not configured", not an error.
type Notifier struct {
	// Recipient address for parent alerts.
	ParentEmail string `koanf:"parent_email"`
	// Duplicate-suppression window in minutes.
	RateLimitMinutes int `koanf:"rate_limit_minutes"`
	// Path of the sqlite file holding notification state. Empty keeps the
	// state in memory.
	StatePath string `koanf:"state_path"`
	// EmailJS relay credentials.
	ServiceID  string `koanf:"service_id"`
	TemplateID string `koanf:"template_id"`
	PublicKey  string `koanf:"public_key"`
	// Optional display names for the relay template.
	ToName   string `koanf:"to_name"`
	FromName string `koanf:"from_name"`
}

// Server contains the REST surface configuration.
type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// RequestDeadline returns the bounded deadline for classification and reply
// generation calls.
func (o *Ollama) RequestDeadline() time.Duration {
	if o.RequestTimeout <= 0 {
		return 90 * time.Second
	}

	return time.Duration(o.RequestTimeout) * time.Second
}

// ProbeDeadline returns the short deadline for health and permission probes.
func (o *Ollama) ProbeDeadline() time.Duration {
	if o.ProbeTimeout <= 0 {
		return 5 * time.Second
	}

	return time.Duration(o.ProbeTimeout) * time.Second
}

// DedupeWindow returns the duplicate-suppression window.
func (n *Notifier) DedupeWindow() time.Duration {
	if n.RateLimitMinutes <= 0 {
		return 5 * time.Minute
	}

	return time.Duration(n.RateLimitMinutes) * time.Minute
}

// RelayConfigured reports whether all required EmailJS credentials are set.
func (n *Notifier) RelayConfigured() bool {
	return n.ServiceID != "" && n.TemplateID != "" && n.PublicKey != ""
}

// LoadConfig loads the configuration from the first reveal.toml found on the
// search path and reports which directory it came from.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".reveal",
		homeDir + "/.reveal/config",
		"/etc/reveal/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/reveal.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: reveal.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// LoadConfigFromFile loads a specific config file, bypassing the search path.
func LoadConfigFromFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, err
	}

	return &config, nil
}

// checkConfigVersion validates the version of the config file.
func checkConfigVersion(version, current int) error {
	if version == 0 {
		return ErrConfigVersionMissing
	}

	if version != current {
		return fmt.Errorf("%w: found version %d, expected version %d",
			ErrConfigVersionMismatch, version, current)
	}

	return nil
}
