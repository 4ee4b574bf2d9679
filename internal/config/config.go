// Package config provides YAML-based configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Sessions   SessionConfig    `yaml:"sessions"`
	Processing ProcessingConfig `yaml:"processing"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains blob storage settings
type StorageConfig struct {
	Backend        string `yaml:"backend"`
	SpoolDirectory string `yaml:"spoolDirectory"`
	TempDirectory  string `yaml:"tempDirectory"`
}

// SessionConfig contains session lifetime settings
type SessionConfig struct {
	TimeoutMinutes         int `yaml:"timeoutMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
	KeepAliveMinutes       int `yaml:"keepAliveMinutes"`
	MaxSessions            int `yaml:"maxSessions"`
}

// ProcessingConfig contains upload processing settings
type ProcessingConfig struct {
	EnableCompression bool   `yaml:"enableCompression"`
	CompressionLevel  int    `yaml:"compressionLevel"`
	MaxParallelSaves  int    `yaml:"maxParallelSaves"`
	DuckDBThreads     int    `yaml:"duckdbThreads"`
	DuckDBMemoryLimit string `yaml:"duckdbMemoryLimit"`
}

// AdvancedConfig contains logging and tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel"`
	LogFormat            string `yaml:"logFormat"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	EnableMetrics        bool   `yaml:"enableMetrics"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8501,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "200M",
		},
		Storage: StorageConfig{
			Backend:        BackendMemory,
			SpoolDirectory: "./data/spool",
			TempDirectory:  "./data/temp",
		},
		Sessions: SessionConfig{
			TimeoutMinutes:         60,
			CleanupIntervalMinutes: 5,
			KeepAliveMinutes:       5,
			MaxSessions:            100,
		},
		Processing: ProcessingConfig{
			EnableCompression: true,
			CompressionLevel:  5,
			MaxParallelSaves:  4,
			DuckDBThreads:     1,
			DuckDBMemoryLimit: "256MB",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
			EnableMetrics:        true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is created
// with the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Decoding over the defaults keeps values the file leaves out
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# File Upload App configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that have no usable fallback.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendDisk:
	default:
		return fmt.Errorf("invalid storage backend %q (want %q or %q)", c.Storage.Backend, BackendMemory, BackendDisk)
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("maxSessions must be positive, got %d", c.Sessions.MaxSessions)
	}
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("cleanupIntervalMinutes must be positive, got %d", c.Sessions.CleanupIntervalMinutes)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		c.Server.BindAddress = addr
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}

	if dir := os.Getenv("SPOOL_DIR"); dir != "" {
		c.Storage.SpoolDirectory = dir
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.SpoolDirectory) {
		c.Storage.SpoolDirectory = filepath.Join(configDir, c.Storage.SpoolDirectory)
	}
	if !filepath.IsAbs(c.Storage.TempDirectory) {
		c.Storage.TempDirectory = filepath.Join(configDir, c.Storage.TempDirectory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns how long an idle session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Sessions.TimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
}

// KeepAliveWindow returns how long a touched session is protected from eviction.
func (c *AppConfig) KeepAliveWindow() time.Duration {
	return time.Duration(c.Sessions.KeepAliveMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.TempDirectory}
	if c.Storage.Backend == BackendDisk {
		dirs = append(dirs, c.Storage.SpoolDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
