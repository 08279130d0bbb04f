package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	Preview PreviewConfig `yaml:"preview"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8080"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"20m"`
}

// StoreConfig holds the transient artifact directory configuration.
type StoreConfig struct {
	Dir          string `yaml:"dir" envconfig:"STORE_DIR" default:"/tmp/downloads"`
	MaxArtifacts int    `yaml:"max_artifacts" envconfig:"STORE_MAX_ARTIFACTS" default:"5"`
}

// EngineConfig holds extraction engine invocation configuration.
type EngineConfig struct {
	Path               string        `yaml:"path" envconfig:"YT_DLP_PATH" default:"yt-dlp"`
	MetadataTimeout    time.Duration `yaml:"metadata_timeout" envconfig:"ENGINE_METADATA_TIMEOUT" default:"30s"`
	MaterializeTimeout time.Duration `yaml:"materialize_timeout" envconfig:"ENGINE_MATERIALIZE_TIMEOUT" default:"15m"`
}

// PreviewConfig holds inline-preview proxy configuration.
type PreviewConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"PREVIEW_TIMEOUT" default:"30s"`
	UserAgent string        `yaml:"user_agent" envconfig:"PREVIEW_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Store.Dir == "" {
		return fmt.Errorf("STORE_DIR is required")
	}
	if c.Store.MaxArtifacts <= 0 {
		return fmt.Errorf("STORE_MAX_ARTIFACTS must be positive")
	}
	if c.Engine.Path == "" {
		return fmt.Errorf("YT_DLP_PATH is required")
	}
	if c.Engine.MetadataTimeout <= 0 || c.Engine.MaterializeTimeout <= 0 {
		return fmt.Errorf("engine timeouts must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
