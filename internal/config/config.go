package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the projector configuration.
type Config struct {
	Env     string        `yaml:"env" env:"PROJECTOR_ENV"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	Schema  SchemaConfig  `yaml:"schema"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port" env:"PROJECTOR_HTTP_PORT"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec" env:"PROJECTOR_HTTP_READ_TIMEOUT_SEC"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec" env:"PROJECTOR_HTTP_WRITE_TIMEOUT_SEC"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec" env:"PROJECTOR_HTTP_SHUTDOWN_TIMEOUT_SEC"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes" env:"PROJECTOR_HTTP_MAX_BODY_BYTES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" env:"PROJECTOR_LOG_LEVEL"` // debug, info, warn, error (default: determined by env)
}

// SchemaConfig points at the default JSON Schema used when a request
// carries none.
type SchemaConfig struct {
	Path string `yaml:"path" env:"PROJECTOR_SCHEMA_PATH"`
}

// Load reads the YAML file at path (when non-empty), applies environment
// overrides, then defaults, then validates.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 15
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	switch c.Env {
	case "local", "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("env must be one of local, dev, prod, got %q", c.Env))
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
