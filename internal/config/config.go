package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMariaDB  = "mariadb"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Match     MatchConfig     `yaml:"match"`
	Web       WebConfig       `yaml:"web"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // PostgreSQL URL or MariaDB DSN
	Driver       string `yaml:"driver"`         // postgres or mariadb
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections
}

type EmbeddingConfig struct {
	URL            string `yaml:"url"` // face detection and embedding server
	Dim            int    `yaml:"dim"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MatchConfig struct {
	// Threshold is the cosine similarity at or above which two faces belong to the same student.
	Threshold float64 `yaml:"threshold"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxImageBytes  int      `yaml:"max_image_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float. Invalid values keep the default.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Defaults returns the configuration embedded in the binary.
func Defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

// Load returns the embedded defaults overridden by environment variables.
func Load() *Config {
	d := Defaults()

	return &Config{
		Database: DatabaseConfig{
			URL:          envString("DATABASE_URL", d.Database.URL),
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", d.Database.Driver)),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Embedding: EmbeddingConfig{
			URL:            envString("EMBEDDING_URL", d.Embedding.URL),
			Dim:            envInt("EMBEDDING_DIM", d.Embedding.Dim),
			TimeoutSeconds: envInt("EMBEDDING_TIMEOUT_SECONDS", d.Embedding.TimeoutSeconds),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", d.Match.Threshold),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
			MaxImageBytes:  envInt("MAX_IMAGE_BYTES", d.Web.MaxImageBytes),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", d.Log.Level),
			Format: strings.ToLower(envString("LOG_FORMAT", d.Log.Format)),
		},
	}
}

// Validate checks values that would make the service misbehave rather than fail.
func (c *Config) Validate() error {
	var errs []error
	if !(c.Match.Threshold > 0 && c.Match.Threshold <= 1) {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", c.Match.Threshold))
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMariaDB:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMariaDB, c.Database.Driver))
	}
	if c.Embedding.URL == "" {
		errs = append(errs, errors.New("EMBEDDING_URL is required"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
