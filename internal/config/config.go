// Package config loads flood-memory settings from defaults, an optional YAML
// file and FLOOD_MEMORY_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

// DatabaseFile is the SQLite file name inside Dir.
const DatabaseFile = "memory.db"

type Config struct {
	Dir       string `yaml:"dir"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
	Backend   string `yaml:"backend"`

	Neo4j Neo4jConfig `yaml:"neo4j"`

	Log     LogConfig `yaml:"log"`
	Tracing bool      `yaml:"tracing"`

	WebhookURL    string   `yaml:"webhook_url"`
	WebhookEvents []string `yaml:"webhook_events"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := filepath.Join("~", "flood", "memory")
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, "flood", "memory")
	}
	return &Config{
		Dir:     dir,
		Host:    "0.0.0.0",
		Port:    8080,
		Backend: BackendSQLite,
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Dir = expandHome(cfg.Dir)

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("FLOOD_MEMORY_DIR", &c.Dir)
	str("FLOOD_MEMORY_HOST", &c.Host)
	str("FLOOD_MEMORY_AUTH_TOKEN", &c.AuthToken)
	str("FLOOD_MEMORY_BACKEND", &c.Backend)
	str("FLOOD_MEMORY_LOG_LEVEL", &c.Log.Level)
	str("FLOOD_MEMORY_LOG_FORMAT", &c.Log.Format)
	str("FLOOD_MEMORY_WEBHOOK_URL", &c.WebhookURL)
	str("NEO4J_URI", &c.Neo4j.URI)
	str("NEO4J_USER", &c.Neo4j.User)
	str("NEO4J_PASSWORD", &c.Neo4j.Password)
	str("NEO4J_DATABASE", &c.Neo4j.Database)

	if v, ok := lookup("FLOOD_MEMORY_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FLOOD_MEMORY_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := lookup("FLOOD_MEMORY_TRACING"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FLOOD_MEMORY_TRACING %q: %w", v, err)
		}
		c.Tracing = enabled
	}
	return nil
}

// Validate checks the fields that have a closed set of values.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendSQLite:
		if c.Dir == "" {
			errs = append(errs, errors.New("dir is required for the sqlite backend"))
		}
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			errs = append(errs, errors.New("neo4j.uri is required for the neo4j backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// DatabasePath is the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Dir, DatabaseFile)
}

// EnsureDir creates the data directory if needed.
func (c *Config) EnsureDir() error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
