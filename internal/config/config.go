// Package config loads service configuration from a TOML file with
// environment variable overrides. The file is optional: every field has a
// default, and a deployment that configures everything through the
// environment needs no file at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = "config.toml"

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Admin    AdminConfig    `toml:"admin"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	// JWTSecret signs user access tokens. At least 16 characters; generate
	// with `openssl rand -hex 32`.
	JWTSecret string `toml:"jwt_secret"`

	GoogleClientID     string `toml:"google_client_id"`
	GoogleClientSecret string `toml:"google_client_secret"`
	GoogleCallbackURL  string `toml:"google_callback_url"`
}

type AdminConfig struct {
	// SessionFile is the persisted admin session record. It survives
	// process restarts; sign-out or expiry removes it.
	SessionFile string `toml:"session_file"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Load reads the TOML file at path (DefaultPath when empty), applies
// defaults, environment overrides, and validation. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// fall through to defaults
	case err != nil:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/docuflow.db"
	}
	if c.Admin.SessionFile == "" {
		c.Admin.SessionFile = "data/admin_session.json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Auth.GoogleCallbackURL == "" {
		c.Auth.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", c.Server.Port)
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DOCUFLOW_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid DOCUFLOW_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DOCUFLOW_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DOCUFLOW_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("GOOGLE_CALLBACK_URL"); v != "" {
		c.Auth.GoogleCallbackURL = v
	}
	if v := os.Getenv("DOCUFLOW_ADMIN_SESSION_FILE"); v != "" {
		c.Admin.SessionFile = v
	}
	if v := os.Getenv("DOCUFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	return nil
}
