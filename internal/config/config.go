package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kanban/internal/board"
	"kanban/internal/util"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all kanban configuration.
type Config struct {
	// HTTP listen address
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	Database DatabaseConfig `yaml:"database"`

	// Roster seeded into the members table at startup
	Members []string `yaml:"members"`

	Board   BoardConfig   `yaml:"board"`
	CORS    CORSConfig    `yaml:"cors"`
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig selects and locates the store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// BoardConfig tunes the board aggregation.
type BoardConfig struct {
	OwnerMatch string `yaml:"owner_match"` // exact, contains
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ShutdownTimeout: "5s",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "data/kanban.db",
		},
		Board: BoardConfig{OwnerMatch: string(board.MatchExact)},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML configuration file and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies KANBAN_* environment variables.
func (c *Config) applyEnvOverrides() {
	c.Addr = util.EnvOrDefault("KANBAN_ADDR", c.Addr)
	c.ShutdownTimeout = util.EnvOrDefault("KANBAN_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.Database.Driver = util.EnvOrDefault("KANBAN_DB_DRIVER", c.Database.Driver)
	c.Database.Path = util.EnvOrDefault("KANBAN_DB_PATH", c.Database.Path)
	c.Database.DSN = util.EnvOrDefault("DATABASE_URL", c.Database.DSN)
	c.Database.DSN = util.EnvOrDefault("KANBAN_DB_DSN", c.Database.DSN)

	c.Members = util.EnvList("KANBAN_MEMBERS", c.Members)
	c.Board.OwnerMatch = util.EnvOrDefault("KANBAN_OWNER_MATCH", c.Board.OwnerMatch)
	c.CORS.AllowedOrigins = util.EnvList("KANBAN_CORS_ORIGINS", c.CORS.AllowedOrigins)

	c.Logging.Level = util.EnvOrDefault("KANBAN_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = util.EnvOrDefault("KANBAN_LOG_FORMAT", c.Logging.Format)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if _, err := c.ShutdownDuration(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if _, err := board.ParseOwnerMatch(c.Board.OwnerMatch); err != nil {
		return err
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

// ShutdownDuration parses ShutdownTimeout, defaulting to five seconds.
func (c *Config) ShutdownDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return d, nil
}

// OwnerMatch returns the configured owner filter mode.
func (c *Config) OwnerMatch() board.OwnerMatch {
	m, err := board.ParseOwnerMatch(c.Board.OwnerMatch)
	if err != nil {
		return board.MatchExact
	}
	return m
}
