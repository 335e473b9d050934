package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the environment variable pointing at an optional TOML
// file. Values from the file are defaults; environment variables win.
const ConfigFileEnv = "CARPOOL_CONFIG"

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Auth     AuthConfig     `toml:"auth"`
	NewRelic NewRelicConfig `toml:"newrelic"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string   `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// StoreConfig selects where snapshots are written.
type StoreConfig struct {
	Backend string `toml:"backend"`  // file, postgres or memory
	DataDir string `toml:"data_dir"` // file backend only
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
}

// RedisConfig holds Redis configuration. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// AuthConfig holds login settings.
type AuthConfig struct {
	Credentials string   `toml:"credentials"` // plain or bcrypt
	SessionTTL  Duration `toml:"session_ttl"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `toml:"app_name"`
	LicenseKey string `toml:"license_key"`
	Enabled    bool   `toml:"enabled"`
}

// Duration is a time.Duration that decodes from TOML strings like "10s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{
			Backend: StoreFile,
			DataDir: "data",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "carpool",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{},
		Auth: AuthConfig{
			Credentials: "plain",
			SessionTTL:  Duration(12 * time.Hour),
		},
		NewRelic: NewRelicConfig{
			AppName: "carpool-service",
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by CARPOOL_CONFIG, and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Auth.Credentials {
	case "plain", "bcrypt":
	default:
		return fmt.Errorf("unknown credential strategy %q", c.Auth.Credentials)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = Duration(getDurationEnv("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout.Std()))
	cfg.Server.WriteTimeout = Duration(getDurationEnv("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout.Std()))

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.DataDir = getEnv("DATA_DIR", cfg.Store.DataDir)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getIntEnv("REDIS_DB", cfg.Redis.DB)

	cfg.Auth.Credentials = getEnv("AUTH_CREDENTIALS", cfg.Auth.Credentials)
	cfg.Auth.SessionTTL = Duration(getDurationEnv("SESSION_TTL", cfg.Auth.SessionTTL.Std()))

	cfg.NewRelic.AppName = getEnv("NEW_RELIC_APP_NAME", cfg.NewRelic.AppName)
	cfg.NewRelic.LicenseKey = getEnv("NEW_RELIC_LICENSE_KEY", cfg.NewRelic.LicenseKey)
	cfg.NewRelic.Enabled = getBoolEnv("NEW_RELIC_ENABLED", cfg.NewRelic.Enabled)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
