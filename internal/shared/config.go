package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Secrets can be supplied through the environment (or a .env file) instead of the TOML file;
// see [ApplyEnv].
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Security    SecurityConfig    `toml:"security"`
	Engine      EngineConfig      `toml:"engine"`
	Daemon      DaemonConfig      `toml:"daemon"`
	Locks       LocksConfig       `toml:"locks"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"PLX_SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"PLX_SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"PLX_SPOTIFY_REDIRECT_URI"`
}

// Map returns the credentials in the shape expected by services constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// DatabaseConfig contains database connection settings.
//
// Driver is "sqlite3" (Path is the file) or "pgx" (DSN is the connection string).
type DatabaseConfig struct {
	Driver       string `toml:"driver" env:"PLX_DATABASE_DRIVER"`
	Path         string `toml:"path"`
	DSN          string `toml:"dsn" env:"PLX_DATABASE_DSN"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Source returns the driver specific data source name.
func (d DatabaseConfig) Source() string {
	if d.Driver == DriverPostgres {
		return d.DSN
	}
	return d.Path
}

// ServerConfig contains HTTP server settings for the OAuth callback listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds the key material used to encrypt stored refresh tokens.
type SecurityConfig struct {
	EncryptionKey string `toml:"encryption_key" env:"PLX_ENCRYPTION_KEY"`
}

// EngineConfig tunes retries, batching and request pacing for scheduled runs.
type EngineConfig struct {
	MaxRetries        int           `toml:"max_retries"`
	BaseDelay         time.Duration `toml:"base_delay"`
	MaxDelay          time.Duration `toml:"max_delay"`
	BatchSize         int           `toml:"batch_size"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	ErrorTextLimit    int           `toml:"error_text_limit"`
}

// DaemonConfig configures the cron trigger.
type DaemonConfig struct {
	Concurrency    int           `toml:"concurrency"`
	ReloadInterval time.Duration `toml:"reload_interval"`
}

// LocksConfig selects the per-schedule lock backend.
type LocksConfig struct {
	Backend   string        `toml:"backend"`
	RedisAddr string        `toml:"redis_addr" env:"PLX_REDIS_ADDR"`
	TTL       time.Duration `toml:"ttl"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level" env:"PLX_LOG_LEVEL"`
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	// MaxBatchSize is the largest number of URIs the playlist API accepts per call.
	MaxBatchSize = 100
)

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv loads dotenv (if present) and overlays PLX_* environment variables onto config.
func ApplyEnv(config *Config, dotenvPaths ...string) error {
	if err := godotenv.Load(dotenvPaths...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	switch c.Locks.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if c.Locks.RedisAddr == "" {
			return fmt.Errorf("%w: locks.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown lock backend %q", ErrInvalidConfig, c.Locks.Backend)
	}

	if c.Engine.BatchSize <= 0 || c.Engine.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: engine.batch_size must be between 1 and %d", ErrInvalidConfig, MaxBatchSize)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("%w: engine.max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Engine.BaseDelay <= 0 || c.Engine.MaxDelay < c.Engine.BaseDelay {
		return fmt.Errorf("%w: engine delays must satisfy 0 < base_delay <= max_delay", ErrInvalidConfig)
	}

	return nil
}

// RequireEncryptionKey reports [ErrMissingKey] when no key material is configured.
func (c *Config) RequireEncryptionKey() error {
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("%w: set security.encryption_key or PLX_ENCRYPTION_KEY", ErrMissingKey)
	}
	return nil
}
