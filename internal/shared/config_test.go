package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Driver != DriverSQLite {
			t.Errorf("expected driver %s, got %s", DriverSQLite, config.Database.Driver)
		}

		if config.Database.Path != "plx.db" {
			t.Errorf("expected database path plx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Engine.MaxRetries != 3 {
			t.Errorf("expected 3 retries, got %d", config.Engine.MaxRetries)
		}

		if config.Engine.BaseDelay != time.Second || config.Engine.MaxDelay != time.Minute {
			t.Errorf("unexpected delays: base=%v max=%v", config.Engine.BaseDelay, config.Engine.MaxDelay)
		}

		if config.Engine.BatchSize != MaxBatchSize {
			t.Errorf("expected batch size %d, got %d", MaxBatchSize, config.Engine.BatchSize)
		}

		if config.Locks.Backend != LockBackendMemory {
			t.Errorf("expected memory lock backend, got %s", config.Locks.Backend)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"

[engine]
max_retries = 5
base_delay = "250ms"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Engine.MaxRetries != 5 || config.Engine.BaseDelay != 250*time.Millisecond {
			t.Errorf("engine overrides not applied: %+v", config.Engine)
		}

		if config.Engine.MaxDelay != time.Minute {
			t.Errorf("unset values should keep defaults, got max_delay %v", config.Engine.MaxDelay)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("SaveConfig round trips", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_id"
		config.Daemon.Concurrency = 9

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Credentials.Spotify.ClientID != "saved_id" || loaded.Daemon.Concurrency != 9 {
			t.Errorf("saved values not restored: %+v", loaded)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("environment overrides file values", func(t *testing.T) {
		t.Setenv("PLX_ENCRYPTION_KEY", "env-secret")
		t.Setenv("PLX_SPOTIFY_CLIENT_ID", "env-client")

		config := DefaultConfig()
		config.Credentials.Spotify.ClientSecret = "from-file"

		if err := ApplyEnv(config, filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.Security.EncryptionKey != "env-secret" {
			t.Errorf("expected encryption key from env, got %q", config.Security.EncryptionKey)
		}
		if config.Credentials.Spotify.ClientID != "env-client" {
			t.Errorf("expected client id from env, got %q", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "from-file" {
			t.Errorf("unset variables should not clear values, got %q", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("dotenv file is loaded", func(t *testing.T) {
		dotenv := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(dotenv, []byte("PLX_REDIS_ADDR=localhost:6390\n"), 0600); err != nil {
			t.Fatalf("failed to write dotenv: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("PLX_REDIS_ADDR") })

		config := DefaultConfig()
		if err := ApplyEnv(config, dotenv); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.Locks.RedisAddr != "localhost:6390" {
			t.Errorf("expected redis addr from dotenv, got %q", config.Locks.RedisAddr)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"unknown lock backend", func(c *Config) { c.Locks.Backend = "etcd" }},
		{"redis without address", func(c *Config) { c.Locks.Backend = LockBackendRedis }},
		{"zero batch size", func(c *Config) { c.Engine.BatchSize = 0 }},
		{"oversized batch", func(c *Config) { c.Engine.BatchSize = MaxBatchSize + 1 }},
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }},
		{"max below base", func(c *Config) { c.Engine.MaxDelay = c.Engine.BaseDelay / 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("redis with address", func(t *testing.T) {
		config := DefaultConfig()
		config.Locks.Backend = LockBackendRedis
		config.Locks.RedisAddr = "localhost:6379"
		if err := config.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("RequireEncryptionKey", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.RequireEncryptionKey(); !errors.Is(err, ErrMissingKey) {
			t.Errorf("expected ErrMissingKey, got %v", err)
		}
		config.Security.EncryptionKey = "k"
		if err := config.RequireEncryptionKey(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
