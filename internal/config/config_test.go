package config

import (
	"os"
	"testing"
	"time"
)

// validConfig returns a configuration that passes validation
func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Database: DatabaseConfig{
			Path:              "./data/vitrine.db",
			ConnectionTimeout: defaultDatabaseConnectionTimeout,
			EnableWAL:         true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Playback: PlaybackConfig{
			FallbackDurationMs: 10000,
			ProbeTimeout:       defaultProbeTimeout,
			ProbeConcurrency:   4,
			FFprobePath:        "ffprobe",
			TickInterval:       defaultTickInterval,
			SettleTimeout:      defaultSettleTimeout,

			ProbeFailureThreshold: defaultProbeFailureThreshold,
			ProbeBreakerReset:     defaultProbeBreakerReset,
		},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
			TTL:       time.Hour,
		},
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != defaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, defaultServerPort)
	}
	if cfg.Server.Host != defaultServerHost {
		t.Errorf("Server.Host = %s, want %s", cfg.Server.Host, defaultServerHost)
	}

	if cfg.Database.Path != defaultDatabasePath {
		t.Errorf("Database.Path = %s, want %s", cfg.Database.Path, defaultDatabasePath)
	}
	if cfg.Database.EnableWAL != defaultDatabaseEnableWAL {
		t.Errorf("Database.EnableWAL = %v, want %v", cfg.Database.EnableWAL, defaultDatabaseEnableWAL)
	}
	if cfg.Database.MigrationsPath != defaultMigrationsPath {
		t.Errorf("Database.MigrationsPath = %s, want %s", cfg.Database.MigrationsPath, defaultMigrationsPath)
	}

	if cfg.Logging.Level != defaultLogLevel {
		t.Errorf("Logging.Level = %s, want %s", cfg.Logging.Level, defaultLogLevel)
	}
	if cfg.Logging.Pretty != defaultLogPretty {
		t.Errorf("Logging.Pretty = %v, want %v", cfg.Logging.Pretty, defaultLogPretty)
	}

	if cfg.Playback.FallbackDurationMs != defaultFallbackDurationMs {
		t.Errorf("Playback.FallbackDurationMs = %d, want %d", cfg.Playback.FallbackDurationMs, defaultFallbackDurationMs)
	}
	if cfg.Playback.ProbeTimeout != defaultProbeTimeout {
		t.Errorf("Playback.ProbeTimeout = %v, want %v", cfg.Playback.ProbeTimeout, defaultProbeTimeout)
	}
	if cfg.Playback.ProbeConcurrency != defaultProbeConcurrency {
		t.Errorf("Playback.ProbeConcurrency = %d, want %d", cfg.Playback.ProbeConcurrency, defaultProbeConcurrency)
	}
	if cfg.Playback.TickInterval != defaultTickInterval {
		t.Errorf("Playback.TickInterval = %v, want %v", cfg.Playback.TickInterval, defaultTickInterval)
	}

	if cfg.Cache.Enabled != defaultCacheEnabled {
		t.Errorf("Cache.Enabled = %v, want %v", cfg.Cache.Enabled, defaultCacheEnabled)
	}
	if cfg.Cache.TTL != defaultCacheTTL {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, defaultCacheTTL)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "invalid server port (too low)", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "invalid server port (too high)", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "invalid read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Logging.Level = "invalid" }, wantErr: true},
		{name: "zero fallback duration", mutate: func(c *Config) { c.Playback.FallbackDurationMs = 0 }, wantErr: true},
		{name: "zero probe timeout", mutate: func(c *Config) { c.Playback.ProbeTimeout = 0 }, wantErr: true},
		{name: "zero probe concurrency", mutate: func(c *Config) { c.Playback.ProbeConcurrency = 0 }, wantErr: true},
		{name: "zero tick interval", mutate: func(c *Config) { c.Playback.TickInterval = 0 }, wantErr: true},
		{name: "zero settle timeout", mutate: func(c *Config) { c.Playback.SettleTimeout = 0 }, wantErr: true},
		{name: "zero failure threshold", mutate: func(c *Config) { c.Playback.ProbeFailureThreshold = 0 }, wantErr: true},
		{name: "zero breaker reset", mutate: func(c *Config) { c.Playback.ProbeBreakerReset = 0 }, wantErr: true},
		{name: "cache enabled without address", mutate: func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.RedisAddr = ""
		}, wantErr: true},
		{name: "cache enabled with address", mutate: func(c *Config) { c.Cache.Enabled = true }},
		{name: "cache ttl zero keeps forever", mutate: func(c *Config) { c.Cache.TTL = 0 }},
		{name: "negative cache ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaybackConfigEnvVars(t *testing.T) {
	_ = os.Setenv("VITRINE_PLAYBACK_FALLBACKDURATIONMS", "15000")
	_ = os.Setenv("VITRINE_PLAYBACK_PROBECONCURRENCY", "8")
	_ = os.Setenv("VITRINE_PLAYBACK_TICKINTERVAL", "250ms")
	_ = os.Setenv("VITRINE_CACHE_ENABLED", "true")
	_ = os.Setenv("VITRINE_CACHE_REDISADDR", "redis:6379")
	defer func() {
		_ = os.Unsetenv("VITRINE_PLAYBACK_FALLBACKDURATIONMS")
		_ = os.Unsetenv("VITRINE_PLAYBACK_PROBECONCURRENCY")
		_ = os.Unsetenv("VITRINE_PLAYBACK_TICKINTERVAL")
		_ = os.Unsetenv("VITRINE_CACHE_ENABLED")
		_ = os.Unsetenv("VITRINE_CACHE_REDISADDR")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Playback.FallbackDurationMs != 15000 {
		t.Errorf("Playback.FallbackDurationMs = %d, want 15000", cfg.Playback.FallbackDurationMs)
	}
	if cfg.Playback.ProbeConcurrency != 8 {
		t.Errorf("Playback.ProbeConcurrency = %d, want 8", cfg.Playback.ProbeConcurrency)
	}
	if cfg.Playback.TickInterval != 250*time.Millisecond {
		t.Errorf("Playback.TickInterval = %v, want 250ms", cfg.Playback.TickInterval)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled = false, want true")
	}
	if cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("Cache.RedisAddr = %s, want redis:6379", cfg.Cache.RedisAddr)
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name  string
		slice []string
		item  string
		want  bool
	}{
		{name: "item exists", slice: []string{"one", "two", "three"}, item: "two", want: true},
		{name: "item does not exist", slice: []string{"one", "two", "three"}, item: "four", want: false},
		{name: "empty slice", slice: []string{}, item: "one", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contains(tt.slice, tt.item); got != tt.want {
				t.Errorf("contains() = %v, want %v", got, tt.want)
			}
		})
	}
}
