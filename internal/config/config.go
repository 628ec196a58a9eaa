// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/vitrine.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultFallbackDurationMs        = 10000
	defaultProbeTimeout              = 30 * time.Second
	defaultProbeConcurrency          = 4
	defaultFFprobePath               = "ffprobe"
	defaultTickInterval              = 500 * time.Millisecond
	defaultSettleTimeout             = 10 * time.Second
	defaultProbeFailureThreshold     = 5
	defaultProbeBreakerReset         = 30 * time.Second
	defaultCacheEnabled              = false
	defaultCacheRedisAddr            = "localhost:6379"
	defaultCacheTTL                  = 24 * time.Hour
	envPrefix                        = "VITRINE"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Playback PlaybackConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// PlaybackConfig holds scheduling and duration probing configuration
type PlaybackConfig struct {
	// FallbackDurationMs is used for auto items whose duration cannot be probed
	FallbackDurationMs int64
	ProbeTimeout       time.Duration
	ProbeConcurrency   int
	FFprobePath        string
	// TickInterval is the push cadence of the state stream
	TickInterval time.Duration
	// SettleTimeout bounds how long a state request waits for pending probes
	SettleTimeout time.Duration
	// ProbeFailureThreshold consecutive ffprobe tool failures suspend probing for
	// ProbeBreakerReset
	ProbeFailureThreshold int
	ProbeBreakerReset     time.Duration
}

// CacheConfig holds the optional Redis probe cache configuration
type CacheConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vitrine")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	v.SetDefault("playback.fallbackdurationms", defaultFallbackDurationMs)
	v.SetDefault("playback.probetimeout", defaultProbeTimeout)
	v.SetDefault("playback.probeconcurrency", defaultProbeConcurrency)
	v.SetDefault("playback.ffprobepath", defaultFFprobePath)
	v.SetDefault("playback.tickinterval", defaultTickInterval)
	v.SetDefault("playback.settletimeout", defaultSettleTimeout)
	v.SetDefault("playback.probefailurethreshold", defaultProbeFailureThreshold)
	v.SetDefault("playback.probebreakerreset", defaultProbeBreakerReset)

	v.SetDefault("cache.enabled", defaultCacheEnabled)
	v.SetDefault("cache.redisaddr", defaultCacheRedisAddr)
	v.SetDefault("cache.redispassword", "")
	v.SetDefault("cache.redisdb", 0)
	v.SetDefault("cache.ttl", defaultCacheTTL)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Playback.FallbackDurationMs <= 0 {
		return fmt.Errorf("invalid fallback duration: %d ms (must be > 0)", c.Playback.FallbackDurationMs)
	}
	if c.Playback.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %v (must be > 0)", c.Playback.ProbeTimeout)
	}
	if c.Playback.ProbeConcurrency < 1 {
		return fmt.Errorf("invalid probe concurrency: %d (must be >= 1)", c.Playback.ProbeConcurrency)
	}
	if c.Playback.TickInterval <= 0 {
		return fmt.Errorf("invalid tick interval: %v (must be > 0)", c.Playback.TickInterval)
	}
	if c.Playback.SettleTimeout <= 0 {
		return fmt.Errorf("invalid settle timeout: %v (must be > 0)", c.Playback.SettleTimeout)
	}
	if c.Playback.ProbeFailureThreshold < 1 {
		return fmt.Errorf("invalid probe failure threshold: %d (must be >= 1)", c.Playback.ProbeFailureThreshold)
	}
	if c.Playback.ProbeBreakerReset <= 0 {
		return fmt.Errorf("invalid probe breaker reset: %v (must be > 0)", c.Playback.ProbeBreakerReset)
	}

	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return errors.New("cache is enabled but no redis address is configured")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid cache ttl: %v (must be >= 0)", c.Cache.TTL)
	}

	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
