// Package config defines the top-level configuration for the sync service
// and provides validation helpers.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARENASYNC_* environment
// variables.
type Config struct {
	Chain       ChainConfig       `toml:"chain"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Sync        SyncConfig        `toml:"sync"`
	Server      ServerConfig      `toml:"server"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Import      ImportConfig      `toml:"import"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// ChainConfig holds EVM endpoint and contract parameters.
type ChainConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ChainID         int64  `toml:"chain_id"`
	RegistryAddress string `toml:"registry_address"`
	StakeTokenName  string `toml:"stake_token_name"`
	// OperatorKey enables the close-market write path when set.
	OperatorKey string `toml:"operator_key"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SyncConfig holds freshness and sweep parameters.
type SyncConfig struct {
	// Freshness is how long a mirrored value answers reads without a
	// refetch.
	Freshness duration `toml:"freshness"`
	// SweepInterval is the pause between periodic full sweeps. Zero
	// disables the sweeper in serve mode.
	SweepInterval duration `toml:"sweep_interval"`
	// CacheEnabled switches the Redis snapshot cache and serve-stale
	// behavior on. With it off, every stale read blocks on the chain and
	// failures surface to the caller.
	CacheEnabled bool `toml:"cache_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// LeaderboardConfig holds the webhook credentials and the optional seed
// roster installed by the seed endpoint.
type LeaderboardConfig struct {
	WebhookPassphrase string      `toml:"webhook_passphrase"`
	WebhookSalt       string      `toml:"webhook_salt"`
	Seed              []SeedEntry `toml:"seed"`
}

// SeedEntry is one participant of the initial leaderboard.
type SeedEntry struct {
	Name    string `toml:"name"`
	LogoURL string `toml:"logo_url"`
}

// ImportConfig holds defaults for import mode.
type ImportConfig struct {
	ManifestKey string   `toml:"manifest_key"`
	Addresses   []string `toml:"addresses"`
}

// duration wraps time.Duration so the TOML decoder accepts strings like
// "30s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var validModes = map[string]bool{
	"serve":  true,
	"sweep":  true,
	"import": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration that Load starts from.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			StakeTokenName: "stakeToken",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arenasync",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "arenasync-data",
			ForcePathStyle: true,
		},
		Sync: SyncConfig{
			Freshness:     duration{30 * time.Second},
			SweepInterval: duration{5 * time.Minute},
			CacheEnabled:  true,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8080,
			RateLimit:       60,
			RateLimitWindow: duration{time.Minute},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies and returns a
// single error listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, sweep, import)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if c.Chain.RegistryAddress == "" {
		errs = append(errs, "chain: registry_address must not be empty")
	}

	if c.Postgres.DSN == "" && c.Postgres.Host == "" {
		errs = append(errs, "postgres: either dsn or host must be set")
	}

	if c.Sync.CacheEnabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must be set when sync.cache_enabled is true")
	}
	if c.Sync.Freshness.Duration < 0 {
		errs = append(errs, "sync: freshness must not be negative")
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must be set when s3 is enabled")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	// Webhook credentials come as a pair.
	hp := c.Leaderboard.WebhookPassphrase != ""
	hs := c.Leaderboard.WebhookSalt != ""
	if hp != hs {
		errs = append(errs, "leaderboard: webhook_passphrase and webhook_salt must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SlogLevel maps the configured log level to its slog constant.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// PostgresDSN assembles a connection string from the discrete fields when
// no explicit DSN is configured.
func (c *Config) PostgresDSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User, c.Postgres.Password,
		c.Postgres.Host, c.Postgres.Port,
		c.Postgres.Database, c.Postgres.SSLMode,
	)
}
