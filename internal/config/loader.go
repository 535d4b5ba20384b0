package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARENASYNC_* environment variable overrides,
// and returns the final Config. The result has NOT been validated; call
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from well-known ARENASYNC_*
// environment variables so operators can inject secrets at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Chain.RPCURL, "ARENASYNC_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "ARENASYNC_CHAIN_ID")
	setStr(&cfg.Chain.RegistryAddress, "ARENASYNC_CHAIN_REGISTRY_ADDRESS")
	setStr(&cfg.Chain.StakeTokenName, "ARENASYNC_CHAIN_STAKE_TOKEN_NAME")
	setStr(&cfg.Chain.OperatorKey, "ARENASYNC_CHAIN_OPERATOR_KEY")

	setStr(&cfg.Postgres.DSN, "ARENASYNC_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARENASYNC_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARENASYNC_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARENASYNC_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARENASYNC_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARENASYNC_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARENASYNC_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARENASYNC_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARENASYNC_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARENASYNC_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "ARENASYNC_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARENASYNC_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARENASYNC_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARENASYNC_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARENASYNC_REDIS_MAX_RETRIES")

	setBool(&cfg.S3.Enabled, "ARENASYNC_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARENASYNC_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARENASYNC_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARENASYNC_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARENASYNC_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARENASYNC_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "ARENASYNC_S3_FORCE_PATH_STYLE")

	setDuration(&cfg.Sync.Freshness, "ARENASYNC_SYNC_FRESHNESS")
	setDuration(&cfg.Sync.SweepInterval, "ARENASYNC_SYNC_SWEEP_INTERVAL")
	setBool(&cfg.Sync.CacheEnabled, "ARENASYNC_SYNC_CACHE_ENABLED")

	setBool(&cfg.Server.Enabled, "ARENASYNC_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARENASYNC_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARENASYNC_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARENASYNC_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ARENASYNC_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "ARENASYNC_SERVER_RATE_LIMIT_WINDOW")

	setStr(&cfg.Leaderboard.WebhookPassphrase, "ARENASYNC_LEADERBOARD_WEBHOOK_PASSPHRASE")
	setStr(&cfg.Leaderboard.WebhookSalt, "ARENASYNC_LEADERBOARD_WEBHOOK_SALT")

	setStr(&cfg.Import.ManifestKey, "ARENASYNC_IMPORT_MANIFEST_KEY")
	setStringSlice(&cfg.Import.Addresses, "ARENASYNC_IMPORT_ADDRESSES")

	setStr(&cfg.Mode, "ARENASYNC_MODE")
	setStr(&cfg.LogLevel, "ARENASYNC_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
