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
// built-in defaults, applies SIMBROKER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SIMBROKER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SIMBROKER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SIMBROKER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SIMBROKER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SIMBROKER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SIMBROKER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SIMBROKER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SIMBROKER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SIMBROKER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SIMBROKER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SIMBROKER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SIMBROKER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SIMBROKER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SIMBROKER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SIMBROKER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SIMBROKER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SIMBROKER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SIMBROKER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SIMBROKER_S3_REGION")
	setStr(&cfg.S3.Bucket, "SIMBROKER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SIMBROKER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SIMBROKER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SIMBROKER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SIMBROKER_S3_FORCE_PATH_STYLE")

	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "SIMBROKER_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.APIKey, "SIMBROKER_PROVIDER_API_KEY")

	// ── Updater ──
	setDuration(&cfg.Updater.Interval, "SIMBROKER_UPDATER_INTERVAL")
	setInt(&cfg.Updater.Workers, "SIMBROKER_UPDATER_WORKERS")
	setInt(&cfg.Updater.MaxCycleErrors, "SIMBROKER_UPDATER_MAX_CYCLE_ERRORS")
	setDuration(&cfg.Updater.LockTTL, "SIMBROKER_UPDATER_LOCK_TTL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SIMBROKER_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SIMBROKER_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "SIMBROKER_ARCHIVE_CRON")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SIMBROKER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SIMBROKER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SIMBROKER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SIMBROKER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SIMBROKER_MODE")
	setStr(&cfg.LogLevel, "SIMBROKER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
