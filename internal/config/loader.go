package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORACLEWATCH_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ORACLEWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "ORACLEWATCH_MODE")
	setStr(&cfg.LogLevel, "ORACLEWATCH_LOG_LEVEL")

	// ── Oracle ──
	setFloat(&cfg.Oracle.ThresholdPercent, "ORACLEWATCH_ORACLE_THRESHOLD_PERCENT")
	setBool(&cfg.Oracle.RequireCosts, "ORACLEWATCH_ORACLE_REQUIRE_COSTS")

	// ── Per-network RPC URL overrides, keyed by upper-cased network name:
	// ORACLEWATCH_RPC_ETHEREUM, ORACLEWATCH_RPC_POLYGON, ... ──
	for i := range cfg.Networks {
		key := "ORACLEWATCH_RPC_" + strings.ToUpper(strings.ReplaceAll(cfg.Networks[i].Name, "-", "_"))
		setStr(&cfg.Networks[i].RPCURL, key)
	}

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ORACLEWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ORACLEWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORACLEWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORACLEWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORACLEWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ORACLEWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ORACLEWATCH_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ORACLEWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ORACLEWATCH_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ORACLEWATCH_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ORACLEWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORACLEWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORACLEWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
}

// setStr overwrites dst with the value of the environment variable key when
// it is set and non-empty.
func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt overwrites dst when the environment variable parses as an integer.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setFloat overwrites dst when the environment variable parses as a float.
func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// setBool overwrites dst when the environment variable parses as a boolean.
func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
