// Package config defines the top-level configuration for the oracle
// aggregator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ORACLEWATCH_* environment variables.
type Config struct {
	Oracle   OracleConfig    `toml:"oracle"`
	Networks []NetworkConfig `toml:"networks"`
	Costs    CostsConfig     `toml:"costs"`
	Redis    RedisConfig     `toml:"redis"`
	Server   ServerConfig    `toml:"server"`
	Notify   NotifyConfig    `toml:"notify"`
	Mode     string          `toml:"mode"`
	LogLevel string          `toml:"log_level"`
}

// OracleConfig holds the aggregation and detection parameters.
type OracleConfig struct {
	// Assets are the logical asset identifiers to monitor (e.g. "ETH/USD").
	Assets []string `toml:"assets"`
	// ThresholdPercent is the deviation percentage above which a round
	// triggers recommendation ranking.
	ThresholdPercent float64 `toml:"threshold_percent"`
	// PollInterval is the fixed time between evaluation rounds.
	PollInterval duration `toml:"poll_interval"`
	// CallTimeout bounds each per-network contract read.
	CallTimeout duration `toml:"call_timeout"`
	// RequireCosts excludes network pairs without a cost estimate from the
	// ranking instead of defaulting the missing side to zero.
	RequireCosts bool `toml:"require_costs"`
}

// NetworkConfig describes one blockchain network and its per-asset feed
// contract addresses.
type NetworkConfig struct {
	Name    string            `toml:"name"`
	RPCURL  string            `toml:"rpc_url"`
	ChainID int64             `toml:"chain_id"`
	Feeds   map[string]string `toml:"feeds"` // asset -> feed contract address
}

// CostsConfig selects and parameterizes the cost estimator.
type CostsConfig struct {
	// Mode selects the estimator: "static" (fixed table) or "chain" (live
	// per-network gas price).
	Mode string `toml:"mode"`
	// GasUnits is the gas consumed by one trade leg, used by the chain
	// estimator.
	GasUnits int64 `toml:"gas_units"`
	// Static is the fixed per-network cost table for the static estimator,
	// in the same unit as asset prices.
	Static map[string]float64 `toml:"static"`
	// NativeUSD maps each network to its native token price, used by the
	// chain estimator to convert gas costs into the asset-price unit.
	NativeUSD map[string]float64 `toml:"native_usd"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Oracle: OracleConfig{
			Assets:           []string{"ETH/USD"},
			ThresholdPercent: 1.0,
			PollInterval:     duration{30 * time.Second},
			CallTimeout:      duration{5 * time.Second},
			RequireCosts:     false,
		},
		Costs: CostsConfig{
			Mode:     "static",
			GasUnits: 250_000,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"monitor": true,
	"serve":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validCostModes = map[string]bool{
	"static": true,
	"chain":  true,
}

// Validate checks the configuration for consistency and returns an error
// listing every problem found. An empty network registry is the one startup
// condition that is fatal to the whole system.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, serve)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Oracle
	if len(c.Oracle.Assets) == 0 {
		errs = append(errs, "oracle: at least one asset must be configured")
	}
	if c.Oracle.ThresholdPercent < 0 {
		errs = append(errs, fmt.Sprintf("oracle: threshold_percent must not be negative, got %v", c.Oracle.ThresholdPercent))
	}
	if c.Oracle.PollInterval.Duration <= 0 {
		errs = append(errs, "oracle: poll_interval must be positive")
	}
	if c.Oracle.CallTimeout.Duration <= 0 {
		errs = append(errs, "oracle: call_timeout must be positive")
	}

	// Networks — an empty registry can never produce a comparison.
	if len(c.Networks) == 0 {
		errs = append(errs, "networks: at least one network must be configured")
	}
	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.Name == "" {
			errs = append(errs, fmt.Sprintf("networks[%d]: name must not be empty", i))
			continue
		}
		if seen[n.Name] {
			errs = append(errs, fmt.Sprintf("networks: duplicate name %q", n.Name))
		}
		seen[n.Name] = true
		if n.RPCURL == "" {
			errs = append(errs, fmt.Sprintf("networks[%s]: rpc_url must not be empty", n.Name))
		}
	}

	// Costs
	if !validCostModes[strings.ToLower(c.Costs.Mode)] {
		errs = append(errs, fmt.Sprintf("costs: unknown mode %q (valid: static, chain)", c.Costs.Mode))
	}
	if strings.ToLower(c.Costs.Mode) == "chain" && c.Costs.GasUnits <= 0 {
		errs = append(errs, "costs: gas_units must be positive in chain mode")
	}

	// Server
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be in 1..65535, got %d", c.Server.Port))
	}

	// Notify — token and chat ID go together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
