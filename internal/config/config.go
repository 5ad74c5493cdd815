// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MinPlaytimeSeconds is the cumulative playtime a player needs before their
// holdings are checked at all. It is not configurable.
const MinPlaytimeSeconds = 300

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Token        TokenConfig        `mapstructure:"token"`
	Eligibility  EligibilityConfig  `mapstructure:"eligibility"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	Solana       SolanaConfig       `mapstructure:"solana"`
	Wallet       WalletConfig       `mapstructure:"wallet"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Price        PriceConfig        `mapstructure:"price"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Bot          BotConfig          `mapstructure:"bot"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	CronSecret   string        `mapstructure:"cron_secret"`
	AdminSecret  string        `mapstructure:"admin_secret"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// TokenConfig identifies the SPL token whose holders share the taxes.
type TokenConfig struct {
	Mint   string `mapstructure:"mint"`
	Symbol string `mapstructure:"symbol"`
}

// EligibilityConfig holds reconciler thresholds and pacing.
type EligibilityConfig struct {
	MinHoldingUSD   float64 `mapstructure:"min_holding_usd"`
	ChecksPerSecond float64 `mapstructure:"checks_per_second"`
	Burst           int     `mapstructure:"burst"`
}

// DistributionConfig holds tax distribution parameters. Amounts are in SOL.
type DistributionConfig struct {
	Rate               float64 `mapstructure:"rate"`
	FeeBuffer          float64 `mapstructure:"fee_buffer"`
	MinPerRecipient    float64 `mapstructure:"min_per_recipient"`
	TransfersPerSecond float64 `mapstructure:"transfers_per_second"`
}

// SolanaConfig holds RPC provider configuration.
type SolanaConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	APIKey     string `mapstructure:"api_key"`
	Commitment string `mapstructure:"commitment"`
}

// WalletConfig holds the distributor signing key (base58 secret key).
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// PaymentConfig controls how long a transfer is awaited.
type PaymentConfig struct {
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
}

// PriceConfig holds market-data endpoint configuration.
type PriceConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SchedulerConfig holds periodic job intervals.
type SchedulerConfig struct {
	EligibilityInterval   time.Duration `mapstructure:"eligibility_interval"`
	InitialDelay          time.Duration `mapstructure:"initial_delay"`
	OnlineCleanupInterval time.Duration `mapstructure:"online_cleanup_interval"`
}

// BotConfig holds the optional operator Telegram bot configuration.
type BotConfig struct {
	Token    string  `mapstructure:"token"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, sslMode,
	)
}

// Endpoint returns the RPC URL with the provider API key attached, if any.
func (s *SolanaConfig) Endpoint() string {
	if s.APIKey == "" {
		return s.RPCURL
	}
	u, err := url.Parse(s.RPCURL)
	if err != nil {
		return s.RPCURL
	}
	q := u.Query()
	q.Set("api-key", s.APIKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// MinHolding returns the USD threshold as a decimal.
func (e *EligibilityConfig) MinHolding() decimal.Decimal {
	return decimal.NewFromFloat(e.MinHoldingUSD)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindLegacyEnv(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, TOKEN_MINT, ELIGIBILITY_MIN_HOLDING_USD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnv keeps the environment names used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("token.mint", "TOKEN_MINT")
	_ = v.BindEnv("token.symbol", "TOKEN_SYMBOL")
	_ = v.BindEnv("eligibility.min_holding_usd", "ELIGIBILITY_MIN_HOLDING_USD", "MIN_HOLDING_USD")
	_ = v.BindEnv("wallet.private_key", "WALLET_PRIVATE_KEY", "PRIVATE_KEY")
	_ = v.BindEnv("solana.api_key", "SOLANA_API_KEY", "HELIUS_API_KEY")
	_ = v.BindEnv("server.port", "SERVER_PORT", "API_PORT")
	_ = v.BindEnv("server.cron_secret", "SERVER_CRON_SECRET", "CRON_SECRET")
	_ = v.BindEnv("server.admin_secret", "SERVER_ADMIN_SECRET", "ADMIN_SECRET")
	_ = v.BindEnv("bot.token", "BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "10m")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "snakepill")
	v.SetDefault("database.name", "snakepill")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")

	v.SetDefault("token.symbol", "SNAKEPILL")

	v.SetDefault("eligibility.min_holding_usd", 5)
	v.SetDefault("eligibility.checks_per_second", 5)
	v.SetDefault("eligibility.burst", 1)

	v.SetDefault("distribution.rate", 0.001)
	v.SetDefault("distribution.fee_buffer", 0.01)
	v.SetDefault("distribution.min_per_recipient", 0.0001)
	v.SetDefault("distribution.transfers_per_second", 2)

	v.SetDefault("solana.rpc_url", "https://mainnet.helius-rpc.com/")
	v.SetDefault("solana.commitment", "confirmed")

	v.SetDefault("payment.confirm_timeout", "60s")
	v.SetDefault("payment.confirm_poll_interval", "1s")

	v.SetDefault("price.base_url", "https://frontend-api.pump.fun")
	v.SetDefault("price.timeout", "10s")
	v.SetDefault("price.cache_ttl", "30s")

	v.SetDefault("scheduler.eligibility_interval", "5m")
	v.SetDefault("scheduler.initial_delay", "5s")
	v.SetDefault("scheduler.online_cleanup_interval", "1m")
}

// Validate checks the settings every component depends on.
func (c *Config) Validate() error {
	if c.Token.Mint == "" {
		return errors.New("token mint is required")
	}
	if c.Solana.RPCURL == "" {
		return errors.New("solana rpc url is required")
	}
	if c.Eligibility.MinHoldingUSD < 0 {
		return errors.New("eligibility.min_holding_usd must not be negative")
	}
	if c.Eligibility.ChecksPerSecond <= 0 {
		return errors.New("eligibility.checks_per_second must be greater than 0")
	}
	if c.Distribution.Rate <= 0 || c.Distribution.Rate > 1 {
		return errors.New("distribution.rate must be in (0, 1]")
	}
	if c.Distribution.TransfersPerSecond <= 0 {
		return errors.New("distribution.transfers_per_second must be greater than 0")
	}
	if c.Scheduler.EligibilityInterval <= 0 {
		return errors.New("scheduler.eligibility_interval must be greater than 0")
	}
	return nil
}

// IsAdmin checks if a Telegram user ID is in the operator list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
