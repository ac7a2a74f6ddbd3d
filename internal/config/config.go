package config

import (
	"fmt"
	"strings"

	"github.com/mobi-voucher/internal/logger"

	"github.com/spf13/viper"
)

// Config application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Voucher  VoucherConfig  `mapstructure:"voucher"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig log output configuration
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig connection pool configuration
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig merchant console token configuration
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig async queue configuration
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig cross-origin configuration
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig rate-limit configuration
type SecurityConfig struct {
	LoginRateLimit  RateLimitConfig `mapstructure:"login_rate_limit"`
	RedeemRateLimit RateLimitConfig `mapstructure:"redeem_rate_limit"`
}

// RateLimitConfig sliding window limit parameters
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// DiscountTierConfig one volume tier of the bulk discount table
type DiscountTierConfig struct {
	MinBundles int     `mapstructure:"min_bundles"`
	Percent    float64 `mapstructure:"percent"`
}

// VoucherConfig voucher issuance parameters
type VoucherConfig struct {
	IssuerCode        string               `mapstructure:"issuer_code"`
	Currency          string               `mapstructure:"currency"`
	Denominations     []int64              `mapstructure:"denominations"`
	BundleSize        int                  `mapstructure:"bundle_size"`
	MaxBundles        int                  `mapstructure:"max_bundles"`
	PinLength         int                  `mapstructure:"pin_length"`
	SerialMaxAttempts int                  `mapstructure:"serial_max_attempts"`
	DiscountTiers     []DiscountTierConfig `mapstructure:"discount_tiers"`
}

// Validate checks the voucher section for consistency. The discount tier
// table must be sorted by min_bundles and its percent must be monotonically
// non-decreasing so that the same volume always earns at least the same
// discount.
func (c VoucherConfig) Validate() error {
	if len(c.Denominations) == 0 {
		return fmt.Errorf("voucher.denominations must not be empty")
	}
	for _, d := range c.Denominations {
		if d <= 0 {
			return fmt.Errorf("voucher.denominations contains non-positive value %d", d)
		}
	}
	if c.BundleSize <= 0 {
		return fmt.Errorf("voucher.bundle_size must be positive")
	}
	if c.PinLength < 6 {
		return fmt.Errorf("voucher.pin_length must be at least 6")
	}
	prevMin := -1
	prevPct := -1.0
	for i, tier := range c.DiscountTiers {
		if tier.MinBundles <= prevMin {
			return fmt.Errorf("voucher.discount_tiers[%d]: min_bundles must be strictly increasing", i)
		}
		if tier.Percent < prevPct {
			return fmt.Errorf("voucher.discount_tiers[%d]: percent must be non-decreasing", i)
		}
		if tier.Percent < 0 || tier.Percent >= 100 {
			return fmt.Errorf("voucher.discount_tiers[%d]: percent out of range", i)
		}
		prevMin = tier.MinBundles
		prevPct = tier.Percent
	}
	return nil
}

// Load loads configuration from config.yml
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/mobivoucher.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "mv")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_attempts", 5)
	viper.SetDefault("security.redeem_rate_limit.window_seconds", 300)
	viper.SetDefault("security.redeem_rate_limit.max_attempts", 5)
	viper.SetDefault("voucher.issuer_code", "MV")
	viper.SetDefault("voucher.currency", "XAF")
	viper.SetDefault("voucher.denominations", []int64{500, 1000, 2000, 5000, 10000})
	viper.SetDefault("voucher.bundle_size", 100)
	viper.SetDefault("voucher.max_bundles", 500)
	viper.SetDefault("voucher.pin_length", 12)
	viper.SetDefault("voucher.serial_max_attempts", 10)
	viper.SetDefault("voucher.discount_tiers", []map[string]interface{}{
		{"min_bundles": 1, "percent": 0},
		{"min_bundles": 5, "percent": 5},
		{"min_bundles": 20, "percent": 10},
	})

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}
	if err := cfg.Voucher.Validate(); err != nil {
		logger.Errorw("config_voucher_invalid", "error", err)
		panic(fmt.Errorf("voucher config invalid: %w", err))
	}

	return &cfg
}
