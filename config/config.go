package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfirmPolicy selects how a pending order becomes confirmed.
type ConfirmPolicy string

const (
	// PolicyProbe polls the confirmation probe until it reports confirmed.
	PolicyProbe ConfirmPolicy = "probe"
	// PolicyTimer confirms unconditionally when the payment window elapses.
	// This is the storefront's historical mock behavior and issues a
	// confirmation without verifying funds were received.
	PolicyTimer ConfirmPolicy = "timer"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Token     TokenConfig     `mapstructure:"token"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	PriceFeed PriceFeedConfig `mapstructure:"pricefeed"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// AdminConfig holds the single admin account used by the dashboard.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // Argon2id encoded hash
}

// TokenConfig configures the order-token codec.
type TokenConfig struct {
	Secret      string `mapstructure:"secret"`       // HMAC key for order integrity tags
	AllowLegacy bool   `mapstructure:"allow_legacy"` // accept tags from the old storefront mixer
}

// PaymentConfig drives the payment lifecycle state machine.
type PaymentConfig struct {
	Window          time.Duration `mapstructure:"window"`           // payment window (countdown start)
	TickInterval    time.Duration `mapstructure:"tick_interval"`    // countdown resolution
	ProbeInterval   time.Duration `mapstructure:"probe_interval"`   // probe polling cadence (policy probe)
	ConfirmPolicy   ConfirmPolicy `mapstructure:"confirm_policy"`   // probe | timer
	DefaultCurrency string        `mapstructure:"default_currency"` // intake fallback ticker
}

type PriceFeedConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"` // empty = notifications disabled
	Timeout    time.Duration `mapstructure:"timeout"`
}

type GeoConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"` // base URL, IP appended
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CPG_ (Cryoner Payment Gateway).
// Nested keys use underscore: CPG_DATABASE_HOST, CPG_TOKEN_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "cryoner_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "cryoner-gateway")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("token.secret", "")
	v.SetDefault("token.allow_legacy", true)
	v.SetDefault("payment.window", "15m")
	v.SetDefault("payment.tick_interval", "1s")
	v.SetDefault("payment.probe_interval", "30s")
	v.SetDefault("payment.confirm_policy", "probe")
	v.SetDefault("payment.default_currency", "SOL")
	v.SetDefault("pricefeed.url", "https://api.binance.com/api/v3/ticker/price")
	v.SetDefault("pricefeed.timeout", "5s")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("geo.enabled", true)
	v.SetDefault("geo.url", "https://ipapi.co")
	v.SetDefault("geo.timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CPG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CPG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would cause silent behavioral drift.
// The confirmation policy in particular must be an explicit, known choice.
func (c *Config) Validate() error {
	switch c.Payment.ConfirmPolicy {
	case PolicyProbe, PolicyTimer:
	default:
		return fmt.Errorf("payment.confirm_policy must be %q or %q, got %q",
			PolicyProbe, PolicyTimer, c.Payment.ConfirmPolicy)
	}
	if c.Payment.Window <= 0 {
		return fmt.Errorf("payment.window must be positive, got %s", c.Payment.Window)
	}
	if c.Payment.TickInterval <= 0 {
		return fmt.Errorf("payment.tick_interval must be positive, got %s", c.Payment.TickInterval)
	}
	if c.Payment.ConfirmPolicy == PolicyProbe && c.Payment.ProbeInterval <= 0 {
		return fmt.Errorf("payment.probe_interval must be positive, got %s", c.Payment.ProbeInterval)
	}
	return nil
}
