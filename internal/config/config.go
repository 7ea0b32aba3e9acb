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
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port             int    `mapstructure:"port"`
	Env              string `mapstructure:"env"`
	Store            string `mapstructure:"store"`
	OtelCollectorUrl string `mapstructure:"otel-collector-url"`

	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Locks    LocksConfig    `mapstructure:"locks"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
}

type DBConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max-open-conns"`
	MaxIdleTime  time.Duration `mapstructure:"max-idle-time"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxOpenConns int           `mapstructure:"max-open-conns"`
	MaxIdleConns int           `mapstructure:"max-idle-conns"`
	MaxIdleTime  time.Duration `mapstructure:"max-idle-time"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle-timeout"`
}

type LocksConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	MaxTTL       time.Duration `mapstructure:"max-ttl"`
	StoreTimeout time.Duration `mapstructure:"store-timeout"`
}

type SweeperConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch-size"`
}

type CheckoutConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	SigningKey string        `mapstructure:"signing-key"`
	MaxSeats   int           `mapstructure:"max-seats"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
}

type AMQPConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("env", "dev")
	v.SetDefault("store", StorePostgres)
	v.SetDefault("otel-collector-url", "")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max-open-conns", 25)
	v.SetDefault("db.max-idle-time", 15*time.Minute)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.max-open-conns", 25)
	v.SetDefault("redis.max-idle-conns", 10)
	v.SetDefault("redis.max-idle-time", 2*time.Minute)

	v.SetDefault("session.idle-timeout", 20*time.Minute)

	v.SetDefault("locks.ttl", 10*time.Minute)
	v.SetDefault("locks.max-ttl", 30*time.Minute)
	v.SetDefault("locks.store-timeout", 2*time.Second)

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", 30*time.Second)
	v.SetDefault("sweeper.batch-size", 500)

	v.SetDefault("checkout.timeout", 5*time.Second)
	v.SetDefault("checkout.signing-key", "")
	v.SetDefault("checkout.max-seats", 8)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 2525)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.sender", "CineX <no-reply@cinex.metinatakli.net>")

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "booking.confirmed")
}

// Load reads .env (if present), the optional config file and SEATD_* environment
// variables into v, then decodes and validates the result. Flags bound to v before
// calling Load take precedence over all of them.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// a missing .env file is normal outside local development
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix("SEATD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q", StorePostgres, StoreMemory))
	}

	if c.Locks.TTL <= 0 || c.Locks.TTL > c.Locks.MaxTTL {
		errs = append(errs, fmt.Errorf("locks.ttl must be positive and at most locks.max-ttl (%s)", c.Locks.MaxTTL))
	}

	if c.Locks.StoreTimeout <= 0 {
		errs = append(errs, errors.New("locks.store-timeout must be positive"))
	}

	if c.Sweeper.Interval <= 0 || c.Sweeper.BatchSize <= 0 {
		errs = append(errs, errors.New("sweeper.interval and sweeper.batch-size must be positive"))
	}

	if c.Checkout.Timeout <= 0 {
		errs = append(errs, errors.New("checkout.timeout must be positive"))
	}

	if len(c.Checkout.SigningKey) < 32 {
		errs = append(errs, errors.New("checkout.signing-key must be at least 32 bytes"))
	}

	return errors.Join(errs...)
}
