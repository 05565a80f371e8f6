// Package config handles configuration for the server, layering defaults, an
// optional JSON file, BLOG_* environment variables and command-line flags,
// in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/blogd/internal/flagx"
)

const (
	// ConfigFileEnv names the JSON config file when -c/-config is absent.
	ConfigFileEnv = "BLOG_CONFIG"

	MinSecretKeyLength = 32
)

// Config holds runtime settings for the blog server. Values are fixed once
// the server starts.
type Config struct {
	HTTPAddr    string `koanf:"http_addr"`
	GRPCAddr    string `koanf:"grpc_addr"`
	DatabaseDSN string `koanf:"database_dsn"` // empty selects the in-memory store

	SecretKey     string        `koanf:"secret_key"`
	TokenLifetime time.Duration `koanf:"token_lifetime"`

	RateLimitPerSecond     float64       `koanf:"rate_limit_per_second"`
	RateLimitBurst         int           `koanf:"rate_limit_burst"`
	RateLimitSweepInterval time.Duration `koanf:"rate_limit_sweep_interval"`

	PageDefault int `koanf:"page_default"`
	PageMax     int `koanf:"page_max"`

	RequestTimeout     time.Duration `koanf:"request_timeout"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
	CORSMaxAge         time.Duration `koanf:"cors_max_age"`

	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	DBMaxRetries     uint64        `koanf:"db_max_retries"`
	DBRetryBaseDelay time.Duration `koanf:"db_retry_base_delay"`
	DBRetryMaxDelay  time.Duration `koanf:"db_retry_max_delay"`

	// envErr holds what the environment layer could not parse; Validate
	// reports it.
	envErr error
}

// LoadDefaults populates Config with development defaults. SecretKey has no
// default and must be supplied.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":3000"
	c.GRPCAddr = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.TokenLifetime = 24 * time.Hour
	c.RateLimitPerSecond = 10
	c.RateLimitBurst = 20
	c.RateLimitSweepInterval = time.Minute
	c.PageDefault = 10
	c.PageMax = 100
	c.RequestTimeout = 10 * time.Second
	c.ShutdownTimeout = 5 * time.Second
	c.CORSAllowedOrigins = []string{"*"}
	c.CORSMaxAge = time.Hour
	c.LogLevel = "info"
	c.LogFile = ""
	c.DBMaxRetries = 3
	c.DBRetryBaseDelay = 50 * time.Millisecond
	c.DBRetryMaxDelay = time.Second
}

// LoadConfig builds a Config from defaults, then the JSON file, then the
// environment, then command-line flags. A malformed file or flag panics;
// malformed environment values surface from Validate.
func LoadConfig() *Config {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, flagx.ConfigFile(args, ConfigFileEnv))
	cfg.envErr = parseEnv(cfg, envProvider())
	parseFlags(cfg, args)
	return cfg
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.envErr != nil {
		errs = append(errs, c.envErr)
	}
	if len(c.SecretKey) < MinSecretKeyLength {
		errs = append(errs, fmt.Errorf("secret key must be at least %d bytes", MinSecretKeyLength))
	}
	if c.TokenLifetime <= 0 {
		errs = append(errs, errors.New("token lifetime must be positive"))
	}
	if c.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit burst must be positive"))
	}
	if c.RateLimitSweepInterval <= 0 {
		errs = append(errs, errors.New("rate limit sweep interval must be positive"))
	}
	if c.PageDefault <= 0 || c.PageMax <= 0 {
		errs = append(errs, errors.New("page sizes must be positive"))
	} else if c.PageDefault > c.PageMax {
		errs = append(errs, errors.New("default page size exceeds max page size"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		errs = append(errs, errors.New("at least one of the HTTP and gRPC addresses is required"))
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel ("debug", "info", "warn" or "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
