package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/blogd/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "1s" strings
// or integer nanoseconds. Absent fields leave the current value alone.
type JsonConfig struct {
	HTTPAddr               string         `json:"http_addr"`
	GRPCAddr               string         `json:"grpc_addr"`
	DatabaseDSN            string         `json:"database_dsn"`
	SecretKey              string         `json:"secret_key"`
	TokenLifetime          timex.Duration `json:"token_lifetime"`
	RateLimitPerSecond     float64        `json:"rate_limit_per_second"`
	RateLimitBurst         int            `json:"rate_limit_burst"`
	RateLimitSweepInterval timex.Duration `json:"rate_limit_sweep_interval"`
	PageDefault            int            `json:"page_default"`
	PageMax                int            `json:"page_max"`
	RequestTimeout         timex.Duration `json:"request_timeout"`
	ShutdownTimeout        timex.Duration `json:"shutdown_timeout"`
	CORSAllowedOrigins     []string       `json:"cors_allowed_origins"`
	CORSMaxAge             timex.Duration `json:"cors_max_age"`
	LogLevel               string         `json:"log_level"`
	LogFile                string         `json:"log_file"`
	DBMaxRetries           *uint64        `json:"db_max_retries"`
	DBRetryBaseDelay       timex.Duration `json:"db_retry_base_delay"`
	DBRetryMaxDelay        timex.Duration `json:"db_retry_max_delay"`
}

// parseJson overlays the file at path onto config. An empty path loads
// nothing; an unreadable or invalid file panics.
func parseJson(config *Config, path string) {
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenLifetime, c.TokenLifetime)
	if c.RateLimitPerSecond != 0 {
		config.RateLimitPerSecond = c.RateLimitPerSecond
	}
	setInt(&config.RateLimitBurst, c.RateLimitBurst)
	setDuration(&config.RateLimitSweepInterval, c.RateLimitSweepInterval)
	setInt(&config.PageDefault, c.PageDefault)
	setInt(&config.PageMax, c.PageMax)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	setDuration(&config.CORSMaxAge, c.CORSMaxAge)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	if c.DBMaxRetries != nil {
		config.DBMaxRetries = *c.DBMaxRetries
	}
	setDuration(&config.DBRetryBaseDelay, c.DBRetryBaseDelay)
	setDuration(&config.DBRetryMaxDelay, c.DBRetryMaxDelay)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
