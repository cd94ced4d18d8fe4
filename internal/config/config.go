// Package config loads runtime configuration from the environment, with an
// optional .env file for development.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mail holds the transactional mail transport settings. An empty From or
// Region leaves the dispatcher in its silent disabled state.
type Mail struct {
	Region      string
	From        string
	Concurrency int
}

// Config is the resolved runtime configuration of the API process.
type Config struct {
	HTTPAddr    string
	DatabaseURL string

	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration

	UploadDir string

	// AppBaseURL is the public frontend origin used in emailed links.
	AppBaseURL string

	Mail Mail

	HeartbeatInterval time.Duration
	RateBurst         int
	RatePerSecond     int
	MaxBodyBytes      int64

	LogLevel  string
	LogFormat string

	MigrateOnBoot bool
}

// Load reads the configuration. Values come from the environment (a local
// .env file is merged in first when present) with sane development defaults
// for everything except the token secret.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("ACCESS_TOKEN_EXPIRES_IN", "30m")
	v.SetDefault("REFRESH_TOKEN_EXPIRES_IN", "168h")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("EMAIL_CONCURRENCY", 2)
	v.SetDefault("HEARTBEAT_INTERVAL", "25s")
	v.SetDefault("RATE_BURST", 20)
	v.SetDefault("RATE_PER_SECOND", 10)
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MIGRATE_ON_BOOT", false)

	cfg := &Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		AccessTokenSecret: v.GetString("ACCESS_TOKEN_SECRET"),
		AccessTokenTTL:    v.GetDuration("ACCESS_TOKEN_EXPIRES_IN"),
		RefreshTokenTTL:   v.GetDuration("REFRESH_TOKEN_EXPIRES_IN"),
		UploadDir:         v.GetString("UPLOAD_DIR"),
		AppBaseURL:        v.GetString("APP_BASE_URL"),
		Mail: Mail{
			Region:      v.GetString("SES_REGION"),
			From:        v.GetString("MAIL_FROM"),
			Concurrency: v.GetInt("EMAIL_CONCURRENCY"),
		},
		HeartbeatInterval: v.GetDuration("HEARTBEAT_INTERVAL"),
		RateBurst:         v.GetInt("RATE_BURST"),
		RatePerSecond:     v.GetInt("RATE_PER_SECOND"),
		MaxBodyBytes:      v.GetInt64("MAX_BODY_BYTES"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		MigrateOnBoot:     v.GetBool("MIGRATE_ON_BOOT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.AccessTokenSecret) == "" {
		return errors.New("config: ACCESS_TOKEN_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.Mail.Concurrency < 1 {
		c.Mail.Concurrency = 1
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	return nil
}
