// Package config loads runtime settings from the environment, optionally
// seeded from dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT,default=8080"`
	DBPath          string        `env:"DB_PATH,default=data/moonjin.db"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`
	SecureCookies   bool          `env:"SECURE_COOKIES,default=false"`

	MailgunDomain  string `env:"MAILGUN_DOMAIN,default=moonjin.site"`
	MailgunAPIKey  string `env:"MAILGUN_API_KEY_FOR_SENDING"`
	MailgunAPIBase string `env:"MAILGUN_API_BASE"`

	CounterSyncSchedule string `env:"COUNTER_SYNC_SCHEDULE,default=@hourly"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=10"`
}

// Load reads the given dotenv files (missing ones are skipped), then decodes
// the environment. Variables already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return errors.New("config: REFRESH_TOKEN_TTL shorter than ACCESS_TOKEN_TTL")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("config: rate limit must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
