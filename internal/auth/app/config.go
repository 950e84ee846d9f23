package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache/drivers/redis"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`               // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`        // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`       // json, text
	Port                 int           `env:"PORT" envDefault:"8080"`             // HTTP server port
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1m"` // memory cache sweep

	DatabaseFile  string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PepperFile    string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	MasterKeyPath string `env:"AUTH_MASTER_KEY_PATH"` // seals TOTP secrets; ephemeral when unset

	TOTPIssuer     string        `env:"AUTH_TOTP_ISSUER" envDefault:"Gatekeeper"`
	SessionTTL     time.Duration `env:"AUTH_SESSION_TTL" envDefault:"3600s"`
	TOTPPendingTTL time.Duration `env:"AUTH_TOTP_PENDING_TTL" envDefault:"10m"`

	NeedsConfirmedRegistration bool `env:"AUTH_NEEDS_CONFIRMED_REGISTRATION_TO_LOGIN" envDefault:"false"`
	ExposeRegistrationErrors   bool `env:"AUTH_EXPOSE_REGISTRATION_ERRORS" envDefault:"true"`
	MaxConcurrentHashes        int  `env:"AUTH_MAX_CONCURRENT_HASHES" envDefault:"4"`

	CacheDriver string `env:"CACHE_DRIVER" envDefault:"memory"` // memory, redis
	Redis       redis.Config
}

// LoadConfig reads a .env file when present, then the process environment.
func LoadConfig() (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.CacheDriver {
	case CacheDriverMemory, CacheDriverRedis:
	default:
		return fmt.Errorf("%w: unknown CACHE_DRIVER %q", ErrInvalidConfig, c.CacheDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: AUTH_SESSION_TTL must be positive", ErrInvalidConfig)
	}
	if c.TOTPPendingTTL <= 0 {
		return fmt.Errorf("%w: AUTH_TOTP_PENDING_TTL must be positive", ErrInvalidConfig)
	}
	if c.MaxConcurrentHashes < 1 {
		return fmt.Errorf("%w: AUTH_MAX_CONCURRENT_HASHES must be at least 1", ErrInvalidConfig)
	}
	return nil
}
