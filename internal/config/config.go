package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type (
	Config struct {
		Env      string `mapstructure:"ENV"`
		LogLevel string `mapstructure:"LOG_LEVEL"`

		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		GRPCPort string `mapstructure:"GRPC_PORT"`

		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`

		RedisAddr string        `mapstructure:"REDIS_ADDR"`
		RedisDB   int           `mapstructure:"REDIS_DB"`
		CacheTTL  time.Duration `mapstructure:"CACHE_TTL"`

		PageSize       int     `mapstructure:"PAGE_SIZE"`
		ImageMaxSide   int     `mapstructure:"IMAGE_MAX_SIDE"`
		ImageMaxPixels int     `mapstructure:"IMAGE_MAX_PIXELS"`
		BodyLimit      string  `mapstructure:"BODY_LIMIT"`
		PasswordCost   int     `mapstructure:"PASSWORD_COST"`
		RateLimit      float64 `mapstructure:"RATE_LIMIT"`
	}
)

var envs = []string{
	"ENV", "LOG_LEVEL",
	"HOST", "PORT", "GRPC_PORT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
	"REDIS_ADDR", "REDIS_DB", "CACHE_TTL",
	"PAGE_SIZE", "IMAGE_MAX_SIDE", "IMAGE_MAX_PIXELS", "BODY_LIMIT", "PASSWORD_COST", "RATE_LIMIT",
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FOODGRAM")

	v.SetDefault("ENV", EnvProduction)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "1323")
	v.SetDefault("GRPC_PORT", "9000")
	v.SetDefault("DB_HOST", "0.0.0.0")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "db")
	v.SetDefault("DB_SSL_MODE", sslModeDisable)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", 10*time.Minute)
	v.SetDefault("PAGE_SIZE", 6)
	v.SetDefault("IMAGE_MAX_SIDE", 1024)
	v.SetDefault("IMAGE_MAX_PIXELS", 40_000_000)
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("PASSWORD_COST", 14)
	v.SetDefault("RATE_LIMIT", 10)

	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// PostgresDSN is shared by the gorm client and the pgx bulk loader.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func validate(cfg *Config) error {
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return errors.New(fmt.Sprintf("env is invalid: %s", cfg.Env))
	}
	if cfg.PageSize < 1 {
		return errors.New(fmt.Sprintf("page size must be positive: %d", cfg.PageSize))
	}
	if cfg.ImageMaxSide < 1 {
		return errors.New(fmt.Sprintf("image max side must be positive: %d", cfg.ImageMaxSide))
	}
	if cfg.ImageMaxPixels < 1 {
		return errors.New(fmt.Sprintf("image max pixels must be positive: %d", cfg.ImageMaxPixels))
	}
	if cfg.BodyLimit == "" {
		return errors.New("body limit is required")
	}
	if cfg.RateLimit <= 0 {
		return errors.New(fmt.Sprintf("rate limit must be positive: %v", cfg.RateLimit))
	}

	validSSLValues := []string{sslModeDisable, sslModeRequire}
	for _, validValue := range validSSLValues {
		if cfg.DBSSLMode == validValue {
			return nil
		}
	}
	return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
}
