package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort      string        `env:"SERVER_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	// DBDriver selects the gorm dialect: sqlite, postgres or mysql.
	DBDriver    string `env:"DB_DRIVER" env-default:"sqlite"`
	DatabaseDSN string `env:"DATABASE_DSN" env-default:"patients.db"`
	ResetDB     bool   `env:"RESET_DB" env-default:"false"`

	// RedisAddr empty disables caching and the token store.
	RedisAddr string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPass string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB   int           `env:"REDIS_DB" env-default:"0"`
	CacheTTL  time.Duration `env:"CACHE_TTL" env-default:"1m"`

	JWTSecret       string        `env:"JWT_SECRET" env-default:"change-me"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	AllowRoleSignup bool          `env:"ALLOW_ROLE_SIGNUP" env-default:"true"`

	LogLevel    string   `env:"LOG_LEVEL" env-default:"info"`
	SwaggerHost string   `env:"SWAGGER_HOST" env-default:""`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`

	SeedPassword string `env:"SEED_PASSWORD" env-default:"password123"`
}

// Load builds Config from environment, reading an optional .env file first.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &cfg, nil
}
