package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	Env        string // "development" or "production"
	MySQLDSN   string
	RedisAddr  string
	RedisDB    int
	RedisPass  string

	JWTSecret string
	TokenTTL  time.Duration

	// CookieCrossOrigin relaxes SameSite to None for cross-origin
	// frontend/backend deployments. Only honored in production where
	// the cookie is also Secure.
	CookieCrossOrigin bool

	BcryptCost int

	LoginMaxAttempts int
	LoginWindow      time.Duration

	RequestTimeout time.Duration

	SwaggerHost string
}

const (
	// DefaultTokenTTL is the canonical session lifetime. The token and the
	// cookie that carries it always share this value.
	DefaultTokenTTL = 7 * 24 * time.Hour

	defaultBcryptCost       = 10
	defaultLoginMaxAttempts = 10
	defaultLoginWindow      = 15 * time.Minute
	defaultRequestTimeout   = 30 * time.Second
)

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Env:        getEnv("APP_ENV", "development"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/adminpanel?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", DefaultTokenTTL),

		CookieCrossOrigin: getEnv("COOKIE_CROSS_ORIGIN", "false") == "true",

		BcryptCost: getEnvInt("BCRYPT_COST", defaultBcryptCost),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", defaultLoginMaxAttempts),
		LoginWindow:      getEnvDuration("LOGIN_WINDOW", defaultLoginWindow),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", defaultRequestTimeout),

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

// IsProduction reports whether the service runs with the strict cookie posture.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
