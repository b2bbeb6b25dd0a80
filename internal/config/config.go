package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./quickreply.db"`
	Environment  string `env:"APP_ENV" envDefault:"development"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	// Empty means sessions are kept in process memory.
	RedisURL    string   `env:"REDIS_URL"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	HeartbeatInterval      time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"50s"`
	SlowOperationThreshold time.Duration `env:"SLOW_OPERATION_THRESHOLD" envDefault:"5s"`

	LogRetention       time.Duration `env:"LOG_RETENTION" envDefault:"720h"`
	LogMaxEntries      int           `env:"LOG_MAX_ENTRIES" envDefault:"100"`
	LogCleanupSchedule string        `env:"LOG_CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`

	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND" envDefault:"1"`
	LoginBurst         int     `env:"LOGIN_BURST" envDefault:"5"`

	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// devJWTSecret is only accepted when APP_ENV is development.
const devJWTSecret = "quickreply-dev-secret"

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET must be set outside development")
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.LogMaxEntries < 0 {
		return nil, errors.New("LOG_MAX_ENTRIES must not be negative")
	}

	return &cfg, nil
}

// IsDevelopment reports whether detailed error diagnostics may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction controls cookie security flags.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
