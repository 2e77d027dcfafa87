package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Database drivers understood by the database package.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	// Database. sqlite is the local embedded store, postgres the remote one.
	DBDriver       string `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"fxjournal.db"`
	DBHost         string `env:"DB_HOST" envDefault:"localhost"`
	DBPort         string `env:"DB_PORT" envDefault:"5432"`
	DBUser         string `env:"DB_USER" envDefault:"fxjournal"`
	DBPassword     string `env:"DB_PASSWORD" envDefault:"fxjournal"`
	DBName         string `env:"DB_NAME" envDefault:"fxjournal"`
	DBSSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	// JWT
	JWTSecret            string        `env:"JWT_SECRET" envDefault:"fallback-secret-key-for-dev-only"`
	JWTExpirationDur     time.Duration `env:"JWT_EXPIRES_IN" envDefault:"15m"`
	JWTRefreshExpiration time.Duration `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"168h"`

	// Pipeline endpoints are disabled while the key is empty.
	PipelineAPIKey string `env:"PIPELINE_API_KEY"`

	// SnapshotCron is a six-field cron spec (with seconds). Empty disables the job.
	SnapshotCron string `env:"SNAPSHOT_CRON"`
}

var (
	appConfig *Config
	mu        sync.Mutex
)

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	appConfig = &cfg
	mu.Unlock()
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use %s or %s)", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.JWTExpirationDur <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.JWTExpirationDur)
	}
	if c.JWTRefreshExpiration <= 0 {
		return fmt.Errorf("JWT_REFRESH_EXPIRES_IN must be positive, got %s", c.JWTRefreshExpiration)
	}
	return nil
}

// Get returns the application configuration
func Get() *Config {
	mu.Lock()
	cfg := appConfig
	mu.Unlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// Set replaces the process configuration. Tests and the CLI use it to inject a
// Config built without touching the environment.
func Set(cfg *Config) {
	mu.Lock()
	appConfig = cfg
	mu.Unlock()
}
