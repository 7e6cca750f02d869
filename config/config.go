package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"casino/database"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `env:"DISCORD_TOKEN"`
	GuildID      string `env:"GUILD_ID"`

	// Store configuration
	StoreDriver        string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL        string `env:"DATABASE_URL"`
	DatabaseName       string `env:"DATABASE_NAME"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"casino.db"`
	StoreRetryAttempts int    `env:"STORE_RETRY_ATTEMPTS" envDefault:"3"`

	// Event forwarding; empty disables NATS
	NATSURL string `env:"NATS_URL"`

	// Metrics export: none, console or otlp
	MetricsExporter        string `env:"METRICS_EXPORTER" envDefault:"none"`
	OTLPEndpoint           string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	MetricsIntervalSeconds int    `env:"METRICS_EXPORT_INTERVAL_SECONDS" envDefault:"30"`

	// Admin HTTP API; empty disables the server
	HTTPAddr string `env:"HTTP_ADDR"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Daily reward policy
	DailyMinHours          int     `env:"DAILY_MIN_HOURS" envDefault:"18"`
	DailyMaxHours          int     `env:"DAILY_MAX_HOURS" envDefault:"36"`
	DailyBaseReward        float64 `env:"DAILY_BASE_REWARD" envDefault:"1000"`
	DailyFlatReward        float64 `env:"DAILY_FLAT_REWARD" envDefault:"10"`
	DailyExponent          float64 `env:"DAILY_EXPONENT" envDefault:"1.1"`
	DailyAlmostLateMinutes int     `env:"DAILY_ALMOST_LATE_MINUTES" envDefault:"30"`

	// Games
	MinesSessionTTLMinutes int     `env:"MINES_SESSION_TTL_MINUTES" envDefault:"15"`
	LimboMaxTarget         float64 `env:"LIMBO_MAX_TARGET" envDefault:"1000000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// DailyMinInterval is the wait after a claim before the next one opens
func (c *Config) DailyMinInterval() time.Duration {
	return time.Duration(c.DailyMinHours) * time.Hour
}

// DailyMaxInterval is the point after a claim where the streak is lost
func (c *Config) DailyMaxInterval() time.Duration {
	return time.Duration(c.DailyMaxHours) * time.Hour
}

// DailyAlmostLateWindow is how close to DailyMaxInterval a claim is flagged
func (c *Config) DailyAlmostLateWindow() time.Duration {
	return time.Duration(c.DailyAlmostLateMinutes) * time.Minute
}

// MetricsInterval is how often metrics are pushed to the exporter
func (c *Config) MetricsInterval() time.Duration {
	return time.Duration(c.MetricsIntervalSeconds) * time.Second
}

// MinesSessionTTL is how long an idle Mines game survives before it is settled
func (c *Config) MinesSessionTTL() time.Duration {
	return time.Duration(c.MinesSessionTTLMinutes) * time.Minute
}

// load reads an optional .env file and then the process environment
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required settings and cross-field constraints
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", database.DriverPostgres, database.DriverSQLite, c.StoreDriver)
	}

	if c.DailyMinHours <= 0 || c.DailyMaxHours <= c.DailyMinHours {
		return fmt.Errorf("daily window is invalid: min %dh, max %dh", c.DailyMinHours, c.DailyMaxHours)
	}
	if c.DailyAlmostLateMinutes < 0 {
		return fmt.Errorf("DAILY_ALMOST_LATE_MINUTES cannot be negative")
	}
	if c.StoreRetryAttempts < 0 {
		return fmt.Errorf("STORE_RETRY_ATTEMPTS cannot be negative")
	}
	if c.MinesSessionTTLMinutes <= 0 {
		return fmt.Errorf("MINES_SESSION_TTL_MINUTES must be positive")
	}
	switch c.MetricsExporter {
	case "none", "console", "otlp":
	default:
		return fmt.Errorf("METRICS_EXPORTER must be none, console or otlp, got %q", c.MetricsExporter)
	}
	if c.LimboMaxTarget < 1.01 {
		return fmt.Errorf("LIMBO_MAX_TARGET must be at least 1.01")
	}

	if c.Environment != "test" {
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
		if c.StoreDriver == database.DriverPostgres && c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		StoreDriver:            database.DriverSQLite,
		SQLitePath:             ":memory:",
		StoreRetryAttempts:     3,
		LogLevel:               "debug",
		LogFormat:              "text",
		MetricsExporter:        "none",
		DailyMinHours:          18,
		DailyMaxHours:          36,
		DailyBaseReward:        1000,
		DailyFlatReward:        10,
		DailyExponent:          1.1,
		DailyAlmostLateMinutes: 30,
		MinesSessionTTLMinutes: 15,
		LimboMaxTarget:         1_000_000,
	}
}
