package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	JWT           JWTConfig           `yaml:"jwt"`
	Observability ObservabilityConfig `yaml:"observability"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Queue         QueueConfig         `yaml:"queue"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL        string `yaml:"url"`
	QueueGroup string `yaml:"queue_group"`
}

// JWTConfig holds the secret used to verify submitter tokens.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// ConcurrencyConfig tunes the optimistic-lock retry runner.
type ConcurrencyConfig struct {
	RetryBase     time.Duration `yaml:"retry_base"`
	RetryCap      time.Duration `yaml:"retry_cap"`
	MaxRetries    int           `yaml:"max_retries"`
	RecalcWorkers int           `yaml:"recalc_workers"`
}

// ScoringConfig holds tournament scoring constants.
type ScoringConfig struct {
	MaxPoints       int   `yaml:"max_points"`
	MinPoints       int   `yaml:"min_points"`
	StartingLives   int   `yaml:"starting_lives"`
	ResetThresholds []int `yaml:"reset_thresholds"`
}

// QueueConfig controls the River background queue.
type QueueConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxWorkers int  `yaml:"max_workers"`
	// Debounce coalesces recalculation requests for one stage into a single job.
	Debounce time.Duration `yaml:"debounce"`
}

// Defaults returns a Config populated with every default value.
func Defaults() Config {
	return Config{
		NATS: NATSConfig{QueueGroup: "scoring"},
		JWT:  JWTConfig{DefaultTTL: 24 * time.Hour},
		Observability: ObservabilityConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		Concurrency: ConcurrencyConfig{
			RetryBase:     100 * time.Millisecond,
			RetryCap:      time.Second,
			MaxRetries:    3,
			RecalcWorkers: 8,
		},
		Scoring: ScoringConfig{
			MaxPoints:       50,
			MinPoints:       0,
			StartingLives:   3,
			ResetThresholds: []int{8, 4, 2},
		},
		Queue: QueueConfig{Enabled: false, MaxWorkers: 4, Debounce: 2 * time.Second},
	}
}

// LoadConfig reads .env (if present), then the YAML file (if present), then environment overrides.
func LoadConfig(filename string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("RETRY_BASE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RETRY_BASE value: %w", err)
		}
		cfg.Concurrency.RetryBase = d
	}
	if v := os.Getenv("RETRY_CAP"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RETRY_CAP value: %w", err)
		}
		cfg.Concurrency.RetryCap = d
	}
	if v := os.Getenv("RETRY_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RETRY_MAX value: %w", err)
		}
		cfg.Concurrency.MaxRetries = n
	}
	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		cfg.Queue.Enabled = strings.EqualFold(v, "true")
	}
	return nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if c.Concurrency.MaxRetries < 0 {
		errs = append(errs, errors.New("concurrency.max_retries must be >= 0"))
	}
	if c.Concurrency.RetryBase < 0 || c.Concurrency.RetryCap < c.Concurrency.RetryBase {
		errs = append(errs, errors.New("concurrency.retry_cap must be >= retry_base >= 0"))
	}
	if c.Concurrency.RecalcWorkers < 1 {
		errs = append(errs, errors.New("concurrency.recalc_workers must be >= 1"))
	}
	if c.Scoring.MaxPoints < c.Scoring.MinPoints {
		errs = append(errs, errors.New("scoring.max_points must be >= min_points"))
	}
	if c.Queue.Enabled && c.Queue.MaxWorkers < 1 {
		errs = append(errs, errors.New("queue.max_workers must be >= 1"))
	}
	if c.Scoring.StartingLives < 1 {
		errs = append(errs, errors.New("scoring.starting_lives must be >= 1"))
	}
	return errors.Join(errs...)
}
