// Package config assembles runtime settings from defaults, an optional YAML
// file, and the process environment (a local .env file is loaded first).
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = "8080"
	DefaultRequestExpiry = 7 * 24 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
	DefaultNotifyWorkers = 2
	DefaultNotifyQueue   = 256
	DefaultPaystackURL   = "https://api.paystack.co"
	DefaultFromEmail     = "onboarding@resend.dev"
)

// DatabaseConfig mirrors the DATABASE_URL / DB_* variables.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Port     string `yaml:"port"`
	LogSQL   bool   `yaml:"log_sql"`
}

type Config struct {
	Port          string         `yaml:"port"`
	Database      DatabaseConfig `yaml:"database"`
	JWTSecret     string         `yaml:"jwt_secret"`
	RequestExpiry time.Duration  `yaml:"-"`
	SweepInterval time.Duration  `yaml:"-"`
	NotifyWorkers int            `yaml:"notify_workers"`
	NotifyQueue   int            `yaml:"notify_queue"`

	ResendAPIKey string `yaml:"resend_api_key"`
	FromEmail    string `yaml:"from_email"`

	PaystackSecretKey string `yaml:"paystack_secret_key"`
	PaystackBaseURL   string `yaml:"paystack_base_url"`
}

// fileConfig carries the durations as strings so YAML can say "10m".
type fileConfig struct {
	Config        `yaml:",inline"`
	RequestExpiry string `yaml:"request_expiry"`
	SweepInterval string `yaml:"sweep_interval"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		RequestExpiry:   DefaultRequestExpiry,
		SweepInterval:   DefaultSweepInterval,
		NotifyWorkers:   DefaultNotifyWorkers,
		NotifyQueue:     DefaultNotifyQueue,
		FromEmail:       DefaultFromEmail,
		PaystackBaseURL: DefaultPaystackURL,
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are consulted.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	fc := fileConfig{Config: *c}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	merged := fc.Config
	merged.RequestExpiry = c.RequestExpiry
	merged.SweepInterval = c.SweepInterval
	if fc.RequestExpiry != "" {
		d, err := time.ParseDuration(fc.RequestExpiry)
		if err != nil {
			return fmt.Errorf("config: request_expiry: %w", err)
		}
		merged.RequestExpiry = d
	}
	if fc.SweepInterval != "" {
		d, err := time.ParseDuration(fc.SweepInterval)
		if err != nil {
			return fmt.Errorf("config: sweep_interval: %w", err)
		}
		merged.SweepInterval = d
	}
	*c = merged
	return nil
}

func (c *Config) mergeEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.ResendAPIKey = getEnv("RESEND_API_KEY", c.ResendAPIKey)
	c.FromEmail = getEnv("FROM_EMAIL", c.FromEmail)
	c.PaystackSecretKey = getEnv("PAYSTACK_SECRET_KEY", c.PaystackSecretKey)
	c.PaystackBaseURL = getEnv("PAYSTACK_BASE_URL", c.PaystackBaseURL)

	if v := os.Getenv("LOG_SQL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LOG_SQL: %w", err)
		}
		c.Database.LogSQL = b
	}
	if v := os.Getenv("REQUEST_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: REQUEST_EXPIRY: %w", err)
		}
		c.RequestExpiry = d
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SWEEP_INTERVAL: %w", err)
		}
		c.SweepInterval = d
	}
	if v := os.Getenv("NOTIFY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: NOTIFY_WORKERS: %w", err)
		}
		c.NotifyWorkers = n
	}
	if v := os.Getenv("NOTIFY_QUEUE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: NOTIFY_QUEUE: %w", err)
		}
		c.NotifyQueue = n
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.RequestExpiry <= 0 {
		errs = append(errs, errors.New("request expiry must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	if c.NotifyWorkers <= 0 {
		errs = append(errs, errors.New("notify workers must be positive"))
	}
	if c.NotifyQueue < 0 {
		errs = append(errs, errors.New("notify queue must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DSN returns the postgres connection string, preferring DATABASE_URL.
func (d DatabaseConfig) DSN() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Host == "" || d.User == "" || d.Password == "" || d.Name == "" || d.Port == "" {
		return "", fmt.Errorf("database configuration not provided: either set DATABASE_URL or all of DB_HOST, DB_USER, DB_PASSWORD, DB_NAME, and DB_PORT")
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port,
	), nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
