package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Backend
	BaseURL   string        `yaml:"base_url"`
	CSRFToken string        `yaml:"csrf_token"`
	Timeout   time.Duration `yaml:"timeout"`

	// Monitor
	JobID        string        `yaml:"job_id"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ChartCap     int           `yaml:"chart_cap"`
	LogCap       int           `yaml:"log_cap"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// Development backend
	ServerPort    string        `yaml:"server_port"`
	DatabaseURL   string        `yaml:"database_url"`
	EpochInterval time.Duration `yaml:"epoch_interval"`
	ModelDir      string        `yaml:"model_dir"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		BaseURL:       "http://localhost:8000",
		Timeout:       30 * time.Second,
		PollInterval:  2 * time.Second,
		ChartCap:      100,
		LogCap:        100,
		LogLevel:      "info",
		LogFormat:     "console",
		ServerPort:    "8000",
		EpochInterval: time.Second,
		ModelDir:      "models",
	}
}

// Load loads configuration from an optional YAML file and then environment variables.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("SIGNAL_MONITOR_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.CSRFToken = getEnv("CSRF_TOKEN", cfg.CSRFToken)
	cfg.JobID = getEnv("JOB_ID", cfg.JobID)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ModelDir = getEnv("MODEL_DIR", cfg.ModelDir)

	var err error
	if cfg.Timeout, err = getEnvDuration("TIMEOUT", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", cfg.PollInterval); err != nil {
		return nil, err
	}
	if cfg.EpochInterval, err = getEnvDuration("EPOCH_INTERVAL", cfg.EpochInterval); err != nil {
		return nil, err
	}
	if cfg.ChartCap, err = getEnvInt("CHART_CAP", cfg.ChartCap); err != nil {
		return nil, err
	}
	if cfg.LogCap, err = getEnvInt("LOG_CAP", cfg.LogCap); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the monitor cannot run with
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.ChartCap <= 0 {
		return fmt.Errorf("chart_cap must be positive, got %d", c.ChartCap)
	}
	if c.LogCap <= 0 {
		return fmt.Errorf("log_cap must be positive, got %d", c.LogCap)
	}
	if c.EpochInterval <= 0 {
		return fmt.Errorf("epoch_interval must be positive, got %s", c.EpochInterval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
