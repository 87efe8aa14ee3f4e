package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/evdata/evdata/internal/dataset"
)

const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

type Config struct {
	NodeID    string `yaml:"node_id"`
	HTTPPort  int    `yaml:"http_port"`
	Debug     bool   `yaml:"debug"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	DataRoot    string `yaml:"data_root"`
	DatasetFile string `yaml:"dataset_file"`

	ResultBackend string `yaml:"result_backend"`
	ResultDir     string `yaml:"result_dir"`

	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	ReportDelay    time.Duration `yaml:"report_delay"`
	WSPollInterval time.Duration `yaml:"ws_poll_interval"`
}

func Default() *Config {
	return &Config{
		NodeID:         "evdata-default",
		HTTPPort:       8000,
		LogLevel:       "info",
		LogFormat:      "json",
		DataRoot:       dataset.RootDir(),
		DatasetFile:    dataset.DefaultFile,
		ResultBackend:  BackendMemory,
		ResultDir:      "./data",
		Workers:        2,
		MaxRetries:     3,
		RetryDelay:     5 * time.Second,
		ReportDelay:    6 * time.Second,
		WSPollInterval: 500 * time.Millisecond,
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is read first.
// path may be empty; CONFIG_FILE is consulted in that case.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.NodeID = getEnv("NODE_ID", cfg.NodeID)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.DataRoot = getEnv("DATA_ROOT", cfg.DataRoot)
	cfg.DatasetFile = getEnv("DATASET_FILE", cfg.DatasetFile)
	cfg.ResultBackend = getEnv("RESULT_BACKEND", cfg.ResultBackend)
	cfg.ResultDir = getEnv("RESULT_DIR", cfg.ResultDir)
	cfg.Workers = getEnvInt("WORKERS", cfg.Workers)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryDelay = getEnvDuration("RETRY_DELAY", cfg.RetryDelay)
	cfg.ReportDelay = getEnvDuration("REPORT_DELAY", cfg.ReportDelay)
	cfg.WSPollInterval = getEnvDuration("WS_POLL_INTERVAL", cfg.WSPollInterval)

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.ResultBackend {
	case BackendMemory, BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("unknown result backend %q", c.ResultBackend)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
