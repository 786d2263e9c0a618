package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	DataDir      string `envconfig:"DATA_DIR" default:"./data"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"nocturne-notes"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	ModelAPIKey  string `envconfig:"MODEL_API_KEY"`
	ModelBaseURL string `envconfig:"MODEL_BASE_URL"`
	ModelName    string `envconfig:"MODEL_NAME" default:"gemini-1.5-flash"`

	StageTimeout   time.Duration `envconfig:"STAGE_TIMEOUT" default:"45s"`
	RepairInterval time.Duration `envconfig:"REPAIR_INTERVAL" default:"0"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("NOCTURNE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks that the selected store backend has what it needs
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("NOCTURNE_DATA_DIR is required for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("NOCTURNE_DATABASE_URL is required for the postgres backend")
		}
	case BackendS3:
		if !c.HasS3() {
			return fmt.Errorf("NOCTURNE_S3_ENDPOINT, NOCTURNE_S3_ACCESS_KEY_ID and NOCTURNE_S3_SECRET_ACCESS_KEY are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (expected memory, file, postgres or s3)", c.StoreBackend)
	}

	if c.StageTimeout <= 0 {
		return fmt.Errorf("NOCTURNE_STAGE_TIMEOUT must be positive")
	}
	if c.RepairInterval < 0 {
		return fmt.Errorf("NOCTURNE_REPAIR_INTERVAL cannot be negative")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasModel() bool {
	return c.ModelAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// TracesSampleRate samples every trace in development and 10% elsewhere
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
