// Package config loads storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceStatic   = "static"
)

type Config struct {
	Port        string `env:"PORT,default=8080"`
	ServiceName string `env:"SERVICE_NAME,default=storefront"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	CatalogSource     string        `env:"CATALOG_SOURCE,default=http"`
	CatalogServiceURL string        `env:"CATALOG_SERVICE_URL,default=https://dummyjson.com"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT,default=10s"`

	FaultLatency time.Duration `env:"CATALOG_FAULT_LATENCY,default=0s"`
	FaultRate    float64       `env:"CATALOG_FAULT_RATE,default=0"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	SessionTTL   time.Duration `env:"SESSION_TTL,default=24h"`
	DemoEmail    string        `env:"DEMO_EMAIL"`
	DemoPassword string        `env:"DEMO_PASSWORD"`
}

// Load reads envFile, when it exists, into the process environment and
// decodes the configuration. Variables already set take precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.CatalogSource {
	case SourceHTTP:
		if c.CatalogServiceURL == "" {
			return errors.New("CATALOG_SERVICE_URL is required for the http catalog source")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres catalog source")
		}
	case SourceStatic:
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}
	if c.FaultRate < 0 || c.FaultRate > 1 {
		return fmt.Errorf("CATALOG_FAULT_RATE must be between 0 and 1, got %v", c.FaultRate)
	}
	if (c.DemoEmail == "") != (c.DemoPassword == "") {
		return errors.New("DEMO_EMAIL and DEMO_PASSWORD must be set together")
	}
	return nil
}

// NewLogger builds a production zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", c.ServiceName)), nil
}
