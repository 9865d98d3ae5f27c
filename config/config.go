package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the process configuration, sourced from the environment with
// an optional .env overlay for local runs.
type Config struct {
	Port              string   `envconfig:"PORT" default:"8080"`
	AWSRegion         string   `envconfig:"AWS_REGION" default:"us-east-1"`
	AttachmentsBucket string   `envconfig:"ATTACHMENTS_BUCKET" default:"ripple-attachments"`
	AllowedOrigins    []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}
