// Package config loads process configuration from the environment.
// The credentials and endpoint the engine cannot run without are
// validated here; a missing one refuses startup.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Gateway kinds selectable at startup.
const (
	GatewayConsole   = "console"
	GatewayWebSocket = "websocket"
)

// Config holds application configuration, loaded from NAQQAL_* env vars.
type Config struct {
	// Chat-platform credential and generation-backend access; all
	// three are required.
	GatewayToken string `envconfig:"GATEWAY_TOKEN" required:"true"`
	APIKey       string `envconfig:"API_KEY" required:"true"`
	BaseURL      string `envconfig:"BASE_URL" required:"true"`

	Model           string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	MaxOutputTokens int           `envconfig:"MAX_OUTPUT_TOKENS" default:"1024"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"60s"`
	Streaming       bool          `envconfig:"STREAMING" default:"false"`

	ArchivePath string `envconfig:"ARCHIVE_PATH" default:"naqqal.db"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`

	// Gateway is set from the command line, not the environment.
	Gateway string `ignored:"true"`
}

// Load reads .env (best effort) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("naqqal", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
