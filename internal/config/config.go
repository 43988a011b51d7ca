// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	ArtifactPath string `envconfig:"MODEL_ARTIFACT_PATH" default:"models/bundle.json"`

	DB      DBConfig
	Chain   ChainConfig
	Scoring ScoringConfig
}

type DBConfig struct {
	// Empty DSN disables persistence; the engine falls back to an
	// in-memory ledger.
	DSN string `envconfig:"DATABASE_URL"`
}

type ChainConfig struct {
	Host string `envconfig:"BITCOIN_RPC_HOST"`
	User string `envconfig:"BITCOIN_RPC_USER"`
	Pass string `envconfig:"BITCOIN_RPC_PASS"`
}

type ScoringConfig struct {
	Seed                    int64   `envconfig:"MODEL_SEED" default:"42"`
	UseSequenceModel        bool    `envconfig:"USE_SEQUENCE_MODEL" default:"false"`
	FreezeAbnormalThreshold bool    `envconfig:"FREEZE_ABNORMAL_THRESHOLD" default:"false"`
	AlertThreshold          float64 `envconfig:"ALERT_THRESHOLD" default:"70"`
	RollingWindows          []int   `envconfig:"ROLLING_WINDOWS" default:"10,50,100"`
}

func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using system environment only: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &cfg, nil
}

// Enabled reports whether a Bitcoin RPC endpoint is configured.
func (c *ChainConfig) Enabled() bool {
	return c.Host != ""
}
