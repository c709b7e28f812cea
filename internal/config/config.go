// Package config loads server settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/sheikh-saqib/escrow-ledger/internal/rent"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	Store       string `env:"STORE" envDefault:"memory"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	// Empty RedisAddr keeps withdrawal locks inside this process.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"5s"`

	// Empty KafkaBrokers disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"escrow_ledger_events"`

	LamportsPerByteYear uint64  `env:"RENT_LAMPORTS_PER_BYTE_YEAR" envDefault:"3480"`
	ExemptionThreshold  float64 `env:"RENT_EXEMPTION_THRESHOLD" envDefault:"2.0"`

	AirdropEnabled bool `env:"AIRDROP_ENABLED" envDefault:"false"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads envFiles into the process environment (missing files are fine,
// variables already set win) and parses the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if err := c.Rent().Check(models.FundDataSize); err != nil {
		return fmt.Errorf("RENT_LAMPORTS_PER_BYTE_YEAR=%d RENT_EXEMPTION_THRESHOLD=%g: %w",
			c.LamportsPerByteYear, c.ExemptionThreshold, err)
	}
	return nil
}

// Rent is the rent schedule the settings describe.
func (c *Config) Rent() rent.Rent {
	return rent.Rent{
		LamportsPerByteYear: c.LamportsPerByteYear,
		ExemptionThreshold:  c.ExemptionThreshold,
	}
}
