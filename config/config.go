// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port        int      `env:"PORT" envDefault:"8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`

	// Storage
	DBPath string `env:"DB_PATH" envDefault:"invoices.db"`

	// External payment page the generated links point at.
	PaymentLinkBase string `env:"PAYMENT_LINK_BASE" envDefault:"https://buy.stripe.com/test_xyz"`

	// Dev seed: when both are set, the user is created on startup so a
	// fresh database has a working token.
	SeedUserEmail string `env:"SEED_USER_EMAIL"`
	SeedUserToken string `env:"SEED_USER_TOKEN"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
