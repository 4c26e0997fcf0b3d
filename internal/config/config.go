// Package config содержит логику чтения конфигурации магазина фрешведжис.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации магазина фрешведжис.
type Config struct {
	RunAddress            string  `env:"RUN_ADDRESS"`
	DatabaseURI           string  `env:"DATABASE_URI"`
	DeliverySystemAddress string  `env:"DELIVERY_SYSTEM_ADDRESS"`
	AuthSecret            string  `env:"AUTH_SECRET"`
	TaxRate               float64 `env:"TAX_RATE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envDeliveryAddress := cfg.DeliverySystemAddress
	envAuthSecret := cfg.AuthSecret
	envTaxRate := cfg.TaxRate

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty runs the in-memory store)")
	flag.StringVar(&cfg.DeliverySystemAddress, "r", "", "delivery tracking system address")
	flag.StringVar(&cfg.AuthSecret, "s", "freshveggies-secret", "secret key for auth cookies")
	flag.Float64Var(&cfg.TaxRate, "t", 0.05, "flat tax rate applied at checkout")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envDeliveryAddress != "" {
		cfg.DeliverySystemAddress = envDeliveryAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envTaxRate != 0 {
		cfg.TaxRate = envTaxRate
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.TaxRate <= 0 {
		cfg.TaxRate = 0.05
	}

	return cfg, nil
}
