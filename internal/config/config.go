package config

import (
	"fmt"
	"os"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ":9100"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", ""),
	}

	return cfg, nil
}

// Validate checks the settings required by the given binary role.
func (c *Config) Validate(role string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch role {
	case "panel-api", "worker":
		if c.TemporalAddress == "" {
			return fmt.Errorf("TEMPORAL_ADDRESS is required for %s", role)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
