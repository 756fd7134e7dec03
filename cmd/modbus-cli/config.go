package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// modbus-cli config.toml key mapping to tool settings.
type fileConfig struct {
	Addr                string `toml:"addr"`
	UnitID              int    `toml:"unit_id"`
	PoolSize            int    `toml:"pool_size"`
	RequestTimeout      string `toml:"request_timeout"`
	HealthCheckInterval string `toml:"health_check_interval"`
}

type cliConfig struct {
	Addr                string
	UnitID              byte
	PoolSize            int32
	RequestTimeout      time.Duration
	HealthCheckInterval time.Duration
}

func defaultConfig() cliConfig {
	return cliConfig{
		Addr:           "localhost:502",
		UnitID:         0xFF,
		PoolSize:       2,
		RequestTimeout: 5 * time.Second,
	}
}

// loadConfig overlays config file values onto the defaults.
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = raw.Addr
	}
	if meta.IsDefined("unit_id") {
		if raw.UnitID < 0 || raw.UnitID > 0xFF {
			return cliConfig{}, fmt.Errorf("unit_id %d out of range [0, 255]", raw.UnitID)
		}
		cfg.UnitID = byte(raw.UnitID)
	}
	if meta.IsDefined("pool_size") {
		if raw.PoolSize < 1 {
			return cliConfig{}, fmt.Errorf("pool_size must be >= 1")
		}
		cfg.PoolSize = int32(raw.PoolSize)
	}
	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return cliConfig{}, fmt.Errorf("request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if meta.IsDefined("health_check_interval") {
		d, err := time.ParseDuration(raw.HealthCheckInterval)
		if err != nil {
			return cliConfig{}, fmt.Errorf("health_check_interval: %w", err)
		}
		cfg.HealthCheckInterval = d
	}

	return cfg, nil
}
