// Package config loads the host configuration from YAML, with ${ENV_VAR}
// placeholder expansion and structural validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port" validate:"gte=0,lte=65535"`
		// RateLimit is requests per second; 0 disables limiting.
		RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
		Burst     int     `yaml:"burst" validate:"gte=0"`
	} `yaml:"server"`

	Directory struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"directory"`

	Cache struct {
		MaxSizeMB    int    `yaml:"max_size_mb" validate:"gte=0"`
		Policy       string `yaml:"policy" validate:"omitempty,oneof=lru lfu fifo"`
		TTLSeconds   int    `yaml:"ttl_seconds" validate:"gte=0"`
		SweepSeconds int    `yaml:"sweep_seconds" validate:"gte=0"`
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"cache"`

	Reservation struct {
		HoldMinutes  int `yaml:"hold_minutes" validate:"gte=0"`
		SweepSeconds int `yaml:"sweep_seconds" validate:"gte=0"`
		Redis        struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"gte=0"`
		} `yaml:"redis"`
	} `yaml:"reservation"`

	Rules struct {
		BreakStart           string `yaml:"break_start"` // "HH:MM", default 12:00
		BreakEnd             string `yaml:"break_end"`   // default 13:00
		OvertimeMaxMinutes   int    `yaml:"overtime_max_minutes" validate:"gte=0"`
		OvertimeHardCapClock string `yaml:"overtime_hard_cap"` // default 22:00
		DefaultGranularity   int    `yaml:"default_granularity" validate:"gte=0"`
		DefaultBuffer        int    `yaml:"default_buffer" validate:"gte=0"`
	} `yaml:"rules"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port" validate:"gte=0,lte=65535"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port" validate:"gte=0,lte=65535"`
	} `yaml:"monitoring"`
}

// Load reads, expands and validates the configuration file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Cache.Policy == "" {
		c.Cache.Policy = "lru"
	}
	if c.Rules.DefaultGranularity == 0 {
		c.Rules.DefaultGranularity = 30
	}
}

// CacheTTL returns the cache TTL with its default.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheSweep returns the cache sweep interval with its default.
func (c *Config) CacheSweep() time.Duration {
	if c.Cache.SweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Cache.SweepSeconds) * time.Second
}

// CacheMaxBytes converts the MB budget; 0 keeps the cache's own default.
func (c *Config) CacheMaxBytes() int64 {
	return int64(c.Cache.MaxSizeMB) << 20
}

// ReservationHold returns the soft-lock lifetime with its default.
func (c *Config) ReservationHold() time.Duration {
	if c.Reservation.HoldMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Reservation.HoldMinutes) * time.Minute
}

// ReservationSweep returns the ledger sweep interval with its default.
func (c *Config) ReservationSweep() time.Duration {
	if c.Reservation.SweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Reservation.SweepSeconds) * time.Second
}
