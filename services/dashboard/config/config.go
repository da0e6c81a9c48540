package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// UpstreamConfig defines how the charts & statistics API is reached and cached
type UpstreamConfig struct {
	BaseURL                 string `toml:"BaseURL"`
	CacheDurationInSeconds  uint32 `toml:"CacheDurationInSeconds"`
	RequestTimeoutInSeconds uint32 `toml:"RequestTimeoutInSeconds"`
}

// WarmupConfig defines the periodic cache warming rules. An interval of 0 disables warming
type WarmupConfig struct {
	IntervalInSeconds uint32   `toml:"IntervalInSeconds"`
	Timespan          string   `toml:"Timespan"`
	MetricIDs         []string `toml:"MetricIDs"`
}

// Config maps to the config.toml file for the dashboard service
type Config struct {
	ListenAddress string         `toml:"ListenAddress"`
	StaticDir     string         `toml:"StaticDir"`
	Upstream      UpstreamConfig `toml:"Upstream"`
	Warmup        WarmupConfig   `toml:"Warmup"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}
