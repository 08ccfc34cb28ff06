package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogDir      string           `yaml:"log_dir"`
	AnalysisDir string           `yaml:"analysis_dir"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Dashboard   DashboardConfig  `yaml:"dashboard"`
	Store       StoreConfig      `yaml:"store"`
}

// SimulationConfig contains day-generation settings
type SimulationConfig struct {
	Seed          int64 `yaml:"seed"`           // 0 means time-seeded
	ProgressEvery int   `yaml:"progress_every"` // log progress every N generated days
}

// DashboardConfig contains web dashboard settings
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// StoreConfig contains verdict-history database settings
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default configuration if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LogDir:      "logs",
		AnalysisDir: "analysis",
		Simulation: SimulationConfig{
			Seed:          0,
			ProgressEvery: 5,
		},
		Dashboard: DashboardConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    8080,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "daywatch.db",
		},
	}
}
