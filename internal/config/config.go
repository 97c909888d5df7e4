package config

import (
	"os"
	"strconv"

	"cloneselect/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig
	Simulation SimulationConfig
	Data       DataConfig
	LogLevel   string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// SimulationConfig holds defaults applied to every simulation request
type SimulationConfig struct {
	Seed              int64
	Workers           int // concurrent sensitivity candidates
	SensitivityTrials int
}

// DataConfig points at a default clone data file
type DataConfig struct {
	File  string
	Sheet string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	simConfig, err := loadSimulationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load simulation configuration")
	}

	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Simulation: *simConfig,
		Data: DataConfig{
			File:  getEnvOrDefault("DATA_FILE", ""),
			Sheet: getEnvOrDefault("DATA_SHEET", ""),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadSimulationConfig() (*SimulationConfig, error) {
	seed, err := getEnvInt64("SIM_SEED", 42)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("SIM_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	trials, err := getEnvInt("SENSITIVITY_TRIALS", 1000)
	if err != nil {
		return nil, err
	}
	return &SimulationConfig{
		Seed:              seed,
		Workers:           workers,
		SensitivityTrials: trials,
	}, nil
}

func validateConfig(config *Config) error {
	if config.Simulation.Workers <= 0 {
		return errors.ConfigInvalid("SIM_WORKERS must be positive")
	}
	if config.Simulation.SensitivityTrials <= 0 {
		return errors.ConfigInvalid("SENSITIVITY_TRIALS must be positive")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid("PORT must be numeric")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer, got " + strconv.Quote(value))
	}
	return intValue, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer, got " + strconv.Quote(value))
	}
	return intValue, nil
}
