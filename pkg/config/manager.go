package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Manager loads, overrides, validates and saves run configurations
type Manager struct {
	validator Validator
}

// NewManager creates a configuration manager with the default validator
func NewManager() *Manager {
	return &Manager{validator: NewRunValidator()}
}

// LoadEnv loads a .env file into the process environment when it exists
func LoadEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load environment file %s: %w", path, err)
	}
	return nil
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path uses defaults and environment only.
// The result is not validated; call Validate after applying CLI overrides.
func (m *Manager) Load(path string) (*RunConfig, error) {
	cfg := NewDefaultRunConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates cfg with the manager's validator
func (m *Manager) Validate(cfg *RunConfig) error {
	return m.validator.Validate(cfg)
}

// Save writes cfg as YAML, creating parent directories
func (m *Manager) Save(cfg *RunConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *RunConfig) error {
	if v := os.Getenv(EnvDataFile); v != "" {
		cfg.Data.File = v
	}
	if v := os.Getenv(EnvMembersCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMembersCount, err)
		}
		cfg.Swarm.MembersCount = n
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Output.DB = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	return nil
}
