package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL = "http://localhost:8080"
	configDirName  = "hris-attendance"
	configFileName = "config.yaml"
)

type OutputConfig struct {
	Format string `yaml:"format,omitempty"`
}

// Config is the attendctl config file.
type Config struct {
	BaseURL    string       `yaml:"base_url,omitempty"`
	EmployeeID string       `yaml:"employee_id,omitempty"`
	Timezone   string       `yaml:"timezone,omitempty"`
	Output     OutputConfig `yaml:"output,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
	}
}

func ConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, configDirName, configFileName), nil
}

// LoadConfig reads path, returning defaults when the file does not exist yet.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
