package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Load reads the YAML file at path, applies defaults and validates the result.
// On any error the returned Config holds the built-in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Resolve picks the config file to load: the flag value, then $TCSHAPER_CONFIG,
// then the default path. It returns an empty path when only the default
// location was tried and it does not exist, meaning built-in defaults apply.
func Resolve(flagPath string) (string, error) {
	if p := strings.TrimSpace(flagPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config %q: %w", p, err)
		}
		return p, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvConfigPath)); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config from %s %q: %w", EnvConfigPath, envPath, err)
		}
		return envPath, nil
	}

	if _, err := os.Stat(DefaultConfigPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config %q: %w", DefaultConfigPath, err)
	}
	return DefaultConfigPath, nil
}

// Marshal renders cfg as YAML, used by the show-config command.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
