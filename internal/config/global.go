package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/sf/config.yml.
type GlobalConfig struct {
	DefaultRepo string `yaml:"default_repo,omitempty"`
	OllamaURL   string `yaml:"ollama_url,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "sf"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// Errors for the default repository setting.
var (
	ErrDefaultRepoNotConfigured = errors.New("default_repo not configured")
	ErrDefaultRepoNotExist      = errors.New("default_repo is not a searchforest repository")
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/sf/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}
	cfg.DefaultRepo = ExpandPath(cfg.DefaultRepo)

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetOllamaURL returns the Ollama URL from global config, or "".
func GetOllamaURL() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.OllamaURL
}

// ValidateDefaultRepo returns the configured default repository after
// checking that it exists.
func ValidateDefaultRepo() (string, error) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg.DefaultRepo == "" {
		return "", ErrDefaultRepoNotConfigured
	}
	if !IsRepository(cfg.DefaultRepo) {
		return "", fmt.Errorf("%w: %s", ErrDefaultRepoNotExist, cfg.DefaultRepo)
	}
	return cfg.DefaultRepo, nil
}

// HelpfulConfigMessage explains how to point sf at a repository.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No searchforest repository found.

Run 'sf init' in a project directory, set SF_ROOT, or create %s:
  mkdir -p %s
  echo 'default_repo: /path/to/corpus' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
