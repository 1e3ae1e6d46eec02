// Package config handles repository and global configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	RepoDir      = ".searchforest"
	ConfigFile   = "config.yml"
	PapersFile   = "papers.jsonl"
	ClustersFile = "clusters.jsonl"
	CacheDir     = "cache"
	DBFile       = "refs.db"

	// EnvPrefix prefixes environment overrides, e.g. SF_TREE_K1.
	EnvPrefix = "SF"
)

// ErrNotRepository is returned when no .searchforest directory is found.
var ErrNotRepository = errors.New("not in a searchforest repository (no .searchforest directory found)")

// Config is the repository configuration stored in .searchforest/config.yml.
type Config struct {
	Tree      TreeConfig      `yaml:"tree" mapstructure:"tree"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Router    RouterConfig    `yaml:"router" mapstructure:"router"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
}

// TreeConfig holds keyword tree parameters.
type TreeConfig struct {
	K1               int           `yaml:"k1" mapstructure:"k1"`               // keywords per hop-1 paper, and root fan-out
	K2               int           `yaml:"k2" mapstructure:"k2"`               // keywords per hop-2 paper, and per-parent fan-out
	PIDLimit         int           `yaml:"pid_limit" mapstructure:"pid_limit"` // papers kept per keyword
	Lambda           float64       `yaml:"lambda" mapstructure:"lambda"`
	Weights          WeightsConfig `yaml:"weights" mapstructure:"weights"`
	SimScale         float64       `yaml:"sim_scale" mapstructure:"sim_scale"`
	SemanticFallback bool          `yaml:"semantic_fallback" mapstructure:"semantic_fallback"`
	Backfill         bool          `yaml:"backfill" mapstructure:"backfill"`
}

// WeightsConfig holds the composite keyword score weights.
type WeightsConfig struct {
	Query     float64 `yaml:"query" mapstructure:"query"`
	Parent    float64 `yaml:"parent" mapstructure:"parent"`
	Frequency float64 `yaml:"frequency" mapstructure:"frequency"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // "ollama" or "hash"
	URL         string        `yaml:"url" mapstructure:"url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Dimensions  int           `yaml:"dimensions" mapstructure:"dimensions"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BatchSize   int           `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	CacheSize   int           `yaml:"cache_size" mapstructure:"cache_size"`
}

// RouterConfig holds cluster routing parameters.
type RouterConfig struct {
	GraphDims int `yaml:"graph_dims" mapstructure:"graph_dims"`
	TopK      int `yaml:"top_k" mapstructure:"top_k"`
}

// CacheConfig controls the tree cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Providers lists the supported embedding providers.
var Providers = []string{"ollama", "hash"}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Tree: TreeConfig{
			K1:               10,
			K2:               3,
			PIDLimit:         20,
			Lambda:           0.6,
			Weights:          WeightsConfig{Query: 0.4, Parent: 0.4, Frequency: 0.2},
			SimScale:         5.0,
			SemanticFallback: true,
			Backfill:         true,
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			URL:         "http://localhost:11434",
			Model:       "all-minilm:l6-v2",
			Dimensions:  384,
			Timeout:     30 * time.Second,
			BatchSize:   64,
			Concurrency: 4,
			CacheSize:   4096,
		},
		Router: RouterConfig{GraphDims: 128, TopK: 3},
		Cache:  CacheConfig{Enabled: true, TTL: time.Hour},
	}
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"k1":        "tree.k1",
	"k2":        "tree.k2",
	"pid-limit": "tree.pid_limit",
	"lambda":    "tree.lambda",
	"provider":  "embedding.provider",
	"model":     "embedding.model",
	"top-k":     "router.top_k",
}

// Load reads the configuration of the repository at root. Values are
// layered as defaults, then config.yml, then SF_* environment variables,
// then any changed flags in flags (which may be nil). A missing config.yml
// is not an error.
func Load(root string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigFile(ConfigPath(root))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("tree.k1", d.Tree.K1)
	v.SetDefault("tree.k2", d.Tree.K2)
	v.SetDefault("tree.pid_limit", d.Tree.PIDLimit)
	v.SetDefault("tree.lambda", d.Tree.Lambda)
	v.SetDefault("tree.weights.query", d.Tree.Weights.Query)
	v.SetDefault("tree.weights.parent", d.Tree.Weights.Parent)
	v.SetDefault("tree.weights.frequency", d.Tree.Weights.Frequency)
	v.SetDefault("tree.sim_scale", d.Tree.SimScale)
	v.SetDefault("tree.semantic_fallback", d.Tree.SemanticFallback)
	v.SetDefault("tree.backfill", d.Tree.Backfill)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.url", d.Embedding.URL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.concurrency", d.Embedding.Concurrency)
	v.SetDefault("embedding.rate_limit", d.Embedding.RateLimit)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	v.SetDefault("router.graph_dims", d.Router.GraphDims)
	v.SetDefault("router.top_k", d.Router.TopK)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Tree.K1 <= 0:
		return fmt.Errorf("invalid tree.k1: %d (must be positive)", c.Tree.K1)
	case c.Tree.K2 <= 0:
		return fmt.Errorf("invalid tree.k2: %d (must be positive)", c.Tree.K2)
	case c.Tree.PIDLimit <= 0:
		return fmt.Errorf("invalid tree.pid_limit: %d (must be positive)", c.Tree.PIDLimit)
	case c.Tree.Lambda < 0 || c.Tree.Lambda > 1:
		return fmt.Errorf("invalid tree.lambda: %g (must be in [0, 1])", c.Tree.Lambda)
	case c.Tree.SimScale <= 0:
		return fmt.Errorf("invalid tree.sim_scale: %g (must be positive)", c.Tree.SimScale)
	case c.Embedding.Dimensions <= 0:
		return fmt.Errorf("invalid embedding.dimensions: %d (must be positive)", c.Embedding.Dimensions)
	case c.Router.GraphDims < 0:
		return fmt.Errorf("invalid router.graph_dims: %d (must not be negative)", c.Router.GraphDims)
	case c.Router.TopK <= 0:
		return fmt.Errorf("invalid router.top_k: %d (must be positive)", c.Router.TopK)
	}
	return ValidateProvider(c.Embedding.Provider)
}

// ValidateProvider checks that the embedding provider name is supported.
func ValidateProvider(name string) error {
	for _, p := range Providers {
		if name == p {
			return nil
		}
	}
	return fmt.Errorf("invalid embedding.provider: %s (valid: %v)", name, Providers)
}

// Save writes the configuration to the repository at root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// RepoPath returns the path to the .searchforest directory from a root path.
func RepoPath(root string) string {
	return filepath.Join(root, RepoDir)
}

// ConfigPath returns the path to config.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, RepoDir, ConfigFile)
}

// PapersPath returns the path to papers.jsonl from a root path.
func PapersPath(root string) string {
	return filepath.Join(root, RepoDir, PapersFile)
}

// ClustersPath returns the path to clusters.jsonl from a root path.
func ClustersPath(root string) string {
	return filepath.Join(root, RepoDir, ClustersFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, RepoDir, CacheDir)
}

// DBPath returns the path to refs.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, RepoDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains a searchforest repository.
func IsRepository(root string) bool {
	info, err := os.Stat(RepoPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a repository.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotRepository
		}
		abs = parent
	}
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
