// Package config handles vecdb engine configuration via environment
// variables, with an optional YAML file layered underneath.
//
// Configuration is loaded from environment variables using LoadFromEnv()
// and can be validated with Validate() before use.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv(nil)
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//   - VECDB_DATA_DIR="./data"
//   - VECDB_METRIC="euclidean" | "cosine" | "dot_product"
//   - VECDB_CHECKPOINT_INTERVAL=1000
//   - VECDB_HNSW_M=16
//   - VECDB_HNSW_EF_CONSTRUCTION=200
//   - VECDB_HNSW_EF_SEARCH=50
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arashan/vecdb/pkg/distance"
)

// Config holds the tunable knobs for a vecdb engine instance.
type Config struct {
	// DataDir is the directory the persistence engine reads and writes.
	DataDir string `yaml:"data_dir"`
	// Metric is the distance metric new stores are built with.
	Metric string `yaml:"metric"`
	// CheckpointInterval is the number of WAL entries between automatic
	// checkpoints.
	CheckpointInterval int `yaml:"checkpoint_interval"`
	// HNSW holds the index's construction and search parameters.
	HNSW HNSWConfig `yaml:"hnsw"`
}

// HNSWConfig mirrors index.HNSWParams in config-file-friendly form.
type HNSWConfig struct {
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`
	EfSearch       int `yaml:"ef_search"`
}

// Default returns the built-in defaults, matching index.DefaultHNSWParams.
func Default() *Config {
	return &Config{
		DataDir:            "./data",
		Metric:             "euclidean",
		CheckpointInterval: 1000,
		HNSW: HNSWConfig{
			M:              16,
			EfConstruction: 200,
			EfSearch:       50,
		},
	}
}

// LoadFromFile reads a YAML config file and layers it over Default().
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv builds a Config by layering VECDB_* environment variables
// over the supplied base (or Default() if base is nil). Environment
// variables always win over the base.
func LoadFromEnv(base *Config) *Config {
	cfg := base
	if cfg == nil {
		cfg = Default()
	}

	cfg.DataDir = getEnv("VECDB_DATA_DIR", cfg.DataDir)
	cfg.Metric = getEnv("VECDB_METRIC", cfg.Metric)
	cfg.CheckpointInterval = getEnvInt("VECDB_CHECKPOINT_INTERVAL", cfg.CheckpointInterval)
	cfg.HNSW.M = getEnvInt("VECDB_HNSW_M", cfg.HNSW.M)
	cfg.HNSW.EfConstruction = getEnvInt("VECDB_HNSW_EF_CONSTRUCTION", cfg.HNSW.EfConstruction)
	cfg.HNSW.EfSearch = getEnvInt("VECDB_HNSW_EF_SEARCH", cfg.HNSW.EfSearch)

	return cfg
}

// Validate returns nil if cfg is usable, or an error describing the
// problem.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if _, err := c.DistanceMetric(); err != nil {
		return err
	}
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint interval must be positive, got %d", c.CheckpointInterval)
	}
	if c.HNSW.M <= 0 {
		return fmt.Errorf("hnsw M must be positive, got %d", c.HNSW.M)
	}
	if c.HNSW.EfConstruction <= 0 {
		return fmt.Errorf("hnsw ef_construction must be positive, got %d", c.HNSW.EfConstruction)
	}
	if c.HNSW.EfSearch <= 0 {
		return fmt.Errorf("hnsw ef_search must be positive, got %d", c.HNSW.EfSearch)
	}
	return nil
}

// DistanceMetric resolves the configured metric name to a distance.Metric.
func (c *Config) DistanceMetric() (distance.Metric, error) {
	switch strings.ToLower(c.Metric) {
	case "euclidean", "":
		return distance.Euclidean, nil
	case "cosine":
		return distance.Cosine, nil
	case "dot_product", "dotproduct":
		return distance.DotProduct, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", c.Metric)
	}
}

// String returns a safe, loggable representation of cfg.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, Metric: %s, CheckpointInterval: %d, HNSW.M: %d}",
		c.DataDir, c.Metric, c.CheckpointInterval, c.HNSW.M,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
