// Package config loads flatgo configuration files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/flatgo"
	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/persistence"
	"github.com/hupe1980/flatgo/resource"
	"github.com/hupe1980/flatgo/scheduler"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config holds all configuration of an index and its snapshot storage.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Engine    EngineConfig    `yaml:"engine"`
	Resources ResourceConfig  `yaml:"resources"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// IndexConfig describes the vectors.
type IndexConfig struct {
	Dimension       int    `yaml:"dimension"`
	Metric          string `yaml:"metric"`
	InitialCapacity int    `yaml:"initial_capacity"`
}

// SchedulerConfig controls how searches are split across backends.
type SchedulerConfig struct {
	// Policy is "even" or "weighted".
	Policy                 string             `yaml:"policy"`
	Weights                map[string]float64 `yaml:"weights,omitempty"`
	Fallback               *string            `yaml:"fallback,omitempty"`
	SmallWorkloadThreshold int                `yaml:"small_workload_threshold"`
	MergeWorkers           int                `yaml:"merge_workers"`
}

// EngineConfig tunes the distance engine of the host backends.
type EngineConfig struct {
	MemoryBudget int64 `yaml:"memory_budget"`
	Workers      int   `yaml:"workers"`
}

// ResourceConfig holds process-wide limits. Zero means unlimited.
type ResourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes"`
	MaxWorkers         int64 `yaml:"max_workers"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// StorageConfig selects where snapshots are stored.
type StorageConfig struct {
	// Backend is "local", "minio" or "s3".
	Backend     string      `yaml:"backend"`
	Compression string      `yaml:"compression"`
	Local       LocalConfig `yaml:"local"`
	MinIO       MinIOConfig `yaml:"minio"`
	S3          S3Config    `yaml:"s3"`
}

// LocalConfig configures a directory-backed store.
type LocalConfig struct {
	Root string `yaml:"root"`
}

// MinIOConfig configures a MinIO store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// S3Config configures an S3 store. Credentials come from the default AWS
// chain.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Load reads and parses the config file at path, applies defaults and
// validates the result. Relative local storage roots are resolved against
// the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if root := cfg.Storage.Local.Root; root != "" && !filepath.IsAbs(root) {
		cfg.Storage.Local.Root = filepath.Join(filepath.Dir(path), root)
	}
	return cfg, nil
}

// Parse parses YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the config for values no index accepts.
func (c *Config) Validate() error {
	var errs []error

	if c.Index.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("index.dimension must be positive, got %d", c.Index.Dimension))
	}
	if _, err := distance.ParseMetric(c.Index.Metric); err != nil {
		errs = append(errs, fmt.Errorf("index.metric: %w", err))
	}

	switch c.Scheduler.Policy {
	case "even":
	case "weighted":
		if len(c.Scheduler.Weights) == 0 {
			errs = append(errs, errors.New("scheduler.weights required for the weighted policy"))
		}
		for name, w := range c.Scheduler.Weights {
			if w < 0 {
				errs = append(errs, fmt.Errorf("scheduler.weights.%s is negative", name))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown scheduler.policy %q", c.Scheduler.Policy))
	}

	if _, err := persistence.ParseCompression(c.Storage.Compression); err != nil {
		errs = append(errs, fmt.Errorf("storage.compression: %w", err))
	}
	switch c.Storage.Backend {
	case "local":
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			errs = append(errs, errors.New("storage.minio.endpoint and storage.minio.bucket are required"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Metric returns the parsed index metric.
func (c *Config) Metric() distance.Metric {
	m, _ := distance.ParseMetric(c.Index.Metric)
	return m
}

// Compression returns the parsed snapshot compression.
func (c *Config) Compression() persistence.Compression {
	comp, _ := persistence.ParseCompression(c.Storage.Compression)
	return comp
}

// Logger builds the configured logger.
func (c *Config) Logger() *flatgo.Logger {
	level, _ := parseLevel(c.Log.Level)
	if c.Log.Format == "json" {
		return flatgo.NewJSONLogger(level)
	}
	return flatgo.NewTextLogger(level)
}

// Options translates the config into index options. A shared resource
// controller is created when any limit is set.
func (c *Config) Options() []flatgo.Option {
	opts := []flatgo.Option{
		flatgo.WithInitialCapacity(c.Index.InitialCapacity),
		flatgo.WithSmallWorkloadThreshold(c.Scheduler.SmallWorkloadThreshold),
		flatgo.WithMergeWorkers(c.Scheduler.MergeWorkers),
		flatgo.WithMemoryBudget(c.Engine.MemoryBudget),
		flatgo.WithEngineWorkers(c.Engine.Workers),
		flatgo.WithCompression(c.Compression()),
		flatgo.WithLogger(c.Logger()),
	}
	if c.Scheduler.Fallback != nil {
		opts = append(opts, flatgo.WithFallback(*c.Scheduler.Fallback))
	}
	if c.Scheduler.Policy == "weighted" {
		opts = append(opts, flatgo.WithPolicy(scheduler.WeightedPolicy{Weights: c.Scheduler.Weights}))
	}
	if c.Resources != (ResourceConfig{}) {
		opts = append(opts, flatgo.WithResources(resource.NewController(resource.Config{
			MemoryLimitBytes:   c.Resources.MemoryLimitBytes,
			MaxWorkers:         c.Resources.MaxWorkers,
			IOLimitBytesPerSec: c.Resources.IOLimitBytesPerSec,
		})))
	}
	return opts
}

// NewIndex creates an empty index as configured.
func (c *Config) NewIndex(extra ...flatgo.Option) (*flatgo.Index, error) {
	return flatgo.New(c.Index.Dimension, c.Metric(), append(c.Options(), extra...)...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log.level %q", s)
	}
	return level, nil
}
