package config

import "github.com/hupe1980/flatgo/scheduler"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "l2"
	}
	if cfg.Scheduler.Policy == "" {
		cfg.Scheduler.Policy = "even"
	}
	if cfg.Scheduler.SmallWorkloadThreshold == 0 {
		cfg.Scheduler.SmallWorkloadThreshold = scheduler.DefaultSmallWorkloadThreshold
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.Compression == "" {
		cfg.Storage.Compression = "none"
	}
	if cfg.Storage.Local.Root == "" {
		cfg.Storage.Local.Root = "."
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
