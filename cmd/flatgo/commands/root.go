// Package commands implements the flatgo CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flatgo"
	"github.com/hupe1980/flatgo/config"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "flatgo",
		Short: "Exact multi-backend vector search",
		Long: `flatgo - exact ("flat") vector search across compute backends.

Snapshots are read from and written to local files, or to the blob store
configured in the config file (local directory, MinIO or S3).

Examples:
  # Generate 100k random 128-d vectors
  flatgo gen --dim 128 --count 100000 -o index.bin

  # Inspect and search the snapshot
  flatgo info index.bin
  flatgo search index.bin --query 0.1,0.2,... -k 10

  # Compare backends on synthetic data
  flatgo bench --dim 64 --count 50000 --queries 100`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (YAML)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newGenCommand(g),
		newInfoCommand(g),
		newSearchCommand(g),
		newBenchCommand(g),
	)
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig loads the config file if one was given. Without a file the
// defaults apply and the dimension stays unset.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.Load(g.configPath)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// options returns index options for cfg. Verbose mode logs to stderr.
func (g *globalFlags) options(cfg *config.Config) []flatgo.Option {
	opts := cfg.Options()
	if !g.verbose && g.configPath == "" {
		opts = append(opts, flatgo.WithLogger(flatgo.NoopLogger()))
	}
	return opts
}

// openIndex loads a snapshot from a file, or from the configured blob store
// when blob is set.
func (g *globalFlags) openIndex(ctx context.Context, cfg *config.Config, path, blob string) (*flatgo.Index, error) {
	idx, err := flatgo.New(max(1, cfg.Index.Dimension), cfg.Metric(), g.options(cfg)...)
	if err != nil {
		return nil, err
	}

	if blob != "" {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := idx.LoadBlob(ctx, store, blob); err != nil {
			return nil, err
		}
		return idx, nil
	}

	if path == "" {
		return nil, fmt.Errorf("a snapshot file or --blob is required")
	}
	if err := idx.Load(path); err != nil {
		return nil, err
	}
	return idx, nil
}
