package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/internal/dataset"
)

type genFlags struct {
	dim     int
	count   int
	seed    int64
	metric  string
	dataset string
	renorm  bool
	out     string
	blob    string
}

func newGenCommand(g *globalFlags) *cobra.Command {
	f := &genFlags{}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic index and save it",
		Long: `Generate vectors, add them to an index and save the snapshot.

Datasets:
  uniform   components uniform in [0, 1)
  gaussian  standard normal components
  unit      gaussian vectors scaled to unit length
  integer   small integer components (exact arithmetic)
  circle    dim 2, points evenly spaced on the unit circle
  line      dim 2, points (i*0.01, 0)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGen(cmd, g, f)
		},
	}

	cmd.Flags().IntVar(&f.dim, "dim", 0, "vector dimension (default from config)")
	cmd.Flags().IntVarP(&f.count, "count", "n", 10000, "number of vectors")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&f.metric, "metric", "m", "", "metric: l2 or ip (default from config)")
	cmd.Flags().StringVar(&f.dataset, "dataset", "uniform", "dataset: uniform, gaussian, unit, integer, circle, line")
	cmd.Flags().BoolVar(&f.renorm, "renorm", false, "L2-normalize the generated vectors")
	cmd.Flags().StringVarP(&f.out, "output", "o", "", "output snapshot file")
	cmd.Flags().StringVar(&f.blob, "blob", "", "output blob name in the configured store")
	return cmd
}

func runGen(cmd *cobra.Command, g *globalFlags, f *genFlags) error {
	if f.out == "" && f.blob == "" {
		return fmt.Errorf("--output or --blob is required")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if f.dim > 0 {
		cfg.Index.Dimension = f.dim
	}
	if f.metric != "" {
		cfg.Index.Metric = f.metric
	}
	if dataset.Planar(f.dataset) {
		cfg.Index.Dimension = 2
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, dim, err := dataset.New(f.seed).Generate(f.dataset, f.count, cfg.Index.Dimension)
	if err != nil {
		return err
	}
	if f.renorm {
		distance.RenormL2(data, dim)
	}

	idx, err := cfg.NewIndex(g.options(cfg)...)
	if err != nil {
		return err
	}
	if err := idx.AddVector(data, f.count); err != nil {
		return err
	}

	ctx := cmd.Context()
	if f.blob != "" {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if err := idx.SaveBlob(ctx, store, f.blob); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d vectors of dimension %d to blob %s (%s)\n",
			idx.Len(), idx.Dim(), f.blob, cfg.Compression())
	}
	if f.out != "" {
		if err := idx.Save(f.out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d vectors of dimension %d to %s\n", idx.Len(), idx.Dim(), f.out)
	}
	return nil
}
