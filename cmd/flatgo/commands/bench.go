package commands

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flatgo"
	"github.com/hupe1980/flatgo/backend"
	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/internal/dataset"
)

type benchFlags struct {
	dim     int
	count   int
	queries int
	k       int
	seed    int64
	metric  string
	rounds  int
}

func newBenchCommand(g *globalFlags) *cobra.Command {
	f := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure search throughput on synthetic data",
		Long: `Generate integer-valued vectors, search them with each host backend
alone and with the default multi-backend split, and report throughput.
Scores of integer vectors are exact, so every configuration must return
the same distances as the cpu reference kernel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, g, f)
		},
	}

	cmd.Flags().IntVar(&f.dim, "dim", 64, "vector dimension")
	cmd.Flags().IntVarP(&f.count, "count", "n", 20000, "number of vectors")
	cmd.Flags().IntVar(&f.queries, "queries", 64, "number of queries")
	cmd.Flags().IntVarP(&f.k, "k", "k", 10, "number of neighbors")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&f.metric, "metric", "m", "l2", "metric: l2 or ip")
	cmd.Flags().IntVar(&f.rounds, "rounds", 3, "timed rounds per configuration")
	return cmd
}

type benchCase struct {
	name string
	opts []flatgo.Option
}

func runBench(cmd *cobra.Command, g *globalFlags, f *benchFlags) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	cfg.Index.Dimension = f.dim
	cfg.Index.Metric = f.metric
	if err := cfg.Validate(); err != nil {
		return err
	}
	if f.rounds <= 0 || f.queries <= 0 || f.k <= 0 {
		return fmt.Errorf("--rounds, --queries and -k must be positive")
	}

	gen := dataset.New(f.seed)
	data := gen.Integer(f.count, f.dim, 4)
	queries := gen.Integer(f.queries, f.dim, 4)
	metric := cfg.Metric()

	cases := []benchCase{
		{"cpu", []flatgo.Option{flatgo.WithBackends(backend.NewCPU())}},
		{"blas", []flatgo.Option{flatgo.WithBackends(backend.NewBLAS())}},
		{"cpu+blas", nil},
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dataset: %d x %d (%s), %d queries, k=%d\n", f.count, f.dim, metric, f.queries, f.k)

	ctx := cmd.Context()
	var ref *flatgo.Results
	for _, c := range cases {
		idx, err := cfg.NewIndex(append(g.options(cfg), c.opts...)...)
		if err != nil {
			return err
		}
		if err := idx.AddVector(data, f.count); err != nil {
			return err
		}

		var (
			best time.Duration
			res  *flatgo.Results
		)
		for range f.rounds {
			start := time.Now()
			res, err = idx.Search(ctx, queries, f.queries, f.k)
			if err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			if d := time.Since(start); best == 0 || d < best {
				best = d
			}
		}

		if ref == nil {
			ref = res
		}
		if err := verify(metric, f.dim, data, queries, ref, res); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}

		qps := float64(f.queries) / best.Seconds()
		fmt.Fprintf(out, "%-10s best %-12s %10.1f queries/s  exact\n", c.name, best, qps)
	}
	return nil
}

// verify checks that every hit of res scores exactly what its row scores
// against the query and that the distance lists equal those of ref.
func verify(metric distance.Metric, dim int, data, queries []float32, ref, res *flatgo.Results) error {
	for q := range res.NumQueries {
		query := queries[q*dim : (q+1)*dim]
		indices, distances := res.Row(q)
		_, want := ref.Row(q)
		if !slices.Equal(distances, want) {
			return fmt.Errorf("query %d: distances %v, reference %v", q, distances, want)
		}
		seen := make(map[int64]bool, len(indices))
		for j, i := range indices[:res.Found] {
			if seen[i] {
				return fmt.Errorf("query %d: index %d returned twice", q, i)
			}
			seen[i] = true

			row := data[int(i)*dim : (int(i)+1)*dim]
			score := distance.SquaredL2(query, row)
			if metric == distance.MetricInnerProduct {
				score = distance.Dot(query, row)
			}
			if score != distances[j] {
				return fmt.Errorf("query %d: index %d scores %g, reported %g", q, i, score, distances[j])
			}
		}
	}
	return nil
}
