package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flatgo"
)

type searchFlags struct {
	queries []string
	k       int
	backend string
	start   int
	end     int
	blob    string
	asJSON  bool
}

type queryResult struct {
	Query int          `json:"query"`
	Hits  []flatgo.Hit `json:"hits"`
}

func newSearchCommand(g *globalFlags) *cobra.Command {
	f := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search [file]",
		Short: "Search a snapshot",
		Long: `Load a snapshot and print the exact top-k of each query.

Queries are comma separated components; repeat --query for a batch. With
--backend the search runs on that backend only, over rows [--start, --end).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, f, args)
		},
	}

	cmd.Flags().StringArrayVarP(&f.queries, "query", "q", nil, "query vector, e.g. 0.5,1,0 (repeatable)")
	cmd.Flags().IntVarP(&f.k, "k", "k", 10, "number of neighbors")
	cmd.Flags().StringVar(&f.backend, "backend", "", "run only on this backend")
	cmd.Flags().IntVar(&f.start, "start", 0, "first row with --backend")
	cmd.Flags().IntVar(&f.end, "end", -1, "end row (exclusive) with --backend, default all rows")
	cmd.Flags().StringVar(&f.blob, "blob", "", "load the snapshot from the configured blob store")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON")
	return cmd
}

func parseVector(s string) ([]float32, error) {
	fields := strings.Split(s, ",")
	v := make([]float32, 0, len(fields))
	for _, field := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid component %q: %w", field, err)
		}
		v = append(v, float32(x))
	}
	return v, nil
}

func runSearch(cmd *cobra.Command, g *globalFlags, f *searchFlags, args []string) error {
	if len(f.queries) == 0 {
		return fmt.Errorf("at least one --query is required")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	ctx := cmd.Context()
	idx, err := g.openIndex(ctx, cfg, path, f.blob)
	if err != nil {
		return err
	}

	var queries []float32
	for _, q := range f.queries {
		v, err := parseVector(q)
		if err != nil {
			return err
		}
		queries = append(queries, v...)
	}
	nq := len(f.queries)

	var res *flatgo.Results
	if f.backend != "" {
		end := f.end
		if end < 0 {
			end = idx.Len()
		}
		res, err = idx.QueryRange(ctx, f.k, f.start, end, f.backend, queries, nq)
	} else {
		res, err = idx.Search(ctx, queries, nq, f.k)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		results := make([]queryResult, nq)
		for q := range nq {
			results[q] = queryResult{Query: q, Hits: res.Hits(q)}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for q := range nq {
		fmt.Fprintf(out, "query %d:\n", q)
		for rank, h := range res.Hits(q) {
			fmt.Fprintf(out, "  %3d  index=%d  distance=%g\n", rank+1, h.Index, h.Distance)
		}
	}
	return nil
}
