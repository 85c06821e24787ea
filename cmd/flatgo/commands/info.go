package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flatgo/blobstore"
	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/persistence"
)

type snapshotInfo struct {
	Source      string `json:"source"`
	Compression string `json:"compression"`
	Magic       uint64 `json:"magic"`
	Dimension   uint64 `json:"dimension"`
	Count       uint64 `json:"count"`
	Metric      string `json:"metric"`
	IsFloat16   bool   `json:"is_float16"`
	Bytes       int64  `json:"bytes"`
}

func newInfoCommand(g *globalFlags) *cobra.Command {
	var (
		blob   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Show the header of a snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info := snapshotInfo{}

			var rc io.Reader
			switch {
			case blob != "":
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				store, err := openStore(ctx, cfg)
				if err != nil {
					return err
				}
				r, err := blobstore.OpenReader(ctx, store, blob)
				if err != nil {
					return err
				}
				defer r.Close()
				rc, info.Source = r, blob
			case len(args) == 1:
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				st, err := f.Stat()
				if err != nil {
					return err
				}
				rc, info.Source, info.Bytes = f, args[0], st.Size()
			default:
				return fmt.Errorf("a snapshot file or --blob is required")
			}

			zr, comp, err := persistence.NewReader(rc)
			if err != nil {
				return err
			}
			defer zr.Close()

			header, err := persistence.ReadHeader(zr)
			if err != nil {
				return err
			}

			info.Compression = comp.String()
			info.Magic = header.Magic
			info.Dimension = header.Dim
			info.Count = header.Count
			info.Metric = distance.Metric(header.Metric).String()
			info.IsFloat16 = header.IsFloat16 != 0

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "source:      %s\n", info.Source)
			fmt.Fprintf(out, "compression: %s\n", info.Compression)
			fmt.Fprintf(out, "magic:       %d\n", info.Magic)
			fmt.Fprintf(out, "dimension:   %d\n", info.Dimension)
			fmt.Fprintf(out, "count:       %d\n", info.Count)
			fmt.Fprintf(out, "metric:      %s\n", info.Metric)
			fmt.Fprintf(out, "float16:     %t\n", info.IsFloat16)
			if info.Bytes > 0 {
				fmt.Fprintf(out, "bytes:       %d\n", info.Bytes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&blob, "blob", "", "read the snapshot from the configured blob store")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
