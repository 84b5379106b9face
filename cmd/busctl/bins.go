package main

import (
	"github.com/spf13/cobra"

	"github.com/stingsense/stingsense/internal/analytics"
)

func newBinsCmd(opts *globalOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "bins",
		Short: "Split mean acceleration into equal-frequency color bins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := opts.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			bins, err := analytics.QuantileBins(analytics.AccelerationMeans(ds.Events()), count)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bins)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", len(analytics.BinPalette), "number of bins")
	return cmd
}
