package main

import (
	"github.com/spf13/cobra"

	"github.com/stingsense/stingsense/internal/busdata"
)

func newGeoJSONCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "geojson",
		Short: "Export telemetry events as a GeoJSON FeatureCollection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := opts.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), busdata.ToGeoJSON(ds.Events()))
		},
	}
}
