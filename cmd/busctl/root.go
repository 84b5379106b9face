package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stingsense/stingsense/internal/app"
	"github.com/stingsense/stingsense/internal/busdata"
)

// globalOptions are the flags shared by every subcommand. Unset flags fall
// back to the environment.
type globalOptions struct {
	source    string
	csvPath   string
	landmarks string
	verbose   bool
	logger    zerolog.Logger
}

func newRootCmd(logger zerolog.Logger) *cobra.Command {
	opts := &globalOptions{logger: logger}

	root := &cobra.Command{
		Use:   "busctl",
		Short: "Inspect Sting Sense bus telemetry",
		Long: `busctl works directly on a telemetry snapshot without the API server.

Examples:
  busctl tokens --csv data/bus.csv --price 0.15
  busctl geojson --csv data/bus.csv > events.geojson
  busctl bins --count 5
  busctl ask "Where does aggressive driving happen near the Student Center?"`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				opts.logger = opts.logger.Level(zerolog.DebugLevel)
			}
		},
	}
	root.SetVersionTemplate("busctl version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.source, "source", "", "telemetry source: csv or postgres (default: TELEMETRY_SOURCE)")
	flags.StringVar(&opts.csvPath, "csv", "", "telemetry CSV path (default: TELEMETRY_CSV_PATH)")
	flags.StringVar(&opts.landmarks, "landmarks", "", "campus landmarks YAML (default: LANDMARKS_PATH)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newTokensCmd(opts),
		newGeoJSONCmd(opts),
		newBinsCmd(opts),
		newAskCmd(opts),
	)
	return root
}

// config returns the environment configuration with flag overrides applied.
func (o *globalOptions) config() app.Config {
	cfg := app.ConfigFromEnv()
	if o.source != "" {
		cfg.Source = o.source
	}
	if o.csvPath != "" {
		cfg.Source = app.SourceCSV
		cfg.CSVPath = o.csvPath
	}
	if o.landmarks != "" {
		cfg.LandmarksPath = o.landmarks
	}
	return cfg
}

// loadDataset loads the telemetry snapshot only.
func (o *globalOptions) loadDataset(ctx context.Context) (*busdata.Dataset, error) {
	ds, pool, err := app.LoadDataset(ctx, o.config(), o.logger)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		pool.Close()
	}
	o.logger.Debug().Str("source", ds.Source()).Int("events", ds.Len()).Msg("telemetry loaded")
	return ds, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
