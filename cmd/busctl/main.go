// Command busctl inspects Sting Sense telemetry offline: token budgets for raw
// mode, GeoJSON export, acceleration bins and one-off questions.
package main

import (
	"os"

	"github.com/rs/zerolog"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
