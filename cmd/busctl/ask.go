package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/app"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	var (
		mode     string
		asJSON   bool
		showCard bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question about the telemetry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := analyst.ParseMode(mode)
			if err != nil {
				return err
			}

			pipeline, err := app.Build(cmd.Context(), opts.config(), app.Options{Logger: opts.logger})
			if err != nil {
				return err
			}
			defer pipeline.Close()

			answer, err := pipeline.Analyst.Ask(cmd.Context(), analyst.Query{
				Text: strings.Join(args, " "),
				Mode: m,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, answer)
			}
			if showCard && answer.Card != "" {
				fmt.Fprintln(out, answer.Card)
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, answer.Text)
			for _, w := range answer.Warnings {
				opts.logger.Warn().Msg(w)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(analyst.ModeCluster), "analysis mode: cluster or raw")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full answer as JSON")
	cmd.Flags().BoolVar(&showCard, "card", false, "print the context card before the answer")
	return cmd
}
