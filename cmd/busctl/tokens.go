package main

import (
	"github.com/spf13/cobra"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/chunking"
	"github.com/stingsense/stingsense/internal/query"
)

func newTokensCmd(opts *globalOptions) *cobra.Command {
	var (
		price     float64
		estimator string
	)

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Report raw-mode prompt sizes for the benchmark questions",
		Long: `Render every prompt raw mode would send for the five benchmark questions
and estimate their tokens under each estimator. Nothing is sent to the
completion service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := opts.loadDataset(cmd.Context())
			if err != nil {
				return err
			}

			cfg := analyst.ConfigFromEnv()
			if estimator != "" {
				cfg.Estimator = estimator
			}
			chunkCfg, err := cfg.ChunkingConfig()
			if err != nil {
				return err
			}

			benchmark := query.BenchmarkQuestions()
			questions := make([]chunking.Question, 0, len(benchmark))
			for _, q := range benchmark {
				questions = append(questions, chunking.Question{ID: q.ID, Text: q.Question})
			}

			report, err := chunking.NewEngine(chunkCfg).Estimate(ds.Events(), questions, price)
			if err != nil {
				return err
			}
			if report.Warning != "" {
				opts.logger.Warn().Msg(report.Warning)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().Float64Var(&price, "price", chunking.DefaultPricePerMillionTokens, "USD per million input tokens")
	cmd.Flags().StringVar(&estimator, "estimator", "", "token estimator used for cost: chars-per-token or tokens-per-char")
	return cmd
}
