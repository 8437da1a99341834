package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	correct "github.com/profilekit/correct"
	"github.com/profilekit/correct/config"
	"github.com/profilekit/correct/sweep"
)

var (
	sweepIterations  int
	sweepParallelism int
	sweepSeed        int64
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Explore sphering regularization values",
	Long: `sweep samples the sphering lambda log-uniformly and runs the correction
workflow once per sample. Each iteration writes to its own subdirectory of
output_dir (opt_00, opt_01, ...); evaluate the results externally and use
select-best to pick a winner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger := newLogger()

		opts := sweep.Options{
			Iterations:  sweepIterations,
			Seed:        sweepSeed,
			Parallelism: sweepParallelism,
		}
		return sweep.Explore(cmd.Context(), opts, func(ctx context.Context, it sweep.Iteration) error {
			cfg := base
			cfg.SpheringLambda = it.Lambda
			cfg.OutputDir = filepath.Join(base.OutputDir, fmt.Sprintf("opt_%02d", it.Index))

			logger.Info("sweep iteration",
				"index", it.Index,
				"run_id", it.RunID,
				"lambda", it.Lambda)

			wf, err := correct.NewWorkflow(cfg, correct.WithLogger(logger))
			if err != nil {
				return err
			}
			correctedPath, err := wf.Run(ctx)
			if err != nil {
				return err
			}
			cmd.Println(correctedPath)
			return nil
		})
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepIterations, "iterations", 15, "number of lambda samples")
	sweepCmd.Flags().IntVar(&sweepParallelism, "parallelism", 1, "max concurrent iterations")
	sweepCmd.Flags().Int64Var(&sweepSeed, "seed", sweep.DefaultSeed, "sampling seed")
	rootCmd.AddCommand(sweepCmd)
}
