package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	correct "github.com/profilekit/correct"
	"github.com/profilekit/correct/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one correction pass from a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		wf, err := correct.NewWorkflow(cfg, correct.WithLogger(newLogger()))
		if err != nil {
			return err
		}

		correctedPath, err := wf.Run(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Println(correctedPath)
		return nil
	},
}

func newLogger() *correct.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return correct.NewTextLogger(level)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
