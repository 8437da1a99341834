package main

import (
	"github.com/spf13/cobra"

	correct "github.com/profilekit/correct"
	"github.com/profilekit/correct/config"
	"github.com/profilekit/correct/selection"
)

var (
	selectMapFiles     []string
	selectDatasetFiles []string
	selectBestPath     string
)

var selectBestCmd = &cobra.Command{
	Use:   "select-best",
	Short: "Pick the corrected dataset with the highest mean average precision",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		store, err := correct.OpenStore(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		if err := selection.SelectBest(cmd.Context(), store, selectMapFiles, selectDatasetFiles, selectBestPath); err != nil {
			return err
		}
		cmd.Println(selectBestPath)
		return nil
	},
}

func init() {
	selectBestCmd.Flags().StringSliceVar(&selectMapFiles, "maps", nil, "evaluation map files, one per candidate")
	selectBestCmd.Flags().StringSliceVar(&selectDatasetFiles, "datasets", nil, "corrected dataset files, parallel to --maps")
	selectBestCmd.Flags().StringVar(&selectBestPath, "best", "", "destination for the winning dataset")
	_ = selectBestCmd.MarkFlagRequired("maps")
	_ = selectBestCmd.MarkFlagRequired("datasets")
	_ = selectBestCmd.MarkFlagRequired("best")
	rootCmd.AddCommand(selectBestCmd)
}
