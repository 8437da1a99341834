// Command correct runs the batch-effect correction pipeline: a single
// correction pass, a regularization parameter sweep, or best-result
// selection across sweep outputs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "correct",
	Short: "Batch-effect correction for high-dimensional profiling data",
	Long: `correct applies one of several interchangeable batch correction methods
to a stored feature dataset. ZCA sphering runs in-process; the delegated
methods (harmony, mnn, scanorama, combat, desc, scvi) require an external
correction engine.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the run configuration file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("config")
}
