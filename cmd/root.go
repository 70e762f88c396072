package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "arbengine",
	Short: "Cross-venue prediction-market arbitrage engine",
	Long: `arbengine watches matched market pairs on Opinion and Polymarket,
scans their order books for a crossing where the two complementary asks sum
to less than 1.0, and either takes the crossing immediately or works it as a
resting order, hedging the second leg as fills accumulate.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

// exitCode lets a RunE set a more specific exit status than the plain
// config-error default (spec's operator interface: 0 normal, 1
// configuration error, 2 both venues unavailable past the matcher's grace
// period) before returning control to Execute.
//
//nolint:gochecknoglobals // set by run.go on a sustained both-venues-down halt
var exitCode int

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
