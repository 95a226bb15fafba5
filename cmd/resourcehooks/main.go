package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "resourcehooks",
		Short: "Resource hook engine tooling",
		Long: `resourcehooks runs resource hooks against stored resources.
It loads resourcehooks.yaml (or the file given with --config) and the RESOURCEHOOKS_* environment.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./resourcehooks.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newCheckCmd(&configPath))
	rootCmd.AddCommand(newOrdersCmd(&configPath))

	return rootCmd
}
