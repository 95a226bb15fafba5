package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/resourcehooks/internal/config"
)

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and reach the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := cfg.ExecutorOptions()
			fmt.Fprintf(out, "hooks enabled: %t\n", opts.Enabled)
			fmt.Fprintf(out, "load database values: %t\n", opts.LoadDatabaseValues)
			fmt.Fprintf(out, "log level: %s\n", cfg.Log.Level)

			db, err := cfg.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}
			fmt.Fprintln(out, "database: ok")
			return nil
		},
	}
}
