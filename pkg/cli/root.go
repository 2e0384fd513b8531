// Package cli implements the edgerel command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/EdgeRel/EdgeRel/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()

	rootCmd := &cobra.Command{
		Use:           "edgerel",
		Short:         "SQL resolver for the object schema",
		Long:          "Rewrites public SQL over an object schema into SQL over the internal storage relations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger := cfg.Logger()
			slog.SetDefault(logger)
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.SchemaPath, "schema", cfg.SchemaPath,
		"Path to the YAML schema document")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat,
		"Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&cfg.AllowUserSpecifiedID, "allow-user-specified-id",
		cfg.AllowUserSpecifiedID, "Permit INSERTs that assign the id column")

	rootCmd.AddCommand(newResolveCmd(cfg))
	rootCmd.AddCommand(newSchemaCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "edgerel %s (%s)\n", version, commit)
		},
	}
}
