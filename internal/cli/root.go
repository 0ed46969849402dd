// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/promoforge/catsync/pkg/logger"
)

type RootOptions struct {
	ConfigFile string
	Debug      bool
}

// NewRootCmd creates and configures the main "root" command
// for the application. It attaches all sub-commands.
func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "catsync",
		Short: "Supplier product catalog sync tool",
		Long: `catsync pulls product catalogs from supplier APIs, normalizes them
into a unified schema, and loads them into a product database.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "configs/etl.json", "Path to the config file")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		logger.Sync()
	}

	rootCmd.AddCommand(
		NewSyncCmd(opts),
		NewValidateCmd(opts),
		NewStatusCmd(opts),
		NewSetupCmd(opts),
		NewBackupCmd(opts),
		NewCleanupCmd(opts),
		NewInitConfigCmd(opts),
	)

	return rootCmd
}
