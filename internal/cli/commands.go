package cli

import (
	"github.com/spf13/cobra"
)

type SyncOptions struct {
	*RootOptions
	Supplier  string
	BatchSize int
	Since     string
}

// NewSyncCmd creates the "sync" command group with its full and
// incremental variants.
func NewSyncCmd(root *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize supplier catalogs into the product database",
	}

	cmd.PersistentFlags().StringVarP(&opts.Supplier, "supplier", "s", "", "Sync a single supplier (default: all configured)")
	cmd.PersistentFlags().IntVarP(&opts.BatchSize, "batch-size", "b", 0, "Override the configured batch size")

	full := &cobra.Command{
		Use:   "full",
		Short: "Run a full catalog sync",
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c.Context(), opts, false)
		},
	}

	incremental := &cobra.Command{
		Use:   "incremental",
		Short: "Sync only products changed since a given time",
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c.Context(), opts, true)
		},
	}
	incremental.Flags().StringVar(&opts.Since, "since", "", "Lower bound for changes, e.g. 2026-08-01 or RFC 3339")
	incremental.MarkFlagRequired("since")

	cmd.AddCommand(full, incremental)
	return cmd
}

func NewValidateCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check connectivity to every supplier API and the database",
		RunE: func(c *cobra.Command, args []string) error {
			return runValidate(c.Context(), root)
		},
	}
}

func NewStatusCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configured suppliers and catalog collection statistics",
		RunE: func(c *cobra.Command, args []string) error {
			return runStatus(c.Context(), root)
		},
	}
}

func NewSetupCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create database indexes for the product collection",
		RunE: func(c *cobra.Command, args []string) error {
			return runSetup(c.Context(), root)
		},
	}
}

func NewBackupCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the product collection into a timestamped backup",
		RunE: func(c *cobra.Command, args []string) error {
			return runBackup(c.Context(), root)
		},
	}
}

func NewCleanupCmd(root *RootOptions) *cobra.Command {
	var days int
	var supplier string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete products not updated by any sync for a number of days",
		RunE: func(c *cobra.Command, args []string) error {
			return runCleanup(c.Context(), root, supplier, days)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Age threshold in days")
	cmd.Flags().StringVarP(&supplier, "supplier", "s", "", "Restrict cleanup to one supplier")
	return cmd
}

func NewInitConfigCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a sample config file to the configured path",
		RunE: func(c *cobra.Command, args []string) error {
			return runInitConfig(root)
		},
	}
}
