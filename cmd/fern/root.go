package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var matchingFlag string

	ctx := newCommandContext(&configFlag, &matchingFlag)

	rootCmd := &cobra.Command{
		Use:           "fern",
		Short:         "Transcript matching and sync reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default fern.toml)")
	rootCmd.PersistentFlags().StringVar(&matchingFlag, "matching", "", "Per-user matching weights file")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newRankCommand(ctx))
	rootCmd.AddCommand(newDecisionsCommand(ctx))
	rootCmd.AddCommand(newConflictCommand(ctx))

	return rootCmd
}
