package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var version uint
	var force int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply match store schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if cmd.Flags().Changed("version") {
				cfg.Database.MigrationVersion = version
			}
			if cmd.Flags().Changed("force") {
				cfg.Database.MigrationForce = force
			}

			conn, err := database.Open(cfg.DatabaseConfig(), ctx.logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			a := newApp(ctx, appOptions{})
			if err := a.migrationService().Migrate(conn); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", cfg.Database.Driver)
			return nil
		},
	}

	cmd.Flags().UintVar(&version, "version", 0, "Target schema version (default latest)")
	cmd.Flags().IntVar(&force, "force", 0, "Force the schema version before migrating")
	return cmd
}
