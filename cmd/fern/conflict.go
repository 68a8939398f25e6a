package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
)

func newConflictCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflict",
		Short: "Reconcile diverged record versions",
	}
	cmd.AddCommand(newConflictResolveCommand(ctx))
	return cmd
}

func newConflictResolveCommand(ctx *commandContext) *cobra.Command {
	var file string
	var strategy string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a conflict record read from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read conflict file: %w", err)
			}
			var record models.ConflictRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("parse conflict file: %w", err)
			}
			if record.Kind == "" {
				record.Kind = models.RecordKindGeneric
			}

			return withApp(cmd.Context(), ctx, appOptions{}, func(a *app) error {
				detection := a.conflicts.Detect(record.Internal, record.External)
				resolution := a.conflicts.Resolve(cmd.Context(), record, models.ConflictStrategy(strategy))
				return writeJSON(cmd, struct {
					Detection  models.ConflictDetection  `json:"detection"`
					Resolution models.ConflictResolution `json:"resolution"`
				}{detection, resolution})
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with kind, internal and external versions")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy (source_wins, internal_wins, newer_wins, merge, manual)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
