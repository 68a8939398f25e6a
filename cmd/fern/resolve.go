package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/calendar"
	"github.com/Ramsey-B/fern/pkg/models"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var icsPath string
	var eventID string
	var stopOnError bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve transcripts for the events in an ICS file",
		RunE: func(cmd *cobra.Command, args []string) error {
			evts, err := loadEvents(ctx, icsPath, eventID)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), ctx, appOptions{store: true, sources: true}, func(a *app) error {
				result := a.pipeline.ResolveBatch(cmd.Context(), evts, stopOnError)
				if asJSON {
					return writeJSON(cmd, result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBatch(evts, result))
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d, no document %d, failed %d\n", result.Resolved, result.NoDocument, result.Failed)
				if result.Aborted {
					return fmt.Errorf("batch aborted after %d of %d events", len(result.Items), len(evts))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&icsPath, "ics", "", "ICS calendar file")
	cmd.Flags().StringVar(&eventID, "event", "", "Only resolve the event with this ID")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Abort the batch on the first store failure")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("ics")
	return cmd
}

func loadEvents(cc *commandContext, path, eventID string) ([]models.Event, error) {
	evts, err := calendar.NewLoader(time.Local, cc.logger).LoadFile(path)
	if err != nil {
		return nil, err
	}
	if eventID == "" {
		return evts, nil
	}
	for _, event := range evts {
		if event.ID == eventID {
			return []models.Event{event}, nil
		}
	}
	return nil, fmt.Errorf("event %q not found in %s", eventID, path)
}

func renderBatch(evts []models.Event, result models.BatchResult) string {
	titles := make(map[string]string, len(evts))
	for _, event := range evts {
		titles[event.ID] = event.Title
	}

	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		row := []string{item.EventID, titles[item.EventID]}
		switch {
		case item.Error != "":
			row = append(row, "error", "-", "-", "-", item.Error)
		case item.Resolution != nil:
			res := item.Resolution
			row = append(row,
				string(res.Status),
				valueOr(res.DocumentID, "-"),
				valueOr(string(res.Method), "-"),
				formatScore(res.Score),
				res.Reason,
			)
		}
		rows = append(rows, row)
	}

	return renderTable(
		[]string{"Event", "Title", "Status", "Document", "Method", "Score", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
