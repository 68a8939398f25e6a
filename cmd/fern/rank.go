package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/documents"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/resolution"
)

type rankOutput struct {
	EventID string             `json:"event_id"`
	Title   string             `json:"title"`
	Result  models.MatchResult `json:"result"`
}

// rank is a dry run: nothing is read from or written to the match store
func newRankCommand(ctx *commandContext) *cobra.Command {
	var icsPath string
	var folderPath string
	var eventID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank folder documents against ICS events without saving decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			evts, err := loadEvents(ctx, icsPath, eventID)
			if err != nil {
				return err
			}

			dir := folderPath
			if dir == "" {
				dir = ctx.config.Documents.Dir
			}
			source, err := documents.NewFolderSource(dir, ctx.config.Documents.Extensions, ctx.config.Documents.MaxBytes, ctx.logger)
			if err != nil {
				return err
			}
			defer source.Close()

			ranker := matching.NewRanker(ctx.matchingConfig())
			window := ranker.Config().TimeWindowHours

			outputs := make([]rankOutput, 0, len(evts))
			for _, event := range evts {
				candidates, err := source.ListCandidates(cmd.Context(), ctx.config.Resolution.Folder, resolution.SearchWindow(event.End, window))
				if err != nil {
					return err
				}
				outputs = append(outputs, rankOutput{
					EventID: event.ID,
					Title:   event.Title,
					Result:  ranker.Rank(event, candidates, nil),
				})
			}

			if asJSON {
				return writeJSON(cmd, outputs)
			}
			out := cmd.OutOrStdout()
			for _, o := range outputs {
				fmt.Fprintf(out, "%s (%s): %s %s\n", valueOr(o.Title, "(untitled)"), o.EventID, o.Result.Status, o.Result.Reason)
				if len(o.Result.Rationale) > 0 {
					fmt.Fprintln(out, renderRationale(o.Result.Rationale))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&icsPath, "ics", "", "ICS calendar file")
	cmd.Flags().StringVar(&folderPath, "folder", "", "Transcript folder (default documents.dir)")
	cmd.Flags().StringVar(&eventID, "event", "", "Only rank the event with this ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("ics")
	return cmd
}

func renderRationale(scored []models.ScoredCandidate) string {
	rows := make([][]string, 0, len(scored))
	for _, s := range scored {
		rows = append(rows, []string{
			s.Candidate.Name,
			formatTime(s.Candidate.CreatedAt),
			formatScore(s.TemporalScore),
			formatScore(s.NameScore),
			formatScore(s.ParticipantBonus),
			formatScore(s.FinalScore),
			fmt.Sprintf("%.0f", s.MinutesFromEnd),
			yesNo(s.SameDay),
		})
	}
	return renderTable(
		[]string{"Document", "Created", "Time", "Name", "Bonus", "Final", "Minutes", "Same day"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
