package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/review"
)

func newDecisionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Review match decisions",
	}

	cmd.AddCommand(newDecisionsListCommand(ctx))
	cmd.AddCommand(newDecisionsReviewCommand(ctx, "confirm", "Confirm a decision", (*review.Service).Confirm))
	cmd.AddCommand(newDecisionsReviewCommand(ctx, "reject", "Reject a decision so automation never proposes it again", (*review.Service).Reject))
	cmd.AddCommand(newDecisionsPinCommand(ctx))
	return cmd
}

func newDecisionsListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var eventID string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List decisions for an event or by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), ctx, appOptions{store: true}, func(a *app) error {
				var decisions []models.MatchDecision
				var err error
				if eventID != "" {
					decisions, err = a.review.ListForEvent(cmd.Context(), eventID)
				} else {
					decisions, err = a.review.ListQueue(cmd.Context(), models.MatchDecisionStatus(strings.ToLower(status)), limit)
				}
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, decisions)
				}
				if len(decisions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No decisions")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDecisions(decisions))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", string(models.MatchDecisionStatusPending), "Status to list (pending, confirmed, rejected)")
	cmd.Flags().StringVar(&eventID, "event", "", "List every decision for this event instead")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}


type reviewFunc func(*review.Service, context.Context, string, models.ReviewDecisionRequest) (*models.MatchDecision, error)

func newDecisionsReviewCommand(ctx *commandContext, use, short string, apply reviewFunc) *cobra.Command {
	var reviewer string
	var note string

	cmd := &cobra.Command{
		Use:   use + " DECISION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), ctx, appOptions{store: true}, func(a *app) error {
				decision, err := apply(a.review, cmd.Context(), args[0], models.ReviewDecisionRequest{Reviewer: reviewer, Note: note})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Decision %s is %s (event %s, document %s)\n", decision.ID, decision.Status, decision.EventID, decision.DocumentID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Who is reviewing")
	cmd.Flags().StringVar(&note, "note", "", "Review note")
	return cmd
}

func newDecisionsPinCommand(ctx *commandContext) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "pin EVENT_ID DOCUMENT_ID",
		Short: "Pin a document to an event as a permanent manual override",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := review.PinRequest{DocumentID: args[1]}
			if url != "" {
				req.URL = &url
			}
			return withApp(cmd.Context(), ctx, appOptions{store: true}, func(a *app) error {
				decision, err := a.review.Pin(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pinned document %s to event %s (decision %s)\n", decision.DocumentID, decision.EventID, decision.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Document view URL")
	return cmd
}

func renderDecisions(decisions []models.MatchDecision) string {
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		url := "-"
		if d.URL != nil {
			url = *d.URL
		}
		rows = append(rows, []string{
			d.ID,
			d.EventID,
			d.DocumentID,
			string(d.Method),
			string(d.Status),
			formatScore(d.Score),
			formatTime(d.UpdatedAt),
			url,
		})
	}
	return renderTable(
		[]string{"ID", "Event", "Document", "Method", "Status", "Score", "Updated", "URL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}
