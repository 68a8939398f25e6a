package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	linkTranscriptCypher = `
		MERGE (e:Event {id: $event_id})
		MERGE (d:Document {id: $document_id})
		SET d.url = coalesce($url, d.url)
		MERGE (e)-[r:HAS_TRANSCRIPT]->(d)
		SET r.decision_id = $decision_id,
			r.method = $method,
			r.score = $score,
			r.confirmed_at = $confirmed_at
	`

	unlinkTranscriptCypher = `
		MATCH (:Event {id: $event_id})-[r:HAS_TRANSCRIPT]->(:Document {id: $document_id})
		DELETE r
	`
)

// Writer runs a write transaction
type Writer interface {
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error)
}

var _ events.Notifier = (*Projector)(nil)

// Projector keeps (Event)-[:HAS_TRANSCRIPT]->(Document) edges in line with
// confirmed decisions. Pending decisions are not projected.
type Projector struct {
	writer Writer
	logger ectologger.Logger
}

func NewProjector(writer Writer, logger ectologger.Logger) *Projector {
	return &Projector{writer: writer, logger: logger}
}

func (p *Projector) DecisionSaved(ctx context.Context, decision *models.MatchDecision) error {
	if decision.Status != models.MatchDecisionStatusConfirmed {
		return nil
	}
	return p.run(ctx, linkTranscriptCypher, linkParams(decision))
}

func (p *Projector) DecisionStatusChanged(ctx context.Context, decision *models.MatchDecision) error {
	switch decision.Status {
	case models.MatchDecisionStatusConfirmed:
		return p.run(ctx, linkTranscriptCypher, linkParams(decision))
	case models.MatchDecisionStatusRejected:
		return p.run(ctx, unlinkTranscriptCypher, map[string]any{
			"event_id":    decision.EventID,
			"document_id": decision.DocumentID,
		})
	}
	return nil
}

func (p *Projector) ConflictResolved(context.Context, models.ConflictRecord, models.ConflictResolution) error {
	return nil
}

func (p *Projector) run(ctx context.Context, cypher string, params map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.run")
	defer span.End()

	_, err := p.writer.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id":    params["event_id"],
			"document_id": params["document_id"],
		}).Error("Failed to project transcript link")
		return err
	}
	return nil
}

func linkParams(decision *models.MatchDecision) map[string]any {
	var url any
	if decision.URL != nil {
		url = *decision.URL
	}
	var confirmedAt any
	if decision.ConfirmedAt != nil {
		confirmedAt = decision.ConfirmedAt.UTC()
	}

	return map[string]any{
		"event_id":     decision.EventID,
		"document_id":  decision.DocumentID,
		"url":          url,
		"decision_id":  decision.ID,
		"method":       string(decision.Method),
		"score":        decision.Score,
		"confirmed_at": confirmedAt,
	}
}
