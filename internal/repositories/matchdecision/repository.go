package matchdecision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "match_decisions"

var columns = []string{"id", "event_id", "document_id", "url", "score", "method", "status", "created_at", "confirmed_at", "updated_at"}

// A stored confirmed or rejected status is never overwritten by a save, and a
// manual confirmation keeps its method so it stays pinned.
const upsertClause = ` ON CONFLICT (event_id, document_id) DO UPDATE SET
	score = excluded.score,
	url = COALESCE(excluded.url, match_decisions.url),
	method = CASE WHEN match_decisions.status = 'confirmed' AND match_decisions.method = 'manual' THEN match_decisions.method ELSE excluded.method END,
	status = CASE WHEN match_decisions.status IN ('confirmed', 'rejected') THEN match_decisions.status ELSE excluded.status END,
	confirmed_at = CASE WHEN match_decisions.status IN ('confirmed', 'rejected') THEN match_decisions.confirmed_at ELSE excluded.confirmed_at END,
	updated_at = excluded.updated_at`

// Repository persists match decisions keyed by (event_id, document_id)
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match decision repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB returns the underlying database
func (r *Repository) DB() database.DB {
	return r.db
}

// Save upserts a decision on its natural key and returns the stored row.
// New rows default to pending.
func (r *Repository) Save(ctx context.Context, decision *models.MatchDecision) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.Save")
	defer span.End()

	if decision.EventID == "" || decision.DocumentID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "event_id and document_id are required")
	}
	if decision.Score < 0 || decision.Score > 1 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("score %.3f is outside [0, 1]", decision.Score))
	}

	status := decision.Status
	if status == "" {
		status = models.MatchDecisionStatusPending
	}
	method := decision.Method
	if method == "" {
		method = models.MatchMethodFuzzySearch
	}

	now := time.Now().UTC()
	var confirmedAt *time.Time
	if status == models.MatchDecisionStatusConfirmed {
		confirmedAt = &now
	}

	ib := r.db.Flavor().NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(uuid.New().String(), decision.EventID, decision.DocumentID, decision.URL, decision.Score, string(method), string(status), now, confirmedAt, now)

	query, args := ib.Build()
	query += upsertClause

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save match decision")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id":    decision.EventID,
			"document_id": decision.DocumentID,
		}).Error("Failed to upsert match decision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save match decision")
	}

	stored, err := r.getByKey(ctx, tx, decision.EventID, decision.DocumentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save match decision")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"decision_id": stored.ID,
		"event_id":    stored.EventID,
		"document_id": stored.DocumentID,
		"status":      stored.Status,
		"score":       stored.Score,
	}).Debug("Saved match decision")

	return stored, nil
}

// FindExisting returns the best confirmed decision for the event, else the best
// pending one, else nil. Rejected decisions are never returned.
func (r *Repository) FindExisting(ctx context.Context, eventID string) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.FindExisting")
	defer span.End()

	for _, status := range []models.MatchDecisionStatus{models.MatchDecisionStatusConfirmed, models.MatchDecisionStatusPending} {
		sb := r.db.Flavor().NewSelectBuilder()
		sb.Select(columns...)
		sb.From(table)
		sb.Where(
			sb.Equal("event_id", eventID),
			sb.Equal("status", string(status)),
		)
		sb.OrderBy("score DESC", "updated_at DESC")
		sb.Limit(1)

		query, args := sb.Build()
		var decision models.MatchDecision
		if err := r.db.GetContext(ctx, &decision, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			r.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Error("Failed to find existing match decision")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find match decision")
		}
		return &decision, nil
	}

	return nil, nil
}

// Get retrieves a decision by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.Get")
	defer span.End()

	return r.get(ctx, r.db, id)
}

// ListForEvent returns every decision for an event, best score first
func (r *Repository) ListForEvent(ctx context.Context, eventID string) ([]models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.ListForEvent")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("event_id", eventID))
	sb.OrderBy("score DESC", "created_at ASC")

	query, args := sb.Build()
	decisions := []models.MatchDecision{}
	if err := r.db.SelectContext(ctx, &decisions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Error("Failed to list match decisions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match decisions")
	}

	return decisions, nil
}

// ListByStatus returns decisions with the given status across events, for review queues
func (r *Repository) ListByStatus(ctx context.Context, status models.MatchDecisionStatus, limit int) ([]models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.ListByStatus")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("status", string(status)))
	sb.OrderBy("score DESC", "updated_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	decisions := []models.MatchDecision{}
	if err := r.db.SelectContext(ctx, &decisions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("status", status).Error("Failed to list match decisions by status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match decisions")
	}

	return decisions, nil
}

// RejectedDocumentIDs returns the documents a human has ruled out for the event
func (r *Repository) RejectedDocumentIDs(ctx context.Context, eventID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.RejectedDocumentIDs")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select("document_id")
	sb.From(table)
	sb.Where(
		sb.Equal("event_id", eventID),
		sb.Equal("status", string(models.MatchDecisionStatusRejected)),
	)

	query, args := sb.Build()
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Error("Failed to list rejected documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list rejected documents")
	}

	return ids, nil
}

// Confirm marks a decision confirmed
func (r *Repository) Confirm(ctx context.Context, id string) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.Confirm")
	defer span.End()

	return r.updateStatus(ctx, id, models.MatchDecisionStatusConfirmed)
}

// Reject marks a decision rejected. The automatic matcher never reconsiders it.
func (r *Repository) Reject(ctx context.Context, id string) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.Reject")
	defer span.End()

	return r.updateStatus(ctx, id, models.MatchDecisionStatusRejected)
}

// Pin records a human choice of document for an event as a confirmed manual decision
func (r *Repository) Pin(ctx context.Context, eventID, documentID string, url *string) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.Pin")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to pin match decision")
	}
	defer tx.Rollback(ctx)

	saved, err := r.Save(ctx, &models.MatchDecision{
		EventID:    eventID,
		DocumentID: documentID,
		URL:        url,
		Score:      1,
		Method:     models.MatchMethodManual,
		Status:     models.MatchDecisionStatusConfirmed,
	})
	if err != nil {
		return nil, err
	}

	// an existing pending or rejected row keeps its status through an upsert
	if saved.Status != models.MatchDecisionStatusConfirmed || saved.Method != models.MatchMethodManual {
		now := time.Now().UTC()
		ub := r.db.Flavor().NewUpdateBuilder()
		ub.Update(table)
		ub.Set(
			ub.Assign("status", string(models.MatchDecisionStatusConfirmed)),
			ub.Assign("method", string(models.MatchMethodManual)),
			ub.Assign("confirmed_at", now),
			ub.Assign("updated_at", now),
		)
		ub.Where(ub.Equal("id", saved.ID))

		query, args := ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("decision_id", saved.ID).Error("Failed to pin match decision")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to pin match decision")
		}

		if saved, err = r.get(ctx, tx, saved.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to pin match decision")
	}

	return saved, nil
}

func (r *Repository) updateStatus(ctx context.Context, id string, status models.MatchDecisionStatus) (*models.MatchDecision, error) {
	now := time.Now().UTC()

	var confirmedAt *time.Time
	if status == models.MatchDecisionStatusConfirmed {
		confirmedAt = &now
	}

	ub := r.db.Flavor().NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("status", string(status)),
		ub.Assign("confirmed_at", confirmedAt),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match decision")
	}
	defer tx.Rollback(ctx)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"decision_id": id, "status": status}).Error("Failed to update match decision status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match decision")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match decision %s not found", id))
	}

	decision, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match decision")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"decision_id": id,
		"event_id":    decision.EventID,
		"status":      status,
	}).Info("Updated match decision status")

	return decision, nil
}

func (r *Repository) get(ctx context.Context, q database.Querier, id string) (*models.MatchDecision, error) {
	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var decision models.MatchDecision
	if err := q.GetContext(ctx, &decision, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match decision %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("decision_id", id).Error("Failed to get match decision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match decision")
	}

	return &decision, nil
}

func (r *Repository) getByKey(ctx context.Context, q database.Querier, eventID, documentID string) (*models.MatchDecision, error) {
	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("event_id", eventID),
		sb.Equal("document_id", documentID),
	)

	query, args := sb.Build()
	var decision models.MatchDecision
	if err := q.GetContext(ctx, &decision, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id":    eventID,
			"document_id": documentID,
		}).Error("Failed to read back match decision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read match decision")
	}

	return &decision, nil
}
