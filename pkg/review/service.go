// Package review exposes the human side of match decisions: listing them,
// confirming or rejecting them, and pinning a document by hand.
package review

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Store is the decision persistence a reviewer acts on
type Store interface {
	Get(ctx context.Context, id string) (*models.MatchDecision, error)
	ListForEvent(ctx context.Context, eventID string) ([]models.MatchDecision, error)
	ListByStatus(ctx context.Context, status models.MatchDecisionStatus, limit int) ([]models.MatchDecision, error)
	Confirm(ctx context.Context, id string) (*models.MatchDecision, error)
	Reject(ctx context.Context, id string) (*models.MatchDecision, error)
	Pin(ctx context.Context, eventID, documentID string, url *string) (*models.MatchDecision, error)
}

// PinRequest is the body of the manual pin endpoint
type PinRequest struct {
	DocumentID string  `json:"document_id" validate:"required"`
	URL        *string `json:"url,omitempty" validate:"omitempty,url"`
}

// Service applies review actions and publishes the resulting transitions
type Service struct {
	store    Store
	notifier events.Notifier
	logger   ectologger.Logger
}

func NewService(store Store, notifier events.Notifier, logger ectologger.Logger) *Service {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.ListForEvent")
	defer span.End()

	if eventID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "event_id is required")
	}
	return s.store.ListForEvent(ctx, eventID)
}

// ListQueue lists decisions in status across all events, pending by default
func (s *Service) ListQueue(ctx context.Context, status models.MatchDecisionStatus, limit int) ([]models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.ListQueue")
	defer span.End()

	switch status {
	case "":
		status = models.MatchDecisionStatusPending
	case models.MatchDecisionStatusPending, models.MatchDecisionStatusConfirmed, models.MatchDecisionStatusRejected:
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "unknown decision status "+string(status))
	}
	return s.store.ListByStatus(ctx, status, limit)
}

func (s *Service) Confirm(ctx context.Context, id string, req models.ReviewDecisionRequest) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Confirm")
	defer span.End()

	return s.transition(ctx, id, req, s.store.Confirm)
}

func (s *Service) Reject(ctx context.Context, id string, req models.ReviewDecisionRequest) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Reject")
	defer span.End()

	return s.transition(ctx, id, req, s.store.Reject)
}

// Pin makes documentID the confirmed manual decision for eventID. The ranker
// leaves a pinned event alone from then on.
func (s *Service) Pin(ctx context.Context, eventID string, req PinRequest) (*models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Pin")
	defer span.End()

	if eventID == "" || req.DocumentID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "event_id and document_id are required")
	}

	decision, err := s.store.Pin(ctx, eventID, req.DocumentID, req.URL)
	if err != nil {
		return nil, err
	}

	s.published(ctx, decision, "")
	return decision, nil
}

func (s *Service) transition(ctx context.Context, id string, req models.ReviewDecisionRequest, apply func(context.Context, string) (*models.MatchDecision, error)) (*models.MatchDecision, error) {
	if id == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "decision id is required")
	}

	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	decision, err := apply(ctx, id)
	if err != nil {
		return nil, err
	}

	if before.Status == decision.Status {
		return decision, nil
	}

	s.published(ctx, decision, req.Reviewer)
	return decision, nil
}

func (s *Service) published(ctx context.Context, decision *models.MatchDecision, reviewer string) {
	metrics.DecisionTransitionsTotal.WithLabelValues(string(decision.Status), string(decision.Method)).Inc()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"decision_id": decision.ID,
		"event_id":    decision.EventID,
		"document_id": decision.DocumentID,
		"status":      decision.Status,
		"reviewer":    reviewer,
	})
	log.Info("Match decision reviewed")

	if err := s.notifier.DecisionStatusChanged(ctx, decision); err != nil {
		log.WithError(err).Warn("Failed to notify decision status change")
	}
}
