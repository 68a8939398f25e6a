// Package events fans match decision and conflict outcomes out to downstream consumers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	TypeDecisionSaved         = "decision.saved"
	TypeDecisionStatusChanged = "decision.status_changed"
	TypeConflictResolved      = "conflict.resolved"
)

// Notifier receives decision and conflict outcomes
type Notifier interface {
	DecisionSaved(ctx context.Context, decision *models.MatchDecision) error
	DecisionStatusChanged(ctx context.Context, decision *models.MatchDecision) error
	ConflictResolved(ctx context.Context, record models.ConflictRecord, resolution models.ConflictResolution) error
}

// Publisher writes a keyed message of the given type
type Publisher interface {
	Publish(ctx context.Context, key string, eventType string, payload any) error
}

// Message is the envelope published for every outcome
type Message struct {
	Type       string                     `json:"type"`
	Timestamp  time.Time                  `json:"timestamp"`
	Decision   *models.MatchDecision      `json:"decision,omitempty"`
	RecordKind models.RecordKind          `json:"record_kind,omitempty"`
	RecordID   string                     `json:"record_id,omitempty"`
	Conflict   *models.ConflictResolution `json:"conflict,omitempty"`
}

// NoopNotifier discards every notification
type NoopNotifier struct{}

func (NoopNotifier) DecisionSaved(context.Context, *models.MatchDecision) error         { return nil }
func (NoopNotifier) DecisionStatusChanged(context.Context, *models.MatchDecision) error { return nil }
func (NoopNotifier) ConflictResolved(context.Context, models.ConflictRecord, models.ConflictResolution) error {
	return nil
}

// MultiNotifier delivers to every notifier and joins their errors
type MultiNotifier []Notifier

func (m MultiNotifier) DecisionSaved(ctx context.Context, decision *models.MatchDecision) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.DecisionSaved(ctx, decision))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) DecisionStatusChanged(ctx context.Context, decision *models.MatchDecision) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.DecisionStatusChanged(ctx, decision))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) ConflictResolved(ctx context.Context, record models.ConflictRecord, resolution models.ConflictResolution) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.ConflictResolved(ctx, record, resolution))
	}
	return errors.Join(errs...)
}

// KafkaNotifier publishes outcomes as Message envelopes
type KafkaNotifier struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

func NewKafkaNotifier(publisher Publisher, logger ectologger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (n *KafkaNotifier) DecisionSaved(ctx context.Context, decision *models.MatchDecision) error {
	return n.publish(ctx, decision.EventID, Message{Type: TypeDecisionSaved, Decision: decision})
}

func (n *KafkaNotifier) DecisionStatusChanged(ctx context.Context, decision *models.MatchDecision) error {
	return n.publish(ctx, decision.EventID, Message{Type: TypeDecisionStatusChanged, Decision: decision})
}

func (n *KafkaNotifier) ConflictResolved(ctx context.Context, record models.ConflictRecord, resolution models.ConflictResolution) error {
	msg := Message{
		Type:       TypeConflictResolved,
		RecordKind: record.Kind,
		RecordID:   record.Internal.ID,
		Conflict:   &resolution,
	}
	return n.publish(ctx, record.Internal.ID, msg)
}

func (n *KafkaNotifier) publish(ctx context.Context, key string, msg Message) error {
	msg.Timestamp = n.now()

	if err := n.publisher.Publish(ctx, key, msg.Type, msg); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(msg.Type, "error").Inc()
		n.logger.WithContext(ctx).WithError(err).WithField("event_type", msg.Type).Warn("Failed to publish event")
		return err
	}

	metrics.EventsPublishedTotal.WithLabelValues(msg.Type, "ok").Inc()
	return nil
}
