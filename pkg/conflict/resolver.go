// Package conflict reconciles records edited independently on the internal
// store and an external tool.
package conflict

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// TieBreak decides newer_wins when both sides carry the same modification time
type TieBreak string

const (
	TieBreakManual   TieBreak = "manual"
	TieBreakInternal TieBreak = "internal"
	TieBreakExternal TieBreak = "external"
)

// Config configures the resolver and the detector
type Config struct {
	DefaultStrategy models.ConflictStrategy `toml:"default_strategy" validate:"oneof=source_wins internal_wins newer_wins merge manual"`
	TieBreak        TieBreak                `toml:"tie_break" validate:"oneof=manual internal external"`
	// Tolerance bounds the modification time gap treated as a concurrent edit (exclusive)
	Tolerance time.Duration `toml:"-" validate:"gt=0"`
}

// DefaultConfig returns newer_wins with manual escalation on ties and a one second tolerance
func DefaultConfig() Config {
	return Config{
		DefaultStrategy: models.ConflictStrategyNewerWins,
		TieBreak:        TieBreakManual,
		Tolerance:       time.Second,
	}
}

var configValidator = validator.New()

// Validate checks the strategy and tie-break names
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid conflict config: %w", err)
	}
	return nil
}

var statusRank = map[models.TaskStatus]int{
	models.TaskStatusCancelled:  0,
	models.TaskStatusPending:    1,
	models.TaskStatusInProgress: 2,
	models.TaskStatusCompleted:  3,
}

// Resolver applies a resolution strategy to a conflict record
type Resolver struct {
	cfg      Config
	notifier events.Notifier
	logger   ectologger.Logger
}

// NewResolver creates a resolver. notifier may be nil.
func NewResolver(cfg Config, notifier events.Notifier, logger ectologger.Logger) *Resolver {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	return &Resolver{cfg: cfg, notifier: notifier, logger: logger}
}

// Resolve applies strategy, or the configured default when strategy is empty,
// and publishes the outcome. Manual and unsupported cases come back with
// Resolved false and are not errors.
func (r *Resolver) Resolve(ctx context.Context, record models.ConflictRecord, strategy models.ConflictStrategy) models.ConflictResolution {
	ctx, span := tracing.StartSpan(ctx, "conflict.Resolver.Resolve")
	defer span.End()

	if strategy == "" {
		strategy = r.cfg.DefaultStrategy
	}

	resolution := Resolve(record, strategy, r.cfg.TieBreak)
	metrics.ConflictsTotal.WithLabelValues(string(resolution.Strategy), string(resolution.Winner)).Inc()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id": record.Internal.ID,
		"kind":      record.Kind,
		"strategy":  resolution.Strategy,
		"winner":    resolution.Winner,
		"resolved":  resolution.Resolved,
	}).Info(resolution.Reason)

	if err := r.notifier.ConflictResolved(ctx, record, resolution); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("record_id", record.Internal.ID).Warn("Failed to notify conflict resolution")
	}

	return resolution
}

// Detect reports whether the two versions conflict under the configured tolerance
func (r *Resolver) Detect(internal, external models.RecordVersion) models.ConflictDetection {
	return Detect(internal, external, r.cfg.Tolerance)
}

// Resolve is the pure strategy evaluation behind Resolver.Resolve
func Resolve(record models.ConflictRecord, strategy models.ConflictStrategy, tieBreak TieBreak) models.ConflictResolution {
	switch strategy {
	case models.ConflictStrategySourceWins:
		return pick(strategy, models.ConflictWinnerExternal, record.External, "external version wins by policy")
	case models.ConflictStrategyInternalWins:
		return pick(strategy, models.ConflictWinnerInternal, record.Internal, "internal version wins by policy")
	case models.ConflictStrategyNewerWins:
		return newerWins(record, tieBreak)
	case models.ConflictStrategyMerge:
		return merge(record)
	case models.ConflictStrategyManual:
		return unresolved(strategy, "manual resolution required")
	}
	return unresolved(strategy, fmt.Sprintf("unknown conflict strategy %q", strategy))
}

func newerWins(record models.ConflictRecord, tieBreak TieBreak) models.ConflictResolution {
	strategy := models.ConflictStrategyNewerWins
	internal, external := record.Internal.ModifiedAt, record.External.ModifiedAt

	switch {
	case external.After(internal):
		return pick(strategy, models.ConflictWinnerExternal, record.External,
			fmt.Sprintf("external version is newer by %s", external.Sub(internal)))
	case internal.After(external):
		return pick(strategy, models.ConflictWinnerInternal, record.Internal,
			fmt.Sprintf("internal version is newer by %s", internal.Sub(external)))
	}

	switch tieBreak {
	case TieBreakInternal:
		return pick(strategy, models.ConflictWinnerInternal, record.Internal, "equal modification times, internal version wins the tie")
	case TieBreakExternal:
		return pick(strategy, models.ConflictWinnerExternal, record.External, "equal modification times, external version wins the tie")
	}
	return unresolved(strategy, "equal modification times, manual resolution required")
}

func merge(record models.ConflictRecord) models.ConflictResolution {
	strategy := models.ConflictStrategyMerge
	if record.Kind != models.RecordKindTask || record.Internal.Task == nil || record.External.Task == nil {
		return unresolved(strategy, fmt.Sprintf("merge is not supported for %q records", record.Kind))
	}

	in, ex := record.Internal, record.External
	newer := in
	if ex.ModifiedAt.After(in.ModifiedAt) {
		newer = ex
	}

	task := &models.TaskFields{
		Name:        longer(in.Task.Name, ex.Task.Name, newer.Task.Name),
		Description: longer(in.Task.Description, ex.Task.Description, newer.Task.Description),
		DueDate:     mergeDueDate(in.Task.DueDate, ex.Task.DueDate, newer.Task.DueDate),
		Status:      advancedStatus(in.Task.Status, ex.Task.Status),
		Tags:        unionTags(in.Task.Tags, ex.Task.Tags),
	}

	merged := models.RecordVersion{
		ID:         in.ID,
		Name:       longer(in.Name, ex.Name, newer.Name),
		ModifiedAt: newer.ModifiedAt,
		Task:       task,
	}

	return models.ConflictResolution{
		Resolved: true,
		Winner:   models.ConflictWinnerMerged,
		Strategy: strategy,
		Result:   &merged,
		Reason:   "merged task fields from both versions",
	}
}

// longer returns the longer non-empty value; equal lengths take the newer side
func longer(a, b, newer string) string {
	la, lb := utf8.RuneCountInString(strings.TrimSpace(a)), utf8.RuneCountInString(strings.TrimSpace(b))
	switch {
	case la > lb:
		return a
	case lb > la:
		return b
	}
	return newer
}

func mergeDueDate(a, b, newer *time.Time) *time.Time {
	switch {
	case a != nil && b != nil:
		return newer
	case a != nil:
		return a
	}
	return b
}

func advancedStatus(a, b models.TaskStatus) models.TaskStatus {
	ra, oka := statusRank[a]
	rb, okb := statusRank[b]
	switch {
	case !oka:
		return b
	case !okb:
		return a
	case rb > ra:
		return b
	}
	return a
}

func unionTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var tags []string
	for _, tag := range append(append([]string{}, a...), b...) {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func pick(strategy models.ConflictStrategy, winner models.ConflictWinner, version models.RecordVersion, reason string) models.ConflictResolution {
	v := version
	return models.ConflictResolution{
		Resolved: true,
		Winner:   winner,
		Strategy: strategy,
		Result:   &v,
		Reason:   reason,
	}
}

func unresolved(strategy models.ConflictStrategy, reason string) models.ConflictResolution {
	return models.ConflictResolution{
		Resolved: false,
		Winner:   models.ConflictWinnerNone,
		Strategy: strategy,
		Reason:   reason,
	}
}
