package models

import (
	"encoding/json"
	"time"
)

// RecordKind tags the shape of a synchronized record
type RecordKind string

const (
	RecordKindTask    RecordKind = "task"
	RecordKindGeneric RecordKind = "generic"
)

// TaskStatus is the normalized status of a task record
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskFields are the typed fields of a task record. Tool-specific mappers
// translate their schema into this shape before a conflict is resolved.
type TaskFields struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// RecordVersion is one side's copy of a logical record
type RecordVersion struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ModifiedAt time.Time       `json:"modified_at"`
	Task       *TaskFields     `json:"task,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Description returns the user-visible description, if the version carries one
func (v RecordVersion) Description() string {
	if v.Task == nil {
		return ""
	}
	return v.Task.Description
}

// ConflictRecord pairs the internal and external versions of the same record
type ConflictRecord struct {
	Kind     RecordKind    `json:"kind" validate:"required"`
	Internal RecordVersion `json:"internal"`
	External RecordVersion `json:"external"`
}

// ConflictStrategy selects how a conflict is resolved
type ConflictStrategy string

const (
	ConflictStrategySourceWins   ConflictStrategy = "source_wins"   // External side wins
	ConflictStrategyInternalWins ConflictStrategy = "internal_wins" // Internal side wins
	ConflictStrategyNewerWins    ConflictStrategy = "newer_wins"    // Most recently modified side wins
	ConflictStrategyMerge        ConflictStrategy = "merge"         // Field-level merge, tasks only
	ConflictStrategyManual       ConflictStrategy = "manual"        // Defer to a human
)

// ConflictWinner names which side a resolution took
type ConflictWinner string

const (
	ConflictWinnerInternal ConflictWinner = "internal"
	ConflictWinnerExternal ConflictWinner = "external"
	ConflictWinnerMerged   ConflictWinner = "merged"
	ConflictWinnerNone     ConflictWinner = "none"
)

// ConflictResolution is the verdict for one conflict
type ConflictResolution struct {
	Resolved bool             `json:"resolved"`
	Winner   ConflictWinner   `json:"winner"`
	Strategy ConflictStrategy `json:"strategy"`
	Result   *RecordVersion   `json:"result,omitempty"`
	Reason   string           `json:"reason"`
}

// ConflictDetection reports whether two versions are in conflict
type ConflictDetection struct {
	Conflict      bool     `json:"conflict"`
	DiffFields    []string `json:"diff_fields,omitempty"`
	TimestampDiff string   `json:"timestamp_diff"`
	Reason        string   `json:"reason"`
}

// ResolveConflictRequest is the body of the conflict resolve endpoint
type ResolveConflictRequest struct {
	Record   ConflictRecord   `json:"record" validate:"required"`
	Strategy ConflictStrategy `json:"strategy,omitempty" validate:"omitempty,oneof=source_wins internal_wins newer_wins merge manual"`
}

// DetectConflictRequest is the body of the conflict detect endpoint
type DetectConflictRequest struct {
	Internal RecordVersion `json:"internal"`
	External RecordVersion `json:"external"`
}
