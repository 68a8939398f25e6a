package models

import "time"

// MatchMethod records how a document was linked to an event
type MatchMethod string

const (
	MatchMethodDirectMetadata MatchMethod = "direct-metadata" // Explicit link in event metadata or description
	MatchMethodFuzzySearch    MatchMethod = "fuzzy-search"    // Inferred by the candidate ranker
	MatchMethodManual         MatchMethod = "manual"          // Chosen by a human reviewer
)

// MatchDecisionStatus is the lifecycle state of a match decision
type MatchDecisionStatus string

const (
	MatchDecisionStatusPending   MatchDecisionStatus = "pending"
	MatchDecisionStatusConfirmed MatchDecisionStatus = "confirmed"
	MatchDecisionStatusRejected  MatchDecisionStatus = "rejected"
)

// IsTerminal reports whether automation may no longer change the status
func (s MatchDecisionStatus) IsTerminal() bool {
	return s == MatchDecisionStatusConfirmed || s == MatchDecisionStatusRejected
}

// MatchDecision links one event to one document. The pair (event_id, document_id)
// is the natural key; rows are never deleted, only status-transitioned.
type MatchDecision struct {
	ID          string              `json:"id" db:"id"`
	EventID     string              `json:"event_id" db:"event_id"`
	DocumentID  string              `json:"document_id" db:"document_id"`
	URL         *string             `json:"url,omitempty" db:"url"`
	Score       float64             `json:"score" db:"score"`
	Method      MatchMethod         `json:"method" db:"method"`
	Status      MatchDecisionStatus `json:"status" db:"status"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	ConfirmedAt *time.Time          `json:"confirmed_at,omitempty" db:"confirmed_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// IsManualOverride reports whether a human has pinned this decision
func (d *MatchDecision) IsManualOverride() bool {
	return d.Method == MatchMethodManual && d.Status == MatchDecisionStatusConfirmed
}

// ToCurrent converts the stored decision into the ranker's regression input
func (d *MatchDecision) ToCurrent() *CurrentDecision {
	return &CurrentDecision{
		DocumentID:     d.DocumentID,
		Score:          d.Score,
		ManualOverride: d.IsManualOverride(),
	}
}

// ReviewDecisionRequest is the body accepted by the confirm/reject endpoints
type ReviewDecisionRequest struct {
	Reviewer string `json:"reviewer,omitempty"`
	Note     string `json:"note,omitempty"`
}
