package models

// ResolutionStatus is the outcome of resolving a document for an event
type ResolutionStatus string

const (
	ResolutionStatusResolved   ResolutionStatus = "resolved"
	ResolutionStatusNoDocument ResolutionStatus = "no_document"
)

// ResolutionTier names the waterfall step that produced a resolution
type ResolutionTier string

const (
	ResolutionTierStoredDecision  ResolutionTier = "stored_decision"
	ResolutionTierDirectReference ResolutionTier = "direct_reference"
	ResolutionTierFuzzySearch     ResolutionTier = "fuzzy_search"
	ResolutionTierNone            ResolutionTier = "none"
)

// Resolution is the document resolved for an event, or an explicit no_document outcome
type Resolution struct {
	EventID        string              `json:"event_id"`
	Status         ResolutionStatus    `json:"status"`
	Tier           ResolutionTier      `json:"tier"`
	DocumentID     string              `json:"document_id,omitempty"`
	URL            string              `json:"url,omitempty"`
	Text           string              `json:"text,omitempty"`
	Method         MatchMethod         `json:"method,omitempty"`
	Score          float64             `json:"score"`
	DecisionID     string              `json:"decision_id,omitempty"`
	DecisionStatus MatchDecisionStatus `json:"decision_status,omitempty"`
	Reason         string              `json:"reason"`
	Match          *MatchResult        `json:"match,omitempty"`
}

// Resolved reports whether a document was found
func (r *Resolution) Resolved() bool {
	return r != nil && r.Status == ResolutionStatusResolved
}

// BatchItemResult is the outcome of one event in a batch resolution
type BatchItemResult struct {
	EventID    string      `json:"event_id"`
	Resolution *Resolution `json:"resolution,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// BatchResult summarizes a batch resolution
type BatchResult struct {
	Items      []BatchItemResult `json:"items"`
	Resolved   int               `json:"resolved"`
	NoDocument int               `json:"no_document"`
	Failed     int               `json:"failed"`
	Aborted    bool              `json:"aborted"`
}

// ResolveBatchRequest is the body of the batch resolve endpoint
type ResolveBatchRequest struct {
	Events      []Event `json:"events" validate:"required,min=1,max=500,dive"`
	StopOnError bool    `json:"stop_on_error"`
}
