package models

// MatchStatus is the ranker's classification of the best candidate
type MatchStatus string

const (
	MatchStatusTimeMatch        MatchStatus = "time_match"          // Close in time with an acceptable name score
	MatchStatusNameMatch        MatchStatus = "name_match"          // Strong name score on the same calendar day
	MatchStatusTimeMatchLowName MatchStatus = "time_match_low_name" // Close in time, weak name score
	MatchStatusPending          MatchStatus = "pending"             // Ambiguous, needs a human
	MatchStatusNoMatch          MatchStatus = "no_match"
	MatchStatusNoChange         MatchStatus = "no_change" // Current decision is a manual override
)

// IsMatch reports whether the status accepts a candidate
func (s MatchStatus) IsMatch() bool {
	switch s {
	case MatchStatusTimeMatch, MatchStatusNameMatch, MatchStatusTimeMatchLowName:
		return true
	}
	return false
}

// CurrentDecision is the existing decision an automatic re-rank must not regress
type CurrentDecision struct {
	DocumentID     string  `json:"document_id,omitempty"`
	Score          float64 `json:"score"`
	ManualOverride bool    `json:"manual_override"`
}

// ScoredCandidate is a candidate with its sub-scores. It only lives inside one ranking call
// and in the rationale of its result.
type ScoredCandidate struct {
	Candidate        DocumentCandidate `json:"candidate"`
	TemporalScore    float64           `json:"temporal_score"`
	NameScore        float64           `json:"name_score"`
	ParticipantBonus float64           `json:"participant_bonus"`
	FinalScore       float64           `json:"final_score"`
	MinutesFromEnd   float64           `json:"minutes_from_end"`
	SameDay          bool              `json:"same_day"`
}

// MatchResult is the immutable outcome of ranking candidates for one event
type MatchResult struct {
	Status     MatchStatus        `json:"status"`
	Candidate  *DocumentCandidate `json:"candidate,omitempty"`
	Score      float64            `json:"score"`
	Reason     string             `json:"reason"`
	Considered int                `json:"considered"`
	Rationale  []ScoredCandidate  `json:"rationale,omitempty"`
}

// RankRequest is the body of the rank endpoint
type RankRequest struct {
	Event      Event               `json:"event" validate:"required"`
	Candidates []DocumentCandidate `json:"candidates"`
	Current    *CurrentDecision    `json:"current,omitempty"`
}
