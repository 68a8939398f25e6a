package models

import "time"

// Event is a calendar event that may have a transcript document attached.
// Events are produced by the calendar sync and are never modified here.
type Event struct {
	ID           string         `json:"id" validate:"required"`
	Title        string         `json:"title"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end" validate:"required"`
	Participants []string       `json:"participants,omitempty"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// DocumentCandidate is a transcript-like document that may belong to an event
type DocumentCandidate struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
	URL       string    `json:"url,omitempty"`
}

// TimeRange bounds a candidate listing
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range (inclusive)
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
