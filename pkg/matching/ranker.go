package matching

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

const rationaleSize = 3

// Ranker scores document candidates against an event and picks a winner.
// It has no side effects; every call returns a fresh result.
type Ranker struct {
	cfg Config
}

// NewRanker creates a ranker for the given configuration
func NewRanker(cfg Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Config returns the ranker's configuration
func (r *Ranker) Config() Config {
	return r.cfg
}

// Rank selects the candidate that belongs to event, if any. current is the
// existing decision for the event and may be nil.
func (r *Ranker) Rank(event models.Event, candidates []models.DocumentCandidate, current *models.CurrentDecision) models.MatchResult {
	if current != nil && current.ManualOverride {
		return models.MatchResult{
			Status: models.MatchStatusNoChange,
			Score:  current.Score,
			Reason: "current decision is a manual override",
		}
	}

	if len(candidates) == 0 {
		return models.MatchResult{
			Status: models.MatchStatusNoMatch,
			Reason: "no candidates",
		}
	}

	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if !r.eligible(event.End, candidate.CreatedAt) {
			continue
		}
		scored = append(scored, r.Score(event, candidate))
	}

	if len(scored) == 0 {
		return models.MatchResult{
			Status: models.MatchStatusNoMatch,
			Reason: "no candidates within time window",
		}
	}

	sortScored(scored)
	return r.decide(scored, current)
}

// Score computes every sub-score of one candidate
func (r *Ranker) Score(event models.Event, candidate models.DocumentCandidate) models.ScoredCandidate {
	temporal := TemporalScore(candidate.CreatedAt, event.End, r.cfg.TimeWindowHours)
	name := NameSimilarity(event.Title, candidate.Name)
	bonus := ParticipantBonus(event.Title, candidate.Name, event.Participants, r.cfg.ParticipantsBonus)

	return models.ScoredCandidate{
		Candidate:        candidate,
		TemporalScore:    temporal,
		NameScore:        name,
		ParticipantBonus: bonus,
		FinalScore:       math.Min(r.cfg.TimeWeight*temporal+r.cfg.NameWeight*name+bonus, 1),
		MinutesFromEnd:   math.Abs(candidate.CreatedAt.Sub(event.End).Minutes()),
		SameDay:          SameCalendarDay(candidate.CreatedAt, event.End),
	}
}

// eligible admits candidates on the event's calendar day even outside the window
func (r *Ranker) eligible(eventEnd, createdAt time.Time) bool {
	if SameCalendarDay(createdAt, eventEnd) {
		return true
	}
	return hoursBetween(createdAt, eventEnd) <= r.cfg.TimeWindowHours
}

// decide classifies the best of an already sorted, non-empty candidate list
func (r *Ranker) decide(scored []models.ScoredCandidate, current *models.CurrentDecision) models.MatchResult {
	best := scored[0]
	result := models.MatchResult{
		Score:      best.FinalScore,
		Considered: len(scored),
		Rationale:  slices.Clone(scored[:min(rationaleSize, len(scored))]),
	}

	result.Status, result.Reason = r.classify(best)

	if len(scored) > 1 {
		second := scored[1]
		if withinMargin(best.FinalScore, second.FinalScore, AmbiguityMargin) {
			result.Status = models.MatchStatusPending
			result.Reason = fmt.Sprintf("ambiguous: %q (%.3f) and %q (%.3f) are within %.2f",
				best.Candidate.Name, best.FinalScore, second.Candidate.Name, second.FinalScore, AmbiguityMargin)
		}
	}

	if current != nil && result.Status != models.MatchStatusNoMatch && best.FinalScore <= current.Score+RegressionMargin {
		result.Status = models.MatchStatusNoMatch
		result.Reason = fmt.Sprintf("best score %.3f does not improve on current decision %.3f by more than %.2f",
			best.FinalScore, current.Score, RegressionMargin)
	}

	if result.Status.IsMatch() {
		candidate := best.Candidate
		result.Candidate = &candidate
	}

	return result
}

func (r *Ranker) classify(best models.ScoredCandidate) (models.MatchStatus, string) {
	switch {
	case best.FinalScore < r.cfg.MinFinalScore:
		return models.MatchStatusNoMatch, fmt.Sprintf("best score %.3f is below minimum %.2f", best.FinalScore, r.cfg.MinFinalScore)
	case best.TemporalScore > strongTemporalScore && best.NameScore >= r.cfg.NameSimilarityThreshold:
		return models.MatchStatusTimeMatch, fmt.Sprintf("temporal %.3f and name %.3f above thresholds", best.TemporalScore, best.NameScore)
	case best.NameScore >= sameDayNameScore && best.SameDay:
		return models.MatchStatusNameMatch, fmt.Sprintf("name %.3f on the event's calendar day", best.NameScore)
	case best.TemporalScore > weakTemporalScore:
		return models.MatchStatusTimeMatchLowName, fmt.Sprintf("temporal %.3f with low name score %.3f", best.TemporalScore, best.NameScore)
	default:
		return models.MatchStatusNoMatch, fmt.Sprintf("temporal %.3f and name %.3f below acceptance thresholds", best.TemporalScore, best.NameScore)
	}
}

// withinMargin reports whether two scores are strictly closer than margin
func withinMargin(a, b, margin float64) bool {
	return math.Abs(a-b) < margin
}

// sortScored orders by final score descending. Scores closer than TieBreakMargin
// are ordered by distance from the event end.
func sortScored(scored []models.ScoredCandidate) {
	slices.SortStableFunc(scored, func(a, b models.ScoredCandidate) int {
		if withinMargin(a.FinalScore, b.FinalScore, TieBreakMargin) {
			switch {
			case a.MinutesFromEnd < b.MinutesFromEnd:
				return -1
			case a.MinutesFromEnd > b.MinutesFromEnd:
				return 1
			}
		}
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		}
		return 0
	})
}
