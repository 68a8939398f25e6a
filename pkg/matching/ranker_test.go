package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

var weeklySyncEnd = time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)

func weeklySync() models.Event {
	return models.Event{
		ID:    "evt-1",
		Title: "Weekly Sync",
		Start: weeklySyncEnd.Add(-time.Hour),
		End:   weeklySyncEnd,
	}
}

func candidate(id, name string, createdAt time.Time) models.DocumentCandidate {
	return models.DocumentCandidate{ID: id, Name: name, CreatedAt: createdAt}
}

func scoredCandidate(id string, temporal, name, final float64) models.ScoredCandidate {
	return models.ScoredCandidate{
		Candidate:     models.DocumentCandidate{ID: id, Name: id},
		TemporalScore: temporal,
		NameScore:     name,
		FinalScore:    final,
		SameDay:       true,
	}
}

func TestRanker_ScenarioA_TimeMatch(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	result := ranker.Rank(weeklySync(), []models.DocumentCandidate{
		candidate("doc-1", "Weekly Sync - Notes", weeklySyncEnd.Add(20*time.Minute)),
	}, nil)

	assert.Equal(t, models.MatchStatusTimeMatch, result.Status)
	require.NotNil(t, result.Candidate)
	assert.Equal(t, "doc-1", result.Candidate.ID)
	assert.GreaterOrEqual(t, result.Score, 0.3)
	require.Len(t, result.Rationale, 1)
	assert.InDelta(t, 0.993, result.Rationale[0].TemporalScore, 0.001)
	assert.Greater(t, result.Rationale[0].NameScore, 0.8)
	assert.InDelta(t, 20, result.Rationale[0].MinutesFromEnd, 0.001)
}

func TestRanker_ScenarioB_NoMatch(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	result := ranker.Rank(weeklySync(), []models.DocumentCandidate{
		candidate("doc-2", "Unrelated Doc", weeklySyncEnd.Add(40*time.Hour)),
	}, nil)

	assert.Equal(t, models.MatchStatusNoMatch, result.Status)
	assert.Nil(t, result.Candidate)
	assert.Less(t, result.Score, 0.3)
	assert.NotEmpty(t, result.Reason)
	require.Len(t, result.Rationale, 1)
	assert.InDelta(t, 1.0/6.0, result.Rationale[0].TemporalScore, 0.001)
}

func TestRanker_EmptyCandidates(t *testing.T) {
	result := NewRanker(DefaultConfig()).Rank(weeklySync(), nil, nil)
	assert.Equal(t, models.MatchStatusNoMatch, result.Status)
	assert.Nil(t, result.Candidate)
}

func TestRanker_NothingInWindow(t *testing.T) {
	result := NewRanker(DefaultConfig()).Rank(weeklySync(), []models.DocumentCandidate{
		candidate("old", "Weekly Sync", weeklySyncEnd.Add(-96*time.Hour)),
		candidate("late", "Weekly Sync", weeklySyncEnd.Add(72*time.Hour)),
	}, nil)

	assert.Equal(t, models.MatchStatusNoMatch, result.Status)
	assert.Equal(t, "no candidates within time window", result.Reason)
	assert.Empty(t, result.Rationale)
}

func TestRanker_SameDayOutsideWindowPassesFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeWindowHours = 1
	ranker := NewRanker(cfg)

	event := weeklySync()
	event.End = time.Date(2025, 11, 10, 20, 0, 0, 0, time.UTC)

	result := ranker.Rank(event, []models.DocumentCandidate{
		candidate("morning", "Weekly Sync", time.Date(2025, 11, 10, 8, 0, 0, 0, time.UTC)),
	}, nil)

	require.Len(t, result.Rationale, 1)
	assert.Equal(t, 0.0, result.Rationale[0].TemporalScore)
	assert.Equal(t, 1.0, result.Rationale[0].NameScore)
	// 0.3 from the name alone clears the minimum, and the name is strong on the same day
	assert.Equal(t, models.MatchStatusNameMatch, result.Status)
}

func TestRanker_ManualOverride(t *testing.T) {
	result := NewRanker(DefaultConfig()).Rank(weeklySync(), []models.DocumentCandidate{
		candidate("doc-1", "Weekly Sync - Notes", weeklySyncEnd.Add(20*time.Minute)),
	}, &models.CurrentDecision{DocumentID: "pinned", Score: 0.4, ManualOverride: true})

	assert.Equal(t, models.MatchStatusNoChange, result.Status)
	assert.Nil(t, result.Candidate)
}

func TestRanker_ParticipantBonusAppliedOnce(t *testing.T) {
	event := weeklySync()
	event.Participants = []string{"alice@example.com", "bob@example.com"}

	result := NewRanker(DefaultConfig()).Rank(event, []models.DocumentCandidate{
		candidate("doc-1", "alice bob notes", weeklySyncEnd.Add(30*time.Minute)),
	}, nil)

	require.Len(t, result.Rationale, 1)
	assert.Equal(t, 0.05, result.Rationale[0].ParticipantBonus)
}

func TestRanker_FinalScoreCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParticipantsBonus = 0.5
	event := weeklySync()
	event.Participants = []string{"weekly@example.com"}

	result := NewRanker(cfg).Rank(event, []models.DocumentCandidate{
		candidate("doc-1", "Weekly Sync", weeklySyncEnd),
	}, nil)

	assert.Equal(t, 1.0, result.Score)
}

func TestRanker_RationaleIsTopThree(t *testing.T) {
	candidates := []models.DocumentCandidate{
		candidate("a", "Weekly Sync", weeklySyncEnd.Add(10*time.Minute)),
		candidate("b", "Budget", weeklySyncEnd.Add(5*time.Hour)),
		candidate("c", "Hiring", weeklySyncEnd.Add(10*time.Hour)),
		candidate("d", "Retro", weeklySyncEnd.Add(20*time.Hour)),
	}

	result := NewRanker(DefaultConfig()).Rank(weeklySync(), candidates, nil)

	assert.Equal(t, 4, result.Considered)
	require.Len(t, result.Rationale, 3)
	assert.Equal(t, "a", result.Rationale[0].Candidate.ID)
	for i := 1; i < len(result.Rationale); i++ {
		assert.GreaterOrEqual(t, result.Rationale[i-1].FinalScore+TieBreakMargin, result.Rationale[i].FinalScore)
	}
}

func TestRanker_Deterministic(t *testing.T) {
	ranker := NewRanker(DefaultConfig())
	candidates := []models.DocumentCandidate{
		candidate("a", "Weekly Sync Notes", weeklySyncEnd.Add(10*time.Minute)),
		candidate("b", "Weekly Sync Transcript", weeklySyncEnd.Add(15*time.Minute)),
	}

	first := ranker.Rank(weeklySync(), candidates, nil)
	second := ranker.Rank(weeklySync(), candidates, nil)
	assert.Equal(t, first, second)
}

func TestRanker_Decide(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	t.Run("ambiguous top two are pending", func(t *testing.T) {
		result := ranker.decide([]models.ScoredCandidate{
			scoredCandidate("best", 0.9, 0.5, 0.71),
			scoredCandidate("second", 0.9, 0.5, 0.69),
		}, nil)

		assert.Equal(t, models.MatchStatusPending, result.Status)
		assert.Nil(t, result.Candidate)
		assert.Equal(t, 0.71, result.Score)
		assert.Contains(t, result.Reason, "ambiguous")
	})

	t.Run("clear winner is accepted", func(t *testing.T) {
		result := ranker.decide([]models.ScoredCandidate{
			scoredCandidate("best", 0.9, 0.5, 0.80),
			scoredCandidate("second", 0.5, 0.2, 0.60),
		}, nil)

		assert.Equal(t, models.MatchStatusTimeMatch, result.Status)
		require.NotNil(t, result.Candidate)
		assert.Equal(t, "best", result.Candidate.ID)
	})

	t.Run("regression guard rejects marginal improvement", func(t *testing.T) {
		result := ranker.decide([]models.ScoredCandidate{
			scoredCandidate("new", 0.95, 0.6, 0.82),
		}, &models.CurrentDecision{DocumentID: "old", Score: 0.80})

		assert.Equal(t, models.MatchStatusNoMatch, result.Status)
		assert.Nil(t, result.Candidate)
		assert.Contains(t, result.Reason, "current decision")
	})

	t.Run("regression guard accepts clear improvement", func(t *testing.T) {
		result := ranker.decide([]models.ScoredCandidate{
			scoredCandidate("new", 0.98, 0.8, 0.90),
		}, &models.CurrentDecision{DocumentID: "old", Score: 0.80})

		assert.Equal(t, models.MatchStatusTimeMatch, result.Status)
		require.NotNil(t, result.Candidate)
		assert.Equal(t, "new", result.Candidate.ID)
	})
}

func TestRanker_Classify(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	tests := []struct {
		name      string
		candidate models.ScoredCandidate
		expected  models.MatchStatus
	}{
		{
			name:      "below minimum",
			candidate: scoredCandidate("x", 0.9, 0.9, 0.25),
			expected:  models.MatchStatusNoMatch,
		},
		{
			name:      "time match",
			candidate: scoredCandidate("x", 0.5, 0.45, 0.49),
			expected:  models.MatchStatusTimeMatch,
		},
		{
			name:      "name match same day",
			candidate: scoredCandidate("x", 0.1, 0.7, 0.35),
			expected:  models.MatchStatusNameMatch,
		},
		{
			name: "strong name on another day",
			candidate: models.ScoredCandidate{
				TemporalScore: 0.1, NameScore: 0.9, FinalScore: 0.34, SameDay: false,
			},
			expected: models.MatchStatusNoMatch,
		},
		{
			name:      "time match with low name",
			candidate: scoredCandidate("x", 0.25, 0.4, 0.3),
			expected:  models.MatchStatusTimeMatchLowName,
		},
		{
			name:      "weak on both axes",
			candidate: scoredCandidate("x", 0.2, 0.5, 0.3),
			expected:  models.MatchStatusNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := ranker.classify(tt.candidate)
			assert.Equal(t, tt.expected, status)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestSortScored_TieBreakByTimeDistance(t *testing.T) {
	scored := []models.ScoredCandidate{
		{Candidate: models.DocumentCandidate{ID: "far"}, FinalScore: 0.80, MinutesFromEnd: 120},
		{Candidate: models.DocumentCandidate{ID: "near"}, FinalScore: 0.78, MinutesFromEnd: 5},
		{Candidate: models.DocumentCandidate{ID: "low"}, FinalScore: 0.40, MinutesFromEnd: 1},
	}

	sortScored(scored)

	assert.Equal(t, "near", scored[0].Candidate.ID)
	assert.Equal(t, "far", scored[1].Candidate.ID)
	assert.Equal(t, "low", scored[2].Candidate.ID)
}

func TestWithinMargin(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{name: "equal", a: 0.3, b: 0.3, want: true},
		{name: "inside", a: 0.049, b: 0, want: true},
		{name: "exactly at margin", a: 0.05, b: 0, want: false},
		{name: "order independent", a: 0, b: 0.05, want: false},
		{name: "outside", a: 0.9, b: 0.8, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withinMargin(tt.a, tt.b, AmbiguityMargin))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.TimeWindowHours = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.NameWeight = 1.5
	assert.Error(t, cfg.Validate())
}
