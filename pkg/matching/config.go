package matching

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Thresholds that are part of the ranking policy rather than per-deployment tuning
const (
	// AmbiguityMargin is the score gap under which the top two candidates are considered tied
	AmbiguityMargin = 0.05
	// RegressionMargin is the improvement a new candidate needs over the current decision
	RegressionMargin = 0.05
	// TieBreakMargin is the score gap under which candidates are ordered by time distance
	TieBreakMargin = 0.05

	strongTemporalScore = 0.3
	weakTemporalScore   = 0.2
	sameDayNameScore    = 0.6
)

// Config holds the weighted scoring configuration
type Config struct {
	TimeWindowHours         float64 `json:"time_window_hours" toml:"time_window_hours" validate:"gt=0"`
	NameSimilarityThreshold float64 `json:"name_similarity_threshold" toml:"name_similarity_threshold" validate:"gte=0,lte=1"`
	TimeWeight              float64 `json:"time_weight" toml:"time_weight" validate:"gte=0,lte=1"`
	NameWeight              float64 `json:"name_weight" toml:"name_weight" validate:"gte=0,lte=1"`
	ParticipantsBonus       float64 `json:"participants_bonus" toml:"participants_bonus" validate:"gte=0,lte=1"`
	MinFinalScore           float64 `json:"min_final_score" toml:"min_final_score" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the default matching configuration
func DefaultConfig() Config {
	return Config{
		TimeWindowHours:         48,
		NameSimilarityThreshold: 0.45,
		TimeWeight:              0.7,
		NameWeight:              0.3,
		ParticipantsBonus:       0.05,
		MinFinalScore:           0.3,
	}
}

var configValidator = validator.New()

// Validate checks that every value is in range
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}
	return nil
}
