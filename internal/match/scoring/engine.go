package scoring

import (
	"math"

	"github.com/flagquiz/flag-arena/internal/game"
)

// Config holds configurable scoring constants (defaults match requirements).
type Config struct {
	PointsPerDifficulty float64 // default: 3 (points = ceil(difficulty * 3), floor 1)
	ChooseMultiplier    float64 // default: 0.7
	EnterMultiplier     float64 // default: 1.2
	UNOnlyMultiplier    float64 // default: 0.6 (recognized-state-only tag filter)
	RareMultiplier      float64 // default: 1.3
	MistakeBudget       map[int]int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PointsPerDifficulty: 3,
		ChooseMultiplier:    0.7,
		EnterMultiplier:     1.2,
		UNOnlyMultiplier:    0.6,
		RareMultiplier:      1.3,
		MistakeBudget:       map[int]int{10: 0, 15: 1, 20: 2},
	}
}

// Engine computes server-side scores with configurable constants.
type Engine struct {
	config Config
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config Config) *Engine {
	if config.PointsPerDifficulty == 0 {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// QuestionPoints returns the points one answer earns: harder flags are worth
// more, with a floor of one point. Incorrect and expired answers earn zero.
func (e *Engine) QuestionPoints(isCorrect bool, difficulty float64) int {
	if !isCorrect {
		return 0
	}
	points := int(math.Ceil(difficulty * e.config.PointsPerDifficulty))
	if points < 1 {
		points = 1
	}
	return points
}

// Multiplier derives the per-match scalar from game mode and tag filter,
// combined multiplicatively and rounded to two decimals. It is fixed at match
// creation and never recomputed.
func (e *Engine) Multiplier(gameMode string, tags []string) float64 {
	multiplier := 1.0

	switch gameMode {
	case game.ModeChoose:
		multiplier *= e.config.ChooseMultiplier
	case game.ModeEnter:
		multiplier *= e.config.EnterMultiplier
	}

	switch {
	case len(tags) == 0 || contains(tags, game.TagAll):
		// no tag adjustment
	case len(tags) == 1 && tags[0] == game.TagUN:
		multiplier *= e.config.UNOnlyMultiplier
	case contains(tags, game.TagRare):
		multiplier *= e.config.RareMultiplier
	}

	return math.Round(multiplier*100) / 100
}

// FinalScore applies the match multiplier to the accumulated base score.
func (e *Engine) FinalScore(baseScore int, multiplier float64) int {
	return int(math.Round(float64(baseScore) * multiplier))
}

// MaxMistakes is the wrong-answer budget that still returns the attempt.
func (e *Engine) MaxMistakes(numQuestions int) int {
	return e.config.MistakeBudget[numQuestions]
}

// AttemptReturned decides whether a finished casual match refunds the
// owner's daily try: the match must be fully answered and the wrong count
// must not exceed the budget for its length.
func (e *Engine) AttemptReturned(answered, wrong, numQuestions int) bool {
	return answered == numQuestions && wrong <= e.MaxMistakes(numQuestions)
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
