package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagquiz/flag-arena/internal/game"
)

func TestQuestionPoints(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// ceil(0.5 * 3) = 2
	assert.Equal(t, 2, e.QuestionPoints(true, 0.5))
	// ceil(0.9 * 3) = 3
	assert.Equal(t, 3, e.QuestionPoints(true, 0.9))
	// floor of one point even for trivially easy flags
	assert.Equal(t, 1, e.QuestionPoints(true, 0.0))
	assert.Equal(t, 1, e.QuestionPoints(true, 0.01))
	// incorrect answers earn nothing regardless of difficulty
	assert.Equal(t, 0, e.QuestionPoints(false, 1.0))
}

func TestMultiplier(t *testing.T) {
	e := NewEngine(DefaultConfig())

	assert.Equal(t, 0.7, e.Multiplier(game.ModeChoose, nil))
	assert.Equal(t, 1.2, e.Multiplier(game.ModeEnter, nil))
	assert.Equal(t, 0.7, e.Multiplier(game.ModeChoose, []string{game.TagAll}))

	// UN-only filter stacks with the mode multiplier
	assert.Equal(t, 0.42, e.Multiplier(game.ModeChoose, []string{game.TagUN}))
	assert.Equal(t, 0.72, e.Multiplier(game.ModeEnter, []string{game.TagUN}))

	// RARE anywhere in the tag set applies the rare bonus
	assert.Equal(t, 0.91, e.Multiplier(game.ModeChoose, []string{game.TagRare}))
	assert.Equal(t, 1.56, e.Multiplier(game.ModeEnter, []string{game.TagRare}))
	assert.Equal(t, 1.56, e.Multiplier(game.ModeEnter, []string{game.TagUN, game.TagRare}))
}

func TestFinalScore(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// base 2 at enter multiplier: round(2 * 1.2) = 2
	assert.Equal(t, 2, e.FinalScore(2, 1.2))
	// base 9 at choose multiplier: round(9 * 0.7) = 6
	assert.Equal(t, 6, e.FinalScore(9, 0.7))
	assert.Equal(t, 0, e.FinalScore(0, 1.3))
}

func TestMaxMistakes(t *testing.T) {
	e := NewEngine(DefaultConfig())

	assert.Equal(t, 0, e.MaxMistakes(10))
	assert.Equal(t, 1, e.MaxMistakes(15))
	assert.Equal(t, 2, e.MaxMistakes(20))
	// unknown lengths get no budget
	assert.Equal(t, 0, e.MaxMistakes(7))
}

func TestAttemptReturned(t *testing.T) {
	e := NewEngine(DefaultConfig())

	assert.True(t, e.AttemptReturned(10, 0, 10))
	assert.False(t, e.AttemptReturned(10, 1, 10))
	assert.True(t, e.AttemptReturned(15, 1, 15))
	assert.False(t, e.AttemptReturned(15, 2, 15))
	assert.True(t, e.AttemptReturned(20, 2, 20))

	// early submission never returns the attempt
	assert.False(t, e.AttemptReturned(9, 0, 10))
	assert.False(t, e.AttemptReturned(0, 0, 10))
}

func TestNewEngineZeroConfigUsesDefaults(t *testing.T) {
	e := NewEngine(Config{})

	assert.Equal(t, 0.7, e.Multiplier(game.ModeChoose, nil))
	assert.Equal(t, 1, e.MaxMistakes(15))
}
