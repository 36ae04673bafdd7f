package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/flagquiz/flag-arena/internal/game"
)

// StartConfig describes a match to create. Tournament starts arrive with the
// tournament's fixed configuration; casual starts leave the overrides zero.
type StartConfig struct {
	OwnerID         int64
	OwnerName       string
	Type            string
	NumQuestions    int
	Category        string
	GameMode        string
	Tags            []string
	QuestionSeconds int     // 0 means the configured casual default
	Multiplier      float64 // 0 means derive from game mode and tags
	TournamentID    *int64
	ParticipantID   *int64
}

// QuestionView is the client-facing projection of a question. It never
// carries the correct answer.
type QuestionView struct {
	Index   int      `json:"index"`
	FlagID  int64    `json:"flag_id"`
	Image   string   `json:"image"`
	Options []string `json:"options"`
	Mode    string   `json:"mode"`
}

// StartResult is returned from match creation.
type StartResult struct {
	MatchID      uuid.UUID    `json:"match_id"`
	NumQuestions int          `json:"num_questions"`
	Question     QuestionView `json:"current_question"`
}

// PollResult reports the (possibly advanced) current question, or the
// terminal state if the lazy timer check just completed the match.
type PollResult struct {
	MatchID  uuid.UUID     `json:"match_id"`
	Finished bool          `json:"finished"`
	Question *QuestionView `json:"current_question,omitempty"`
	Score    int           `json:"score"`
}

// SubmitResult is returned from an answer submission.
type SubmitResult struct {
	Correct       bool          `json:"correct"`
	CorrectAnswer string        `json:"correct_answer"`
	Finished      bool          `json:"finished"`
	Next          *QuestionView `json:"current_question,omitempty"`
	Score         int           `json:"score"`
}

// AnswerView enriches a stored answer record for the summary.
type AnswerView struct {
	QuestionIdx   int       `json:"question_idx"`
	FlagID        int64     `json:"flag_id"`
	Image         string    `json:"image"`
	Submitted     string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	IsCorrect     bool      `json:"is_correct"`
	Points        int       `json:"points"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// SummaryResult is the full post-match report.
type SummaryResult struct {
	MatchID         uuid.UUID    `json:"match_id"`
	NumQuestions    int          `json:"num_questions"`
	BaseScore       int          `json:"base_score"`
	Multiplier      float64      `json:"multiplier"`
	Score           int          `json:"score"`
	ReturnedAttempt bool         `json:"returned_attempt"`
	CompletedAt     time.Time    `json:"completed_at"`
	Answers         []AnswerView `json:"answers"`
}

func pollView(m *game.Match, finished bool) *PollResult {
	return &PollResult{
		MatchID:  m.ID,
		Finished: finished,
		Question: questionView(m),
		Score:    m.Score,
	}
}

func questionView(m *game.Match) *QuestionView {
	q := m.CurrentQuestion()
	if q == nil {
		return nil
	}
	return &QuestionView{
		Index:   m.CurrentIdx,
		FlagID:  q.FlagID,
		Image:   q.Image,
		Options: q.Options,
		Mode:    q.Mode,
	}
}
