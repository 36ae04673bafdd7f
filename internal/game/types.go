package game

import (
	"time"

	"github.com/google/uuid"
)

// Game modes. Choose shows the option grid, Enter expects typed input.
const (
	ModeChoose = "choose"
	ModeEnter  = "enter"
)

// Match types.
const (
	TypeCasual     = "casual"
	TypeTournament = "tournament"
)

// Tag filters with scoring significance.
const (
	TagAll  = "ALL"
	TagUN   = "UN"
	TagRare = "RARE"
)

// CategoryFrenzy disables category filtering (every flag is eligible).
const CategoryFrenzy = "frenzy"

// ExpirySignal is the literal a client submits to report a timed-out question.
const ExpirySignal = "time expired"

// FlagItem is one guessable flag. Identity fields are immutable; the
// statistics move with every answered question. Difficulty is always derived
// as 1 - TimesCorrect/TimesShown (0 while unshown), never set directly.
type FlagItem struct {
	ID           int64
	Name         string
	Image        string
	Category     string
	Tags         []string
	TimesShown   int
	TimesCorrect int
	Difficulty   float64
}

// Question is fixed at match creation. Options always hold exactly
// OptionsPerQuestion entries (one of them the canonical answer); replaying a
// match reproduces the same set and order.
type Question struct {
	FlagID     int64    `json:"flag_id"`
	Image      string   `json:"image"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Mode       string   `json:"mode"`
	Difficulty float64  `json:"difficulty"`
}

// OptionsPerQuestion is 1 correct + 6 distinct incorrect names.
const OptionsPerQuestion = 7

// Match is one playthrough of a fixed question sequence by one owner.
// CompletedAt is set exactly once; questions are never mutated after creation.
type Match struct {
	ID                uuid.UUID
	OwnerID           int64
	Type              string
	NumQuestions      int
	Questions         []Question
	CurrentIdx        int
	CurrentStartedAt  *time.Time
	QuestionSeconds   int
	BaseScore         int
	Multiplier        float64
	Score             int
	GameMode          string
	Category          string
	Tags              []string
	CreatedAt         time.Time
	CompletedAt       *time.Time
	TournamentID      *int64
	ParticipantID     *int64
}

// Completed reports whether the match reached its terminal state.
func (m *Match) Completed() bool {
	return m.CompletedAt != nil
}

// CurrentQuestion returns the pending question, or nil past the end.
func (m *Match) CurrentQuestion() *Question {
	if m.CurrentIdx < 0 || m.CurrentIdx >= len(m.Questions) {
		return nil
	}
	return &m.Questions[m.CurrentIdx]
}

// AnswerRecord is append-only: one per question index per match. A timeout
// produces a synthetic record with Submitted = ExpirySignal text.
type AnswerRecord struct {
	MatchID     uuid.UUID
	QuestionIdx int
	FlagID      int64
	Submitted   string
	IsCorrect   bool
	Points      int
	AnsweredAt  time.Time
}

// Player is a match owner: daily tries plus casual aggregates.
type Player struct {
	ID                int64
	Name              string
	TriesLeft         int
	CasualScore       int
	TodayCasualScore  int
	CasualGamesPlayed int
	CreatedAt         time.Time
}

// Tournament carries the per-match configuration its participants play with.
// FinishedAt transitions exactly once; afterwards participant places and
// prizes are immutable.
type Tournament struct {
	ID                int64
	Name              string
	CreatedAt         time.Time
	StartedAt         *time.Time
	WillFinishAt      time.Time
	FinishedAt        *time.Time
	ParticipationCost int
	MinParticipants   int
	NumQuestions      int
	GameMode          string
	Category          string
	Tags              []string
	Multiplier        float64
	QuestionSeconds   int
	Tries             int
	PrizeSlots        []PrizeSlot
}

// Active reports whether matches may still be started in the tournament.
func (t *Tournament) Active(now time.Time) bool {
	return t.FinishedAt == nil && now.Before(t.WillFinishAt)
}

// PrizeSlot is a prize keyed by final place.
type PrizeSlot struct {
	Place int    `json:"place"`
	Title string `json:"title"`
}

// Participant scopes one player's score and remaining attempts to a
// tournament. Place and Prize stay nil until finalization.
type Participant struct {
	ID           int64
	TournamentID int64
	UserID       int64
	Score        int
	TriesLeft    int
	Place        *int
	Prize        *string
	JoinedAt     time.Time
}
