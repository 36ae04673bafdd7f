package tournament

import (
	"time"

	"github.com/flagquiz/flag-arena/internal/game"
)

// TournamentView is the public shape of a tournament.
type TournamentView struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	WillFinishAt    time.Time        `json:"will_finish_at"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
	MinParticipants int              `json:"min_participants"`
	Participants    int              `json:"participants"`
	NumQuestions    int              `json:"num_questions"`
	GameMode        string           `json:"gamemode"`
	Category        string           `json:"category"`
	Tags            []string         `json:"tags"`
	Multiplier      float64          `json:"multiplier"`
	QuestionSeconds int              `json:"question_seconds"`
	Tries           int              `json:"tries"`
	PrizeSlots      []game.PrizeSlot `json:"prize_slots"`
}

// ParticipantView is the public shape of a registration.
type ParticipantView struct {
	ID           int64     `json:"id"`
	TournamentID int64     `json:"tournament_id"`
	Score        int       `json:"score"`
	TriesLeft    int       `json:"tries_left"`
	Place        *int      `json:"place,omitempty"`
	Prize        *string   `json:"prize,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
}

func tournamentView(t *game.Tournament, participants int) *TournamentView {
	return &TournamentView{
		ID:              t.ID,
		Name:            t.Name,
		StartedAt:       t.StartedAt,
		WillFinishAt:    t.WillFinishAt,
		FinishedAt:      t.FinishedAt,
		MinParticipants: t.MinParticipants,
		Participants:    participants,
		NumQuestions:    t.NumQuestions,
		GameMode:        t.GameMode,
		Category:        t.Category,
		Tags:            t.Tags,
		Multiplier:      t.Multiplier,
		QuestionSeconds: t.QuestionSeconds,
		Tries:           t.Tries,
		PrizeSlots:      t.PrizeSlots,
	}
}

func participantView(p *game.Participant) *ParticipantView {
	return &ParticipantView{
		ID:           p.ID,
		TournamentID: p.TournamentID,
		Score:        p.Score,
		TriesLeft:    p.TriesLeft,
		Place:        p.Place,
		Prize:        p.Prize,
		JoinedAt:     p.JoinedAt,
	}
}
