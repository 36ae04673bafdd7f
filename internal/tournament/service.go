package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/game"
	"github.com/flagquiz/flag-arena/internal/logging"
	"github.com/flagquiz/flag-arena/internal/match"
	"github.com/flagquiz/flag-arena/pkg/http/ws"
)

// Repo is the slice of the tournament repository the service needs.
type Repo interface {
	ByID(ctx context.Context, id int64) (*game.Tournament, error)
	Today(ctx context.Context, now time.Time) (*game.Tournament, error)
	ListOverdue(ctx context.Context, now time.Time) ([]int64, error)
	MarkStarted(ctx context.Context, id int64, now time.Time) error
	CreateParticipant(ctx context.Context, p *game.Participant) error
	ParticipantByUser(ctx context.Context, tournamentID, userID int64) (*game.Participant, error)
	CountParticipants(ctx context.Context, tournamentID int64) (int, error)
	Standings(ctx context.Context, tournamentID int64) ([]game.Participant, error)
	SetPlacement(ctx context.Context, pl Placement) error
	MarkFinished(ctx context.Context, id int64, now time.Time) (bool, error)
}

// Matches starts tournament matches through the match service.
type Matches interface {
	Start(ctx context.Context, cfg match.StartConfig) (*match.StartResult, error)
}

// Players provisions the player row for first-time participants.
type Players interface {
	Ensure(ctx context.Context, id int64, name string) (*game.Player, error)
}

// Service drives the tournament lifecycle: participation, match starts,
// standings, and finalization.
type Service struct {
	repo    Repo
	matches Matches
	players Players
	redis   *redis.Client
	channel string
	now     func() time.Time
	logger  zerolog.Logger
}

func NewService(repo Repo, matches Matches, players Players, redisClient *redis.Client, channel string, logger zerolog.Logger) *Service {
	if channel == "" {
		channel = "standings:updates"
	}
	return &Service{
		repo:    repo,
		matches: matches,
		players: players,
		redis:   redisClient,
		channel: channel,
		now:     time.Now,
		logger:  logger.With().Str("component", "tournament_service").Logger(),
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the tournament scheduled for the current UTC day.
func (s *Service) Today(ctx context.Context) (*TournamentView, error) {
	t, err := s.repo.Today(ctx, s.now())
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountParticipants(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return tournamentView(t, count), nil
}

// Participate registers the player in the tournament with the tournament's
// configured tries. Once the participant count reaches the minimum, the
// tournament starts.
func (s *Service) Participate(ctx context.Context, tournamentID, userID int64, userName string) (*game.Participant, error) {
	t, err := s.repo.ByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !t.Active(now) {
		return nil, game.ErrTournamentFinished
	}

	if _, err := s.players.Ensure(ctx, userID, userName); err != nil {
		return nil, err
	}
	if _, err := s.repo.ParticipantByUser(ctx, tournamentID, userID); err == nil {
		return nil, game.ErrAlreadyParticipating
	} else if !errors.Is(err, game.ErrNotParticipant) {
		return nil, err
	}

	p := &game.Participant{
		TournamentID: tournamentID,
		UserID:       userID,
		TriesLeft:    t.Tries,
		JoinedAt:     now,
	}
	if err := s.repo.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}

	count, err := s.repo.CountParticipants(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.StartedAt == nil && count >= t.MinParticipants {
		if err := s.repo.MarkStarted(ctx, tournamentID, now); err != nil {
			return nil, err
		}
		s.logger.Info().
			Int64("tournament_id", tournamentID).
			Int("participants", count).
			Msg("tournament started")
	}

	s.PublishStandings(ctx, tournamentID, false)
	return p, nil
}

// StartMatch begins a tournament match for a registered participant. The
// match inherits the tournament's question count, mode, filters, multiplier,
// and per-question limit.
func (s *Service) StartMatch(ctx context.Context, tournamentID, userID int64) (*match.StartResult, error) {
	t, err := s.repo.ByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.Active(s.now()) {
		return nil, game.ErrTournamentFinished
	}
	if t.StartedAt == nil {
		return nil, game.ErrTournamentNotStarted
	}

	p, err := s.repo.ParticipantByUser(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	if p.TriesLeft <= 0 {
		return nil, game.ErrNoTriesLeft
	}

	return s.matches.Start(ctx, match.StartConfig{
		OwnerID:         userID,
		Type:            game.TypeTournament,
		NumQuestions:    t.NumQuestions,
		Category:        t.Category,
		GameMode:        t.GameMode,
		Tags:            t.Tags,
		QuestionSeconds: t.QuestionSeconds,
		Multiplier:      t.Multiplier,
		TournamentID:    &t.ID,
		ParticipantID:   &p.ID,
	})
}

// Standings returns the current scoreboard, best score first, earlier joiner
// winning ties.
func (s *Service) Standings(ctx context.Context, tournamentID int64) ([]ws.StandingEntry, error) {
	participants, err := s.repo.Standings(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	entries := make([]ws.StandingEntry, len(participants))
	for i, p := range participants {
		entries[i] = ws.StandingEntry{
			Place:     i + 1,
			UserID:    p.UserID,
			Score:     p.Score,
			TriesLeft: p.TriesLeft,
		}
		if p.Prize != nil {
			entries[i].Prize = *p.Prize
		}
	}
	return entries, nil
}

// Finish closes the tournament: ranks participants, assigns places and prize
// slots, and sets finished_at exactly once. A lost race is not an error.
func (s *Service) Finish(ctx context.Context, tournamentID int64) error {
	t, err := s.repo.ByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.FinishedAt != nil {
		return game.ErrTournamentFinished
	}

	finished, err := s.repo.MarkFinished(ctx, tournamentID, s.now())
	if err != nil {
		return err
	}
	if !finished {
		return game.ErrTournamentFinished
	}

	participants, err := s.repo.Standings(ctx, tournamentID)
	if err != nil {
		return err
	}
	for i, p := range participants {
		pl := Placement{ParticipantID: p.ID, Place: i + 1}
		for _, slot := range t.PrizeSlots {
			if slot.Place == pl.Place {
				title := slot.Title
				pl.Prize = &title
				break
			}
		}
		if err := s.repo.SetPlacement(ctx, pl); err != nil {
			return err
		}
	}

	s.logger.Info().
		Int64("tournament_id", tournamentID).
		Int("participants", len(participants)).
		Msg("tournament finished")
	s.PublishStandings(ctx, tournamentID, true)
	return nil
}

// ExpireOverdue finishes every tournament past its deadline. Run by the
// scheduler sweep.
func (s *Service) ExpireOverdue(ctx context.Context) {
	ids, err := s.repo.ListOverdue(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("list overdue tournaments")
		return
	}
	for _, id := range ids {
		if err := s.Finish(ctx, id); err != nil && !errors.Is(err, game.ErrTournamentFinished) {
			s.logger.Error().Err(err).Int64("tournament_id", id).Msg("finish overdue tournament")
		}
	}
}

// PublishStandings pushes the current scoreboard to the standings channel.
// Best-effort: a failed publish never fails the calling operation.
func (s *Service) PublishStandings(ctx context.Context, tournamentID int64, finished bool) {
	if s.redis == nil {
		return
	}
	entries, err := s.Standings(ctx, tournamentID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("tournament_id", tournamentID).Msg("load standings for publish")
		return
	}
	payload, err := json.Marshal(ws.StandingsUpdatePayload{
		TournamentID: tournamentID,
		Standings:    entries,
		Finished:     finished,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("marshal standings payload")
		return
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Int64("tournament_id", tournamentID).
			Msg("publish standings update")
	}
}

// MatchFinalizeHook returns a hook for the match service that broadcasts
// fresh standings after each tournament match.
func (s *Service) MatchFinalizeHook() match.FinalizeHook {
	return func(ctx context.Context, m *game.Match) {
		if m.TournamentID == nil {
			return
		}
		s.PublishStandings(ctx, *m.TournamentID, false)
	}
}
