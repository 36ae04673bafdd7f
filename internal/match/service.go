package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flagquiz/flag-arena/internal/answer"
	"github.com/flagquiz/flag-arena/internal/game"
	"github.com/flagquiz/flag-arena/internal/generator"
	"github.com/flagquiz/flag-arena/internal/logging"
	"github.com/flagquiz/flag-arena/internal/match/scoring"
	"github.com/flagquiz/flag-arena/internal/metrics"
)

// Players is the slice of the player repository the match flow needs.
type Players interface {
	Ensure(ctx context.Context, id int64, name string) (*game.Player, error)
	RecordGameStarted(ctx context.Context, id int64) error
}

// Builder produces the question set for a new match.
type Builder interface {
	Build(ctx context.Context, req generator.Request) ([]game.Question, error)
}

// Locks serializes match starts per owner and submissions per match.
type Locks interface {
	LockStart(ctx context.Context, ownerID int64) (func() error, error)
	LockMatch(ctx context.Context, matchID uuid.UUID) (func() error, error)
}

// FinalizeHook runs after a match finalization has committed. Hooks are
// best-effort: standings broadcasts, daily leaderboard updates, metrics.
type FinalizeHook func(ctx context.Context, m *game.Match)

// Service drives the match lifecycle: start, answer, early submit, summary.
type Service struct {
	store           Store
	players         Players
	builder         Builder
	checker         *answer.Normalizer
	scoring         *scoring.Engine
	locks           Locks
	questionSeconds int
	now             func() time.Time
	hooks           []FinalizeHook
}

// Deps collects the service dependencies.
type Deps struct {
	Store           Store
	Players         Players
	Builder         Builder
	Checker         *answer.Normalizer
	Scoring         *scoring.Engine
	Locks           Locks
	QuestionSeconds int
	Now             func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.QuestionSeconds <= 0 {
		d.QuestionSeconds = 15
	}
	return &Service{
		store:           d.Store,
		players:         d.Players,
		builder:         d.Builder,
		checker:         d.Checker,
		scoring:         d.Scoring,
		locks:           d.Locks,
		questionSeconds: d.QuestionSeconds,
		now:             d.Now,
	}
}

// OnFinalize registers a hook invoked after each committed finalization.
func (s *Service) OnFinalize(h FinalizeHook) {
	s.hooks = append(s.hooks, h)
}

// Start creates a match for the owner. One active match per owner: the check
// runs under a short Redis lock, and a partial unique index in the store
// backstops racing starts.
func (s *Service) Start(ctx context.Context, cfg StartConfig) (*StartResult, error) {
	unlock, err := s.locks.LockStart(ctx, cfg.OwnerID)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, game.ErrActiveMatchExists
		}
		return nil, err
	}
	defer unlock()

	active, err := s.store.ActiveByOwner(ctx, cfg.OwnerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, game.ErrActiveMatchExists
	}

	if cfg.Type == game.TypeCasual {
		p, err := s.players.Ensure(ctx, cfg.OwnerID, cfg.OwnerName)
		if err != nil {
			return nil, err
		}
		if p.TriesLeft <= 0 {
			return nil, game.ErrNoTriesLeft
		}
	}

	questions, err := s.builder.Build(ctx, generator.Request{
		NumQuestions: cfg.NumQuestions,
		Category:     cfg.Category,
		Tags:         cfg.Tags,
		GameMode:     cfg.GameMode,
	})
	if err != nil {
		return nil, err
	}

	multiplier := cfg.Multiplier
	if multiplier == 0 {
		multiplier = s.scoring.Multiplier(cfg.GameMode, cfg.Tags)
	}
	seconds := cfg.QuestionSeconds
	if seconds <= 0 {
		seconds = s.questionSeconds
	}

	now := s.now()
	m := &game.Match{
		ID:               uuid.New(),
		OwnerID:          cfg.OwnerID,
		Type:             cfg.Type,
		NumQuestions:     len(questions),
		Questions:        questions,
		CurrentStartedAt: &now,
		QuestionSeconds:  seconds,
		Multiplier:       multiplier,
		GameMode:         cfg.GameMode,
		Category:         cfg.Category,
		Tags:             cfg.Tags,
		CreatedAt:        now,
		TournamentID:     cfg.TournamentID,
		ParticipantID:    cfg.ParticipantID,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}

	if cfg.Type == game.TypeCasual {
		if err := s.players.RecordGameStarted(ctx, cfg.OwnerID); err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Int64("owner_id", cfg.OwnerID).
				Msg("record game started")
		}
	}

	metrics.MatchesStarted.WithLabelValues(m.Type).Inc()
	logging.FromContext(ctx).Info().
		Str("match_id", m.ID.String()).
		Int64("owner_id", m.OwnerID).
		Str("match_type", m.Type).
		Int("num_questions", m.NumQuestions).
		Msg("match started")

	return &StartResult{
		MatchID:      m.ID,
		NumQuestions: m.NumQuestions,
		Question:     *questionView(m),
	}, nil
}

// Active returns the owner's in-progress match. The question timer is
// evaluated lazily here as well as on submission: a poll past the limit
// records the question as missed and advances the match, so a client that
// stops answering still converges to the terminal state.
func (s *Service) Active(ctx context.Context, ownerID int64) (*PollResult, error) {
	m, err := s.store.ActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, game.ErrMatchNotFound
	}
	if !s.questionExpired(m, s.now()) {
		return pollView(m, false), nil
	}

	unlock, err := s.locks.LockMatch(ctx, m.ID)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			// Another request is advancing this match. Serve the last read.
			return pollView(m, false), nil
		}
		return nil, err
	}
	defer unlock()

	m, err = s.store.ByIDForOwner(ctx, m.ID, ownerID)
	if err != nil {
		return nil, err
	}
	if !m.Completed() && s.questionExpired(m, s.now()) {
		if _, err := s.expireCurrent(ctx, m, s.now()); err != nil {
			return nil, err
		}
	}
	return pollView(m, m.Completed()), nil
}

// Submit records the answer for the current question and advances the match.
// The expiry signal, or a server clock past the per-question limit, counts the
// question as missed without touching flag statistics.
func (s *Service) Submit(ctx context.Context, matchID uuid.UUID, ownerID int64, raw string) (*SubmitResult, error) {
	unlock, err := s.locks.LockMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.store.ByIDForOwner(ctx, matchID, ownerID)
	if err != nil {
		return nil, err
	}
	if m.Completed() {
		return nil, game.ErrAlreadyCompleted
	}
	q := m.CurrentQuestion()
	if q == nil {
		return nil, game.ErrAlreadyCompleted
	}

	// A blank submission is a client error even when the timer has run out.
	if strings.TrimSpace(raw) == "" {
		return nil, game.ErrEmptyAnswer
	}

	now := s.now()
	if answer.IsExpirySignal(raw) || s.questionExpired(m, now) {
		finished, err := s.expireCurrent(ctx, m, now)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			CorrectAnswer: q.Answer,
			Finished:      finished,
			Next:          questionView(m),
			Score:         m.Score,
		}, nil
	}

	correct, err := s.checker.Check(raw, q.Answer)
	if err != nil {
		return nil, err
	}
	points := s.scoring.QuestionPoints(correct, q.Difficulty)

	m.BaseScore += points
	m.Score = s.scoring.FinalScore(m.BaseScore, m.Multiplier)
	m.CurrentIdx++

	mut := AnswerMutation{
		Record: game.AnswerRecord{
			MatchID:     m.ID,
			QuestionIdx: m.CurrentIdx - 1,
			FlagID:      q.FlagID,
			Submitted:   raw,
			IsCorrect:   correct,
			Points:      points,
			AnsweredAt:  now,
		},
		UpdateStats: true,
	}

	finished := m.CurrentIdx >= m.NumQuestions
	if finished {
		wrongBefore, err := s.wrongCount(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		wrong := wrongBefore
		if !correct {
			wrong++
		}
		m.CompletedAt = &now
		m.CurrentStartedAt = nil
		fin := s.finalization(m, now, m.NumQuestions, wrong)
		mut.Finalize = &fin
	} else {
		m.CurrentStartedAt = &now
	}

	if err := s.store.ApplyAnswer(ctx, m, mut); err != nil {
		return nil, err
	}
	if correct {
		metrics.Answers.WithLabelValues("correct").Inc()
	} else {
		metrics.Answers.WithLabelValues("wrong").Inc()
	}
	if finished {
		s.runHooks(ctx, m)
	}

	return &SubmitResult{
		Correct:       correct,
		CorrectAnswer: q.Answer,
		Finished:      finished,
		Next:          questionView(m),
		Score:         m.Score,
	}, nil
}

// expireCurrent records the current question as missed and advances the
// match, finalizing it when that was the last question. Flag statistics are
// left untouched for missed questions.
func (s *Service) expireCurrent(ctx context.Context, m *game.Match, now time.Time) (bool, error) {
	q := m.CurrentQuestion()
	m.CurrentIdx++

	mut := AnswerMutation{
		Record: game.AnswerRecord{
			MatchID:     m.ID,
			QuestionIdx: m.CurrentIdx - 1,
			FlagID:      q.FlagID,
			Submitted:   game.ExpirySignal,
			AnsweredAt:  now,
		},
	}

	finished := m.CurrentIdx >= m.NumQuestions
	if finished {
		wrong, err := s.wrongCount(ctx, m.ID)
		if err != nil {
			return false, err
		}
		m.CompletedAt = &now
		m.CurrentStartedAt = nil
		fin := s.finalization(m, now, m.NumQuestions, wrong+1)
		mut.Finalize = &fin
	} else {
		m.CurrentStartedAt = &now
	}

	if err := s.store.ApplyAnswer(ctx, m, mut); err != nil {
		return false, err
	}
	metrics.Answers.WithLabelValues("expired").Inc()
	if finished {
		s.runHooks(ctx, m)
	}
	return finished, nil
}

// ForceSubmit completes a match before all questions are answered. An
// incomplete run never returns the attempt, so the try is consumed.
func (s *Service) ForceSubmit(ctx context.Context, matchID uuid.UUID, ownerID int64) (*SummaryResult, error) {
	unlock, err := s.locks.LockMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.store.ByIDForOwner(ctx, matchID, ownerID)
	if err != nil {
		return nil, err
	}
	if m.Completed() {
		return nil, game.ErrAlreadyCompleted
	}

	wrong, err := s.wrongCount(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m.CompletedAt = &now
	m.CurrentStartedAt = nil
	fin := s.finalization(m, now, m.CurrentIdx, wrong)
	if err := s.store.Finalize(ctx, m, fin); err != nil {
		return nil, err
	}
	s.runHooks(ctx, m)

	logging.FromContext(ctx).Info().
		Str("match_id", m.ID.String()).
		Int("answered", m.CurrentIdx).
		Msg("match submitted early")

	return s.buildSummary(ctx, m)
}

// Summary returns the full result of a completed match.
func (s *Service) Summary(ctx context.Context, matchID uuid.UUID, ownerID int64) (*SummaryResult, error) {
	m, err := s.store.ByIDForOwner(ctx, matchID, ownerID)
	if err != nil {
		return nil, err
	}
	if !m.Completed() {
		return nil, game.ErrNotCompleted
	}
	return s.buildSummary(ctx, m)
}

func (s *Service) buildSummary(ctx context.Context, m *game.Match) (*SummaryResult, error) {
	records, err := s.store.Answers(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	views := make([]AnswerView, 0, len(records))
	wrong := 0
	for _, rec := range records {
		if !rec.IsCorrect {
			wrong++
		}
		v := AnswerView{
			QuestionIdx: rec.QuestionIdx,
			FlagID:      rec.FlagID,
			Submitted:   rec.Submitted,
			IsCorrect:   rec.IsCorrect,
			Points:      rec.Points,
			AnsweredAt:  rec.AnsweredAt,
		}
		if rec.QuestionIdx >= 0 && rec.QuestionIdx < len(m.Questions) {
			q := m.Questions[rec.QuestionIdx]
			v.Image = q.Image
			v.CorrectAnswer = q.Answer
		}
		views = append(views, v)
	}

	return &SummaryResult{
		MatchID:         m.ID,
		NumQuestions:    m.NumQuestions,
		BaseScore:       m.BaseScore,
		Multiplier:      m.Multiplier,
		Score:           m.Score,
		ReturnedAttempt: s.scoring.AttemptReturned(len(records), wrong, m.NumQuestions),
		CompletedAt:     *m.CompletedAt,
		Answers:         views,
	}, nil
}

func (s *Service) finalization(m *game.Match, now time.Time, answered, wrong int) Finalization {
	returned := s.scoring.AttemptReturned(answered, wrong, m.NumQuestions)
	metrics.MatchesCompleted.WithLabelValues(m.Type, strconv.FormatBool(returned)).Inc()
	fin := Finalization{CompletedAt: now}
	if m.ParticipantID != nil {
		fin.Participant = &ParticipantOutcome{
			ParticipantID: *m.ParticipantID,
			ScoreDelta:    m.Score,
			DecrementTry:  !returned,
		}
	} else {
		fin.Casual = &CasualOutcome{
			OwnerID:      m.OwnerID,
			ScoreDelta:   m.Score,
			DecrementTry: !returned,
		}
	}
	return fin
}

func (s *Service) questionExpired(m *game.Match, now time.Time) bool {
	if m.CurrentStartedAt == nil {
		return false
	}
	limit := time.Duration(m.QuestionSeconds) * time.Second
	return now.Sub(*m.CurrentStartedAt) > limit
}

func (s *Service) wrongCount(ctx context.Context, matchID uuid.UUID) (int, error) {
	records, err := s.store.Answers(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("count wrong answers: %w", err)
	}
	wrong := 0
	for _, rec := range records {
		if !rec.IsCorrect {
			wrong++
		}
	}
	return wrong, nil
}

func (s *Service) runHooks(ctx context.Context, m *game.Match) {
	for _, h := range s.hooks {
		h(ctx, m)
	}
}
