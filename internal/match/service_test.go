package match

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/flagquiz/flag-arena/internal/answer"
	"github.com/flagquiz/flag-arena/internal/game"
	"github.com/flagquiz/flag-arena/internal/generator"
	"github.com/flagquiz/flag-arena/internal/match/scoring"
)

type fakeStore struct {
	matches map[uuid.UUID]*game.Match
	answers map[uuid.UUID][]game.AnswerRecord

	lastMutation     *AnswerMutation
	lastFinalization *Finalization
	createErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: map[uuid.UUID]*game.Match{},
		answers: map[uuid.UUID][]game.AnswerRecord{},
	}
}

func (s *fakeStore) Create(ctx context.Context, m *game.Match) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.matches[m.ID] = m
	return nil
}

func (s *fakeStore) ActiveByOwner(ctx context.Context, ownerID int64) (*game.Match, error) {
	for _, m := range s.matches {
		if m.OwnerID == ownerID && !m.Completed() {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ByIDForOwner(ctx context.Context, id uuid.UUID, ownerID int64) (*game.Match, error) {
	m, ok := s.matches[id]
	if !ok || m.OwnerID != ownerID {
		return nil, game.ErrMatchNotFound
	}
	return m, nil
}

func (s *fakeStore) ApplyAnswer(ctx context.Context, m *game.Match, mut AnswerMutation) error {
	s.answers[m.ID] = append(s.answers[m.ID], mut.Record)
	s.lastMutation = &mut
	if mut.Finalize != nil {
		s.lastFinalization = mut.Finalize
	}
	return nil
}

func (s *fakeStore) Finalize(ctx context.Context, m *game.Match, fin Finalization) error {
	s.lastFinalization = &fin
	return nil
}

func (s *fakeStore) Answers(ctx context.Context, matchID uuid.UUID) ([]game.AnswerRecord, error) {
	return s.answers[matchID], nil
}

type fakePlayers struct {
	player      *game.Player
	ensureErr   error
	started     []int64
	ensuredName string
}

func (p *fakePlayers) Ensure(ctx context.Context, id int64, name string) (*game.Player, error) {
	if p.ensureErr != nil {
		return nil, p.ensureErr
	}
	p.ensuredName = name
	return p.player, nil
}

func (p *fakePlayers) RecordGameStarted(ctx context.Context, id int64) error {
	p.started = append(p.started, id)
	return nil
}

type fakeBuilder struct {
	questions []game.Question
	err       error
}

func (b *fakeBuilder) Build(ctx context.Context, req generator.Request) ([]game.Question, error) {
	return b.questions, b.err
}

type noopLocks struct{}

func (noopLocks) LockStart(ctx context.Context, ownerID int64) (func() error, error) {
	return func() error { return nil }, nil
}

func (noopLocks) LockMatch(ctx context.Context, matchID uuid.UUID) (func() error, error) {
	return func() error { return nil }, nil
}

type heldLocks struct{ noopLocks }

func (heldLocks) LockStart(ctx context.Context, ownerID int64) (func() error, error) {
	return nil, ErrLockHeld
}

func makeQuestions(n int) []game.Question {
	qs := make([]game.Question, n)
	for i := range qs {
		name := fmt.Sprintf("country-%d", i)
		qs[i] = game.Question{
			FlagID:     int64(i + 1),
			Image:      fmt.Sprintf("flags/%d.png", i+1),
			Options:    []string{name, "a", "b", "c", "d", "e", "f"},
			Answer:     name,
			Mode:       game.ModeChoose,
			Difficulty: 0.5,
		}
	}
	return qs
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	service *Service
	store   *fakeStore
	players *fakePlayers
	builder *fakeBuilder
	clock   *testClock
}

func newFixture(numQuestions int) *fixture {
	store := newFakeStore()
	players := &fakePlayers{player: &game.Player{ID: 7, Name: "alice", TriesLeft: 3}}
	builder := &fakeBuilder{questions: makeQuestions(numQuestions)}
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	table := answer.NewTable(map[string]string{})
	svc := NewService(Deps{
		Store:           store,
		Players:         players,
		Builder:         builder,
		Checker:         answer.NewNormalizer(table, 85),
		Scoring:         scoring.NewEngine(scoring.DefaultConfig()),
		Locks:           noopLocks{},
		QuestionSeconds: 15,
		Now:             clock.Now,
	})
	return &fixture{service: svc, store: store, players: players, builder: builder, clock: clock}
}

func startCasual(t *testing.T, f *fixture, numQuestions int) *StartResult {
	t.Helper()
	res, err := f.service.Start(context.Background(), StartConfig{
		OwnerID:      7,
		OwnerName:    "alice",
		Type:         game.TypeCasual,
		NumQuestions: numQuestions,
		Category:     game.CategoryFrenzy,
		GameMode:     game.ModeChoose,
	})
	assert.NoError(t, err)
	return res
}

func TestStartCasual(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	assert.Equal(t, 10, res.NumQuestions)
	assert.Equal(t, 0, res.Question.Index)
	assert.Len(t, res.Question.Options, 7)
	assert.Equal(t, []int64{7}, f.players.started)
	assert.Equal(t, "alice", f.players.ensuredName)

	m := f.store.matches[res.MatchID]
	assert.Equal(t, 0.7, m.Multiplier) // choose mode, no scoring tags
	assert.Equal(t, 15, m.QuestionSeconds)
	assert.NotNil(t, m.CurrentStartedAt)
}

func TestStartNoTriesLeft(t *testing.T) {
	f := newFixture(10)
	f.players.player.TriesLeft = 0

	_, err := f.service.Start(context.Background(), StartConfig{
		OwnerID: 7, Type: game.TypeCasual, NumQuestions: 10, GameMode: game.ModeChoose,
	})
	assert.ErrorIs(t, err, game.ErrNoTriesLeft)
}

func TestStartActiveMatchExists(t *testing.T) {
	f := newFixture(10)
	startCasual(t, f, 10)

	_, err := f.service.Start(context.Background(), StartConfig{
		OwnerID: 7, Type: game.TypeCasual, NumQuestions: 10, GameMode: game.ModeChoose,
	})
	assert.ErrorIs(t, err, game.ErrActiveMatchExists)
}

func TestStartLockHeld(t *testing.T) {
	f := newFixture(10)
	f.service.locks = heldLocks{}

	_, err := f.service.Start(context.Background(), StartConfig{
		OwnerID: 7, Type: game.TypeCasual, NumQuestions: 10, GameMode: game.ModeChoose,
	})
	assert.ErrorIs(t, err, game.ErrActiveMatchExists)
}

func TestStartTournamentSkipsCasualTries(t *testing.T) {
	f := newFixture(10)
	f.players.player.TriesLeft = 0
	tournamentID, participantID := int64(3), int64(11)

	res, err := f.service.Start(context.Background(), StartConfig{
		OwnerID:       7,
		Type:          game.TypeTournament,
		NumQuestions:  10,
		GameMode:      game.ModeEnter,
		Multiplier:    1.5,
		TournamentID:  &tournamentID,
		ParticipantID: &participantID,
	})
	assert.NoError(t, err)
	assert.Empty(t, f.players.started)

	m := f.store.matches[res.MatchID]
	assert.Equal(t, 1.5, m.Multiplier)
	assert.Equal(t, &participantID, m.ParticipantID)
}

func TestSubmitCorrectAnswer(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	sub, err := f.service.Submit(context.Background(), res.MatchID, 7, "country-0")
	assert.NoError(t, err)
	assert.True(t, sub.Correct)
	assert.Equal(t, "country-0", sub.CorrectAnswer)
	assert.False(t, sub.Finished)
	assert.Equal(t, 1, sub.Next.Index)

	// difficulty 0.5 is 2 base points, 2 * 0.7 rounds to 1
	assert.Equal(t, 1, sub.Score)
	assert.True(t, f.store.lastMutation.UpdateStats)
	assert.True(t, f.store.lastMutation.Record.IsCorrect)
	assert.Equal(t, 2, f.store.lastMutation.Record.Points)
}

func TestSubmitWrongAnswer(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	sub, err := f.service.Submit(context.Background(), res.MatchID, 7, "nowhere")
	assert.NoError(t, err)
	assert.False(t, sub.Correct)
	assert.Equal(t, 0, sub.Score)
	assert.True(t, f.store.lastMutation.UpdateStats)
	assert.Equal(t, 0, f.store.lastMutation.Record.Points)
}

func TestSubmitExpirySignal(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	sub, err := f.service.Submit(context.Background(), res.MatchID, 7, game.ExpirySignal)
	assert.NoError(t, err)
	assert.False(t, sub.Correct)
	assert.Equal(t, game.ExpirySignal, f.store.lastMutation.Record.Submitted)
	assert.False(t, f.store.lastMutation.UpdateStats)
}

func TestSubmitAfterTimerExpired(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)
	f.clock.Advance(16 * time.Second)

	sub, err := f.service.Submit(context.Background(), res.MatchID, 7, "country-0")
	assert.NoError(t, err)
	assert.False(t, sub.Correct)
	assert.Equal(t, game.ExpirySignal, f.store.lastMutation.Record.Submitted)
	assert.False(t, f.store.lastMutation.UpdateStats)
}

func TestSubmitPerfectRunReturnsAttempt(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)
	var hooked *game.Match
	f.service.OnFinalize(func(ctx context.Context, m *game.Match) { hooked = m })

	var last *SubmitResult
	for i := 0; i < 10; i++ {
		var err error
		last, err = f.service.Submit(context.Background(), res.MatchID, 7, fmt.Sprintf("country-%d", i))
		assert.NoError(t, err)
	}
	assert.True(t, last.Finished)
	assert.Nil(t, last.Next)
	assert.NotNil(t, hooked)

	fin := f.store.lastFinalization
	assert.NotNil(t, fin)
	assert.NotNil(t, fin.Casual)
	assert.Nil(t, fin.Participant)
	assert.Equal(t, int64(7), fin.Casual.OwnerID)
	assert.False(t, fin.Casual.DecrementTry) // 0 mistakes on 10 questions
	assert.Equal(t, last.Score, fin.Casual.ScoreDelta)
}

func TestSubmitMistakeOverBudgetConsumesTry(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "nowhere")
	assert.NoError(t, err)
	for i := 1; i < 10; i++ {
		_, err := f.service.Submit(context.Background(), res.MatchID, 7, fmt.Sprintf("country-%d", i))
		assert.NoError(t, err)
	}

	fin := f.store.lastFinalization
	assert.NotNil(t, fin.Casual)
	assert.True(t, fin.Casual.DecrementTry) // 10-question budget allows no mistakes
}

func TestSubmitRoutesParticipantOutcome(t *testing.T) {
	f := newFixture(10)
	participantID := int64(11)
	m := &game.Match{
		ID:              uuid.New(),
		OwnerID:         7,
		Type:            game.TypeTournament,
		NumQuestions:    1,
		Questions:       makeQuestions(1),
		QuestionSeconds: 15,
		Multiplier:      1.2,
		ParticipantID:   &participantID,
	}
	start := f.clock.Now()
	m.CurrentStartedAt = &start
	f.store.matches[m.ID] = m

	sub, err := f.service.Submit(context.Background(), m.ID, 7, "country-0")
	assert.NoError(t, err)
	assert.True(t, sub.Finished)

	fin := f.store.lastFinalization
	assert.Nil(t, fin.Casual)
	assert.NotNil(t, fin.Participant)
	assert.Equal(t, participantID, fin.Participant.ParticipantID)
	assert.False(t, fin.Participant.DecrementTry)
}

func TestSubmitCompletedMatch(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)
	m := f.store.matches[res.MatchID]
	now := f.clock.Now()
	m.CompletedAt = &now

	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "country-0")
	assert.ErrorIs(t, err, game.ErrAlreadyCompleted)
}

func TestForceSubmit(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "country-0")
	assert.NoError(t, err)

	summary, err := f.service.ForceSubmit(context.Background(), res.MatchID, 7)
	assert.NoError(t, err)
	assert.False(t, summary.ReturnedAttempt) // 1 of 10 answered never returns
	assert.Len(t, summary.Answers, 1)

	fin := f.store.lastFinalization
	assert.NotNil(t, fin.Casual)
	assert.True(t, fin.Casual.DecrementTry)

	m := f.store.matches[res.MatchID]
	assert.True(t, m.Completed())
}

func TestSummaryIncomplete(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	_, err := f.service.Summary(context.Background(), res.MatchID, 7)
	assert.ErrorIs(t, err, game.ErrNotCompleted)
}

func TestSummaryEnrichesAnswers(t *testing.T) {
	f := newFixture(2)
	res := startCasual(t, f, 2)

	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "country-0")
	assert.NoError(t, err)
	sub, err := f.service.Submit(context.Background(), res.MatchID, 7, "nowhere")
	assert.NoError(t, err)
	assert.True(t, sub.Finished)

	summary, err := f.service.Summary(context.Background(), res.MatchID, 7)
	assert.NoError(t, err)
	assert.Len(t, summary.Answers, 2)
	assert.Equal(t, "flags/1.png", summary.Answers[0].Image)
	assert.Equal(t, "country-0", summary.Answers[0].CorrectAnswer)
	assert.True(t, summary.Answers[0].IsCorrect)
	assert.Equal(t, "nowhere", summary.Answers[1].Submitted)
	assert.False(t, summary.Answers[1].IsCorrect)
}

func TestSubmitBlankAnswer(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)

	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "   ")
	assert.ErrorIs(t, err, game.ErrEmptyAnswer)
	assert.Nil(t, f.store.lastMutation)
}

func TestSubmitBlankAnswerAfterTimerExpired(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)
	f.clock.Advance(16 * time.Second)

	// A blank submission is rejected before the expiry decision, so the
	// question is not consumed.
	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "")
	assert.ErrorIs(t, err, game.ErrEmptyAnswer)
	assert.Nil(t, f.store.lastMutation)
	assert.Equal(t, 0, f.store.matches[res.MatchID].CurrentIdx)
}

func TestActive(t *testing.T) {
	f := newFixture(10)

	_, err := f.service.Active(context.Background(), 7)
	assert.ErrorIs(t, err, game.ErrMatchNotFound)

	res := startCasual(t, f, 10)
	poll, err := f.service.Active(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, res.MatchID, poll.MatchID)
	assert.False(t, poll.Finished)
	assert.Equal(t, 0, poll.Question.Index)
	assert.Empty(t, f.store.answers[res.MatchID])
}

func TestActiveAdvancesExpiredQuestion(t *testing.T) {
	f := newFixture(10)
	res := startCasual(t, f, 10)
	f.clock.Advance(16 * time.Second)

	poll, err := f.service.Active(context.Background(), 7)
	assert.NoError(t, err)
	assert.False(t, poll.Finished)
	assert.Equal(t, 1, poll.Question.Index)

	records := f.store.answers[res.MatchID]
	assert.Len(t, records, 1)
	assert.Equal(t, game.ExpirySignal, records[0].Submitted)
	assert.False(t, records[0].IsCorrect)
	assert.Equal(t, 0, records[0].Points)
	assert.False(t, f.store.lastMutation.UpdateStats)

	// The new question's timer starts at the poll, so an immediate second
	// poll must not consume another question.
	again, err := f.service.Active(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, 1, again.Question.Index)
	assert.Len(t, f.store.answers[res.MatchID], 1)
}

func TestActiveExpiryFinishesMatch(t *testing.T) {
	f := newFixture(1)
	res := startCasual(t, f, 1)
	var hooked *game.Match
	f.service.OnFinalize(func(ctx context.Context, m *game.Match) { hooked = m })
	f.clock.Advance(16 * time.Second)

	poll, err := f.service.Active(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, poll.Finished)
	assert.Nil(t, poll.Question)
	assert.NotNil(t, hooked)

	fin := f.store.lastFinalization
	assert.NotNil(t, fin)
	assert.NotNil(t, fin.Casual)
	assert.True(t, fin.Casual.DecrementTry)
	assert.True(t, f.store.matches[res.MatchID].Completed())

	_, err = f.service.Active(context.Background(), 7)
	assert.ErrorIs(t, err, game.ErrMatchNotFound)
}

func TestSummaryStable(t *testing.T) {
	f := newFixture(2)
	res := startCasual(t, f, 2)

	_, err := f.service.Submit(context.Background(), res.MatchID, 7, "country-0")
	assert.NoError(t, err)
	_, err = f.service.Submit(context.Background(), res.MatchID, 7, "country-1")
	assert.NoError(t, err)

	first, err := f.service.Summary(context.Background(), res.MatchID, 7)
	assert.NoError(t, err)
	second, err := f.service.Summary(context.Background(), res.MatchID, 7)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}
