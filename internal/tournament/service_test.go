package tournament

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/flagquiz/flag-arena/internal/game"
	"github.com/flagquiz/flag-arena/internal/match"
)

type fakeRepo struct {
	tournament   *game.Tournament
	participants []*game.Participant
	overdue      []int64

	placements   []Placement
	markStarted  bool
	markFinished bool
	finishLost   bool
}

func (r *fakeRepo) ByID(ctx context.Context, id int64) (*game.Tournament, error) {
	if r.tournament == nil || r.tournament.ID != id {
		return nil, game.ErrTournamentNotFound
	}
	return r.tournament, nil
}

func (r *fakeRepo) Today(ctx context.Context, now time.Time) (*game.Tournament, error) {
	if r.tournament == nil {
		return nil, game.ErrTournamentNotFound
	}
	return r.tournament, nil
}

func (r *fakeRepo) ListOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	return r.overdue, nil
}

func (r *fakeRepo) MarkStarted(ctx context.Context, id int64, now time.Time) error {
	r.markStarted = true
	r.tournament.StartedAt = &now
	return nil
}

func (r *fakeRepo) CreateParticipant(ctx context.Context, p *game.Participant) error {
	p.ID = int64(len(r.participants) + 1)
	r.participants = append(r.participants, p)
	return nil
}

func (r *fakeRepo) ParticipantByUser(ctx context.Context, tournamentID, userID int64) (*game.Participant, error) {
	for _, p := range r.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, game.ErrNotParticipant
}

func (r *fakeRepo) CountParticipants(ctx context.Context, tournamentID int64) (int, error) {
	return len(r.participants), nil
}

func (r *fakeRepo) Standings(ctx context.Context, tournamentID int64) ([]game.Participant, error) {
	out := make([]game.Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = *p
	}
	return out, nil
}

func (r *fakeRepo) SetPlacement(ctx context.Context, pl Placement) error {
	r.placements = append(r.placements, pl)
	return nil
}

func (r *fakeRepo) MarkFinished(ctx context.Context, id int64, now time.Time) (bool, error) {
	if r.finishLost {
		return false, nil
	}
	r.markFinished = true
	r.tournament.FinishedAt = &now
	return true, nil
}

type fakeMatches struct {
	lastConfig match.StartConfig
	result     *match.StartResult
	err        error
}

func (m *fakeMatches) Start(ctx context.Context, cfg match.StartConfig) (*match.StartResult, error) {
	m.lastConfig = cfg
	return m.result, m.err
}

type fakePlayers struct {
	ensured []int64
}

func (p *fakePlayers) Ensure(ctx context.Context, id int64, name string) (*game.Player, error) {
	p.ensured = append(p.ensured, id)
	return &game.Player{ID: id, Name: name}, nil
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTournament() *game.Tournament {
	return &game.Tournament{
		ID:              1,
		Name:            "daily cup",
		WillFinishAt:    testTime.Add(6 * time.Hour),
		MinParticipants: 2,
		NumQuestions:    15,
		GameMode:        game.ModeEnter,
		Category:        "europe",
		Tags:            []string{game.TagUN},
		Multiplier:      1.4,
		QuestionSeconds: 10,
		Tries:           3,
		PrizeSlots: []game.PrizeSlot{
			{Place: 1, Title: "gold"},
			{Place: 2, Title: "silver"},
		},
	}
}

func newTestService(repo *fakeRepo, matches *fakeMatches, players *fakePlayers) *Service {
	return NewService(repo, matches, players, nil, "", zerolog.Nop()).
		WithClock(func() time.Time { return testTime })
}

func TestParticipate(t *testing.T) {
	repo := &fakeRepo{tournament: openTournament()}
	players := &fakePlayers{}
	svc := newTestService(repo, &fakeMatches{}, players)

	p, err := svc.Participate(context.Background(), 1, 7, "alice")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, 3, p.TriesLeft)
	assert.Equal(t, []int64{7}, players.ensured)
	assert.False(t, repo.markStarted) // below minimum

	_, err = svc.Participate(context.Background(), 1, 8, "bob")
	assert.NoError(t, err)
	assert.True(t, repo.markStarted) // minimum reached
	assert.NotNil(t, repo.tournament.StartedAt)
}

func TestParticipateTwice(t *testing.T) {
	repo := &fakeRepo{tournament: openTournament()}
	svc := newTestService(repo, &fakeMatches{}, &fakePlayers{})

	_, err := svc.Participate(context.Background(), 1, 7, "alice")
	assert.NoError(t, err)
	_, err = svc.Participate(context.Background(), 1, 7, "alice")
	assert.ErrorIs(t, err, game.ErrAlreadyParticipating)
	assert.Len(t, repo.participants, 1)
}

func TestParticipateFinished(t *testing.T) {
	tr := openTournament()
	tr.WillFinishAt = testTime.Add(-time.Minute)
	svc := newTestService(&fakeRepo{tournament: tr}, &fakeMatches{}, &fakePlayers{})

	_, err := svc.Participate(context.Background(), 1, 7, "alice")
	assert.ErrorIs(t, err, game.ErrTournamentFinished)
}

func TestStartMatchInheritsConfig(t *testing.T) {
	repo := &fakeRepo{tournament: openTournament()}
	matches := &fakeMatches{result: &match.StartResult{}}
	svc := newTestService(repo, matches, &fakePlayers{})

	_, err := svc.Participate(context.Background(), 1, 7, "alice")
	assert.NoError(t, err)
	_, err = svc.Participate(context.Background(), 1, 8, "bob")
	assert.NoError(t, err)

	_, err = svc.StartMatch(context.Background(), 1, 7)
	assert.NoError(t, err)

	cfg := matches.lastConfig
	assert.Equal(t, int64(7), cfg.OwnerID)
	assert.Equal(t, game.TypeTournament, cfg.Type)
	assert.Equal(t, 15, cfg.NumQuestions)
	assert.Equal(t, game.ModeEnter, cfg.GameMode)
	assert.Equal(t, "europe", cfg.Category)
	assert.Equal(t, 1.4, cfg.Multiplier)
	assert.Equal(t, 10, cfg.QuestionSeconds)
	assert.Equal(t, int64(1), *cfg.TournamentID)
	assert.Equal(t, repo.participants[0].ID, *cfg.ParticipantID)
}

func TestStartMatchGates(t *testing.T) {
	repo := &fakeRepo{tournament: openTournament()}
	svc := newTestService(repo, &fakeMatches{result: &match.StartResult{}}, &fakePlayers{})

	// not started yet
	_, err := svc.StartMatch(context.Background(), 1, 7)
	assert.ErrorIs(t, err, game.ErrTournamentNotStarted)

	started := testTime.Add(-time.Hour)
	repo.tournament.StartedAt = &started

	// not a participant
	_, err = svc.StartMatch(context.Background(), 1, 7)
	assert.ErrorIs(t, err, game.ErrNotParticipant)

	// out of tries
	repo.participants = append(repo.participants, &game.Participant{
		ID: 1, TournamentID: 1, UserID: 7, TriesLeft: 0,
	})
	_, err = svc.StartMatch(context.Background(), 1, 7)
	assert.ErrorIs(t, err, game.ErrNoTriesLeft)

	// past deadline
	repo.tournament.WillFinishAt = testTime.Add(-time.Minute)
	_, err = svc.StartMatch(context.Background(), 1, 7)
	assert.ErrorIs(t, err, game.ErrTournamentFinished)
}

func TestStandings(t *testing.T) {
	prize := "gold"
	repo := &fakeRepo{
		tournament: openTournament(),
		participants: []*game.Participant{
			{ID: 1, TournamentID: 1, UserID: 7, Score: 40, TriesLeft: 1, Prize: &prize},
			{ID: 2, TournamentID: 1, UserID: 8, Score: 25, TriesLeft: 2},
		},
	}
	svc := newTestService(repo, &fakeMatches{}, &fakePlayers{})

	entries, err := svc.Standings(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Place)
	assert.Equal(t, int64(7), entries[0].UserID)
	assert.Equal(t, "gold", entries[0].Prize)
	assert.Equal(t, 2, entries[1].Place)
	assert.Empty(t, entries[1].Prize)
}

func TestFinishAssignsPlacements(t *testing.T) {
	repo := &fakeRepo{
		tournament: openTournament(),
		participants: []*game.Participant{
			{ID: 1, TournamentID: 1, UserID: 7, Score: 40},
			{ID: 2, TournamentID: 1, UserID: 8, Score: 25},
			{ID: 3, TournamentID: 1, UserID: 9, Score: 10},
		},
	}
	svc := newTestService(repo, &fakeMatches{}, &fakePlayers{})

	err := svc.Finish(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, repo.markFinished)
	assert.Len(t, repo.placements, 3)

	assert.Equal(t, Placement{ParticipantID: 1, Place: 1, Prize: strPtr("gold")}, repo.placements[0])
	assert.Equal(t, Placement{ParticipantID: 2, Place: 2, Prize: strPtr("silver")}, repo.placements[1])
	assert.Equal(t, int64(3), repo.placements[2].ParticipantID)
	assert.Nil(t, repo.placements[2].Prize) // no slot for third place
}

func TestFinishAlreadyFinished(t *testing.T) {
	tr := openTournament()
	finished := testTime.Add(-time.Hour)
	tr.FinishedAt = &finished
	svc := newTestService(&fakeRepo{tournament: tr}, &fakeMatches{}, &fakePlayers{})

	err := svc.Finish(context.Background(), 1)
	assert.ErrorIs(t, err, game.ErrTournamentFinished)
}

func TestFinishLostRace(t *testing.T) {
	repo := &fakeRepo{tournament: openTournament(), finishLost: true}
	svc := newTestService(repo, &fakeMatches{}, &fakePlayers{})

	err := svc.Finish(context.Background(), 1)
	assert.ErrorIs(t, err, game.ErrTournamentFinished)
	assert.Empty(t, repo.placements)
}

func TestExpireOverdue(t *testing.T) {
	repo := &fakeRepo{tournament: openTournament(), overdue: []int64{1}}
	svc := newTestService(repo, &fakeMatches{}, &fakePlayers{})

	svc.ExpireOverdue(context.Background())
	assert.True(t, repo.markFinished)
	assert.NotNil(t, repo.tournament.FinishedAt)
}

func strPtr(s string) *string { return &s }
