// Package scheduler runs the recurring jobs: the midnight daily reset and
// the tournament expiry sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/player"
	"github.com/flagquiz/flag-arena/internal/tournament"
)

// Bonus tries awarded to the day's top three casual players.
var topBonusTries = []int{9, 6, 3}

// Config controls which jobs run and how often.
type Config struct {
	DailyResetEnabled bool
	DailyTries        int
	SweepInterval     time.Duration
}

// Scheduler owns the gocron instance and the job handlers.
type Scheduler struct {
	cfg         Config
	players     *player.Repository
	board       *player.DailyBoard
	tournaments *tournament.Service
	sched       gocron.Scheduler
	logger      zerolog.Logger
}

func New(cfg Config, players *player.Repository, board *player.DailyBoard, tournaments *tournament.Service, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.DailyTries <= 0 {
		cfg.DailyTries = 3
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		cfg:         cfg,
		players:     players,
		board:       board,
		tournaments: tournaments,
		sched:       sched,
		logger:      logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start registers the jobs and begins running them.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.DailyResetEnabled {
		_, err := s.sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
			gocron.NewTask(func() { s.DailyReset(ctx) }),
		)
		if err != nil {
			return err
		}
	}

	_, err := s.sched.NewJob(
		gocron.DurationJob(s.cfg.SweepInterval),
		gocron.NewTask(func() { s.tournaments.ExpireOverdue(ctx) }),
	)
	if err != nil {
		return err
	}

	s.sched.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

// DailyReset awards bonus tries to the day's top three casual players, then
// zeroes the daily aggregates and restores the baseline try count.
func (s *Scheduler) DailyReset(ctx context.Context) {
	top, err := s.topPlayers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("load daily top players")
		return
	}

	for i, ownerID := range top {
		if i >= len(topBonusTries) {
			break
		}
		if err := s.players.AddTries(ctx, ownerID, topBonusTries[i]); err != nil {
			s.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("award bonus tries")
		}
	}

	if err := s.players.ResetDaily(ctx, s.cfg.DailyTries); err != nil {
		s.logger.Error().Err(err).Msg("reset daily aggregates")
		return
	}
	if err := s.board.Reset(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("reset daily board")
	}

	s.logger.Info().Int("winners", len(top)).Msg("daily reset complete")
}

// topPlayers reads the daily board, falling back to SQL when the board is
// empty or unavailable.
func (s *Scheduler) topPlayers(ctx context.Context) ([]int64, error) {
	entries, err := s.board.Top(ctx, len(topBonusTries))
	if err != nil {
		s.logger.Warn().Err(err).Msg("daily board unavailable, falling back to sql")
	}
	if len(entries) > 0 {
		ids := make([]int64, len(entries))
		for i, e := range entries {
			ids[i] = e.OwnerID
		}
		return ids, nil
	}

	players, err := s.players.TopToday(ctx, len(topBonusTries))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(players))
	for _, p := range players {
		if p.TodayCasualScore > 0 {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}
