package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/answer"
	"github.com/flagquiz/flag-arena/internal/auth"
	"github.com/flagquiz/flag-arena/internal/catalog"
	"github.com/flagquiz/flag-arena/internal/config"
	"github.com/flagquiz/flag-arena/internal/game"
	"github.com/flagquiz/flag-arena/internal/generator"
	"github.com/flagquiz/flag-arena/internal/logging"
	"github.com/flagquiz/flag-arena/internal/match"
	"github.com/flagquiz/flag-arena/internal/match/scoring"
	"github.com/flagquiz/flag-arena/internal/player"
	"github.com/flagquiz/flag-arena/internal/scheduler"
	"github.com/flagquiz/flag-arena/internal/server"
	"github.com/flagquiz/flag-arena/internal/tournament"
	"github.com/flagquiz/flag-arena/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	broadcaster *tournament.Broadcaster
	jobs        *scheduler.Scheduler
	bgCancels   []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis, services and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be configured")
	}
	tokens := auth.NewManager(auth.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Name,
	})

	flagRepo := catalog.NewRepository(pool)
	playerRepo := player.NewRepository(pool)
	tournamentRepo := tournament.NewRepository(pool)
	dailyBoard := player.NewDailyBoard(redisClient)

	bootCtx := logging.IntoContext(ctx, logger)
	aliasTable, err := answer.LoadTable(bootCtx, redisClient, flagRepo)
	if err != nil {
		return nil, fmt.Errorf("load alias table: %w", err)
	}
	logger.Info().Int("aliases", aliasTable.Len()).Msg("alias table loaded")

	matchSvc := match.NewService(match.Deps{
		Store:           match.NewPGStore(pool),
		Players:         playerRepo,
		Builder:         generator.New(flagRepo, nil),
		Checker:         answer.NewNormalizer(aliasTable, cfg.Game.FuzzyThreshold),
		Scoring:         scoring.NewEngine(scoring.DefaultConfig()),
		Locks:           match.NewLocker(redisClient, cfg.Game.StartLockTTL, cfg.Game.SubmitLockTTL),
		QuestionSeconds: cfg.Game.QuestionSeconds,
	})

	tournamentSvc := tournament.NewService(tournamentRepo, matchSvc, playerRepo, redisClient, cfg.Standings.Channel, logger)
	matchSvc.OnFinalize(tournamentSvc.MatchFinalizeHook())
	matchSvc.OnFinalize(func(ctx context.Context, m *game.Match) {
		if m.Type != game.TypeCasual {
			return
		}
		if err := dailyBoard.Record(ctx, m.OwnerID, m.Score); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("record daily score")
		}
	})

	wsHub := ws.NewHub(logger)
	broadcaster := tournament.NewBroadcaster(redisClient, wsHub, cfg.Standings.Channel, logger)

	jobs, err := scheduler.New(scheduler.Config{
		DailyResetEnabled: cfg.Scheduler.DailyResetEnabled,
		DailyTries:        cfg.Game.DailyTries,
		SweepInterval:     cfg.Scheduler.SweepInterval,
	}, playerRepo, dailyBoard, tournamentSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	matchHandlers := match.NewHTTPHandlers(matchSvc, logger)
	playerHandlers := player.NewHTTPHandlers(playerRepo, logger)
	tournamentHandlers := tournament.NewHTTPHandlers(tournamentSvc, wsHub, logger)
	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, tokens, matchHandlers, playerHandlers, tournamentHandlers)

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		broadcaster: broadcaster,
		jobs:        jobs,
		bgCancels:   make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	if err := a.jobs.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("scheduler shutdown error")
	}
	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(logging.IntoContext(ctx, a.logger))
	a.bgCancels = append(a.bgCancels, cancel)

	go func() {
		if err := a.broadcaster.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("standings broadcaster stopped")
		}
	}()

	if err := a.jobs.Start(bgCtx); err != nil {
		a.logger.Error().Err(err).Msg("scheduler start failed")
	}
}
