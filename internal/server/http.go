package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/auth"
	"github.com/flagquiz/flag-arena/internal/config"
	"github.com/flagquiz/flag-arena/internal/logging"
	"github.com/flagquiz/flag-arena/internal/match"
	"github.com/flagquiz/flag-arena/internal/player"
	"github.com/flagquiz/flag-arena/internal/tournament"
)

// NewHTTPServer wires all routes for the API service.
func NewHTTPServer(
	cfg *config.App,
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	tokens *auth.Manager,
	matchHandlers *match.HTTPHandlers,
	playerHandlers *player.HTTPHandlers,
	tournamentHandlers *tournament.HTTPHandlers,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Match endpoints
	mux.HandleFunc("POST /v1/matches/start", matchHandlers.Start)
	mux.HandleFunc("GET /v1/matches/active", matchHandlers.Active)
	mux.HandleFunc("POST /v1/matches/{id}/answer", matchHandlers.Answer)
	mux.HandleFunc("POST /v1/matches/{id}/submit", matchHandlers.Submit)
	mux.HandleFunc("GET /v1/matches/{id}/summary", matchHandlers.Summary)

	// Player endpoints
	mux.HandleFunc("GET /v1/players/me", playerHandlers.Me)

	// Tournament endpoints
	mux.HandleFunc("GET /v1/tournaments/today", tournamentHandlers.Today)
	mux.HandleFunc("POST /v1/tournaments/{id}/participate", tournamentHandlers.Participate)
	mux.HandleFunc("POST /v1/tournaments/{id}/start", tournamentHandlers.StartMatch)
	mux.HandleFunc("GET /v1/tournaments/{id}/standings", tournamentHandlers.Standings)
	mux.HandleFunc("GET /ws/tournaments/{id}/standings", tournamentHandlers.StandingsFeed)

	handler := auth.Middleware(tokens, logger)(mux)
	handler = requestContext(logger)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return redisClient.Ping(ctx).Err()
}

// requestContext injects the application logger into every request context.
func requestContext(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.IntoContext(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
