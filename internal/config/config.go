package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"flag-arena"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres  Postgres
	Redis     Redis
	Security  Security
	Game      Game
	Scheduler Scheduler
	Standings Standings
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds lock + aggregate + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing owner tokens.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

// Game groups gameplay tunables. Every numeric threshold the match engine
// applies lives here rather than as a literal in code.
type Game struct {
	QuestionSeconds int           `env:"QUESTION_SECONDS" envDefault:"15"`
	FuzzyThreshold  int           `env:"FUZZY_MATCH_THRESHOLD" envDefault:"80"`
	DailyTries      int           `env:"DAILY_TRIES" envDefault:"3"`
	StartLockTTL    time.Duration `env:"MATCH_START_LOCK_TTL" envDefault:"10s"`
	SubmitLockTTL   time.Duration `env:"MATCH_SUBMIT_LOCK_TTL" envDefault:"30s"`
}

// Scheduler configures the daily reset and tournament sweep jobs.
type Scheduler struct {
	DailyResetEnabled bool          `env:"DAILY_RESET_ENABLED" envDefault:"true"`
	SweepInterval     time.Duration `env:"TOURNAMENT_SWEEP_INTERVAL" envDefault:"1m"`
}

// Standings governs the live tournament standings feed.
type Standings struct {
	Channel string `env:"STANDINGS_CHANNEL" envDefault:"standings:updates"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
