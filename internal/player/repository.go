package player

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flagquiz/flag-arena/internal/db"
	"github.com/flagquiz/flag-arena/internal/game"
)

// Repository contains DB helpers for match owners.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a player repository over a pool or transaction.
func NewRepository(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// Get fetches one player.
func (r *Repository) Get(ctx context.Context, id int64) (*game.Player, error) {
	query := `
		SELECT id, name, tries_left, casual_score, today_casual_score, casual_games_played, created_at
		FROM players WHERE id = $1`

	var p game.Player
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.TriesLeft, &p.CasualScore,
		&p.TodayCasualScore, &p.CasualGamesPlayed, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, game.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return &p, nil
}

// Ensure creates the player row on first contact and returns it. Identity
// comes from the token issuer, so there is no separate registration flow.
func (r *Repository) Ensure(ctx context.Context, id int64, name string) (*game.Player, error) {
	query := `
		INSERT INTO players (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, tries_left, casual_score, today_casual_score, casual_games_played, created_at`

	var p game.Player
	err := r.db.QueryRow(ctx, query, id, name).Scan(
		&p.ID, &p.Name, &p.TriesLeft, &p.CasualScore,
		&p.TodayCasualScore, &p.CasualGamesPlayed, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure player %d: %w", id, err)
	}
	return &p, nil
}

// RecordGameStarted bumps the casual games counter.
func (r *Repository) RecordGameStarted(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE players SET casual_games_played = casual_games_played + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record game started: %w", err)
	}
	return nil
}

// ApplyCasualResult credits the final score to the casual and daily aggregates
// and applies the attempt verdict in the same statement. Called inside the
// match finalization transaction so a retried finalization cannot
// double-adjust the try balance.
func (r *Repository) ApplyCasualResult(ctx context.Context, ownerID int64, scoreDelta int, decrementTry bool) error {
	dec := 0
	if decrementTry {
		dec = 1
	}
	query := `
		UPDATE players
		SET casual_score       = casual_score + $2,
		    today_casual_score = today_casual_score + $2,
		    tries_left         = tries_left - $3
		WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, ownerID, scoreDelta, dec); err != nil {
		return fmt.Errorf("apply casual result: %w", err)
	}
	return nil
}

// TopToday returns the day's leaders by daily casual score.
func (r *Repository) TopToday(ctx context.Context, limit int) ([]game.Player, error) {
	query := `
		SELECT id, name, tries_left, casual_score, today_casual_score, casual_games_played, created_at
		FROM players
		WHERE today_casual_score > 0
		ORDER BY today_casual_score DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query daily leaders: %w", err)
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(
			&p.ID, &p.Name, &p.TriesLeft, &p.CasualScore,
			&p.TodayCasualScore, &p.CasualGamesPlayed, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AddTries awards bonus tries to one player.
func (r *Repository) AddTries(ctx context.Context, id int64, tries int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE players SET tries_left = tries_left + $2 WHERE id = $1`, id, tries)
	if err != nil {
		return fmt.Errorf("add tries: %w", err)
	}
	return nil
}

// ResetDaily zeroes the daily aggregate and tops every player back up to the
// daily baseline (players holding more keep what they have).
func (r *Repository) ResetDaily(ctx context.Context, baselineTries int) error {
	query := `
		UPDATE players
		SET today_casual_score = 0,
		    tries_left         = GREATEST(tries_left, $1)`

	if _, err := r.db.Exec(ctx, query, baselineTries); err != nil {
		return fmt.Errorf("reset daily: %w", err)
	}
	return nil
}
