package tournament

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flagquiz/flag-arena/internal/db"
	"github.com/flagquiz/flag-arena/internal/game"
)

const tournamentColumns = `
	id, name, created_at, started_at, will_finish_at, finished_at,
	participation_cost, min_participants, num_questions, gamemode, category,
	tags, difficulty_multiplier, question_seconds, tries, prize_slots`

const participantColumns = `
	id, tournament_id, user_id, score, tries_left, place, prize, joined_at`

// Repository contains DB helpers for tournaments and participants.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a tournament repository over a pool or transaction.
func NewRepository(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanTournament(row pgx.Row) (*game.Tournament, error) {
	var t game.Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.CreatedAt, &t.StartedAt, &t.WillFinishAt, &t.FinishedAt,
		&t.ParticipationCost, &t.MinParticipants, &t.NumQuestions, &t.GameMode,
		&t.Category, &t.Tags, &t.Multiplier, &t.QuestionSeconds, &t.Tries, &t.PrizeSlots,
	)
	if err == pgx.ErrNoRows {
		return nil, game.ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tournament: %w", err)
	}
	return &t, nil
}

// ByID fetches one tournament.
func (r *Repository) ByID(ctx context.Context, id int64) (*game.Tournament, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
	return scanTournament(row)
}

// Today returns the unfinished tournament created today (UTC), if any.
func (r *Repository) Today(ctx context.Context, now time.Time) (*game.Tournament, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	row := r.db.QueryRow(ctx, `
		SELECT `+tournamentColumns+`
		FROM tournaments
		WHERE created_at >= $1 AND created_at < $2 AND finished_at IS NULL
		ORDER BY created_at
		LIMIT 1`, dayStart, dayStart.Add(24*time.Hour))
	return scanTournament(row)
}

// ListOverdue returns IDs of unfinished tournaments past their scheduled end.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM tournaments WHERE finished_at IS NULL AND will_finish_at < $1`, now)
	if err != nil {
		return nil, fmt.Errorf("query overdue tournaments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkStarted stamps started_at once the participant threshold is met.
func (r *Repository) MarkStarted(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE tournaments SET started_at = $2 WHERE id = $1 AND started_at IS NULL`, id, now)
	if err != nil {
		return fmt.Errorf("mark tournament started: %w", err)
	}
	return nil
}

// CreateParticipant registers a player with the tournament's try allowance.
func (r *Repository) CreateParticipant(ctx context.Context, p *game.Participant) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, score, tries_left, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		p.TournamentID, p.UserID, p.Score, p.TriesLeft, p.JoinedAt,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return game.ErrAlreadyParticipating
		}
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// ParticipantByUser fetches a player's participation in one tournament.
func (r *Repository) ParticipantByUser(ctx context.Context, tournamentID, userID int64) (*game.Participant, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM tournament_participants
		WHERE tournament_id = $1 AND user_id = $2`, tournamentID, userID)
	return scanParticipant(row)
}

func scanParticipant(row pgx.Row) (*game.Participant, error) {
	var p game.Participant
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Score,
		&p.TriesLeft, &p.Place, &p.Prize, &p.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, game.ErrNotParticipant
	}
	if err != nil {
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	return &p, nil
}

// CountParticipants returns the number of registered participants.
func (r *Repository) CountParticipants(ctx context.Context, tournamentID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`,
		tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// Standings lists participants ranked by score, earliest joiner first on ties.
func (r *Repository) Standings(ctx context.Context, tournamentID int64) ([]game.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+participantColumns+`
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY score DESC, joined_at ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var participants []game.Participant
	for rows.Next() {
		var p game.Participant
		if err := rows.Scan(
			&p.ID, &p.TournamentID, &p.UserID, &p.Score,
			&p.TriesLeft, &p.Place, &p.Prize, &p.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// Placement carries one participant's final rank.
type Placement struct {
	ParticipantID int64
	Place         int
	Prize         *string
}

// SetPlacement writes a participant's final place and prize.
func (r *Repository) SetPlacement(ctx context.Context, pl Placement) error {
	_, err := r.db.Exec(ctx,
		`UPDATE tournament_participants SET place = $2, prize = $3 WHERE id = $1`,
		pl.ParticipantID, pl.Place, pl.Prize)
	if err != nil {
		return fmt.Errorf("set placement: %w", err)
	}
	return nil
}

// MarkFinished stamps finished_at exactly once; the boolean reports whether
// this call won the transition.
func (r *Repository) MarkFinished(ctx context.Context, id int64, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE tournaments SET finished_at = $2 WHERE id = $1 AND finished_at IS NULL`, id, now)
	if err != nil {
		return false, fmt.Errorf("mark tournament finished: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
