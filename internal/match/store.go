package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flagquiz/flag-arena/internal/catalog"
	"github.com/flagquiz/flag-arena/internal/game"
	"github.com/flagquiz/flag-arena/internal/player"
)

// CasualOutcome is the two-phase-commit verdict applied to the owner record
// during finalization: credit the score and either keep or consume the try.
type CasualOutcome struct {
	OwnerID      int64
	ScoreDelta   int
	DecrementTry bool
}

// ParticipantOutcome is the same verdict for a tournament match, applied to
// the participant row instead of the owner profile.
type ParticipantOutcome struct {
	ParticipantID int64
	ScoreDelta    int
	DecrementTry  bool
}

// Finalization describes the terminal transition. Exactly one of Casual or
// Participant is set, routing the score to the owner profile or the
// tournament participant.
type Finalization struct {
	CompletedAt time.Time
	Casual      *CasualOutcome
	Participant *ParticipantOutcome
}

// AnswerMutation bundles everything one answer changes. The store applies it
// as a single atomic unit: the match is never left with an advanced index but
// an unpersisted answer, score, or flag statistic.
type AnswerMutation struct {
	Record      game.AnswerRecord
	UpdateStats bool
	Finalize    *Finalization
}

// Store is the persistence surface the match service drives.
type Store interface {
	Create(ctx context.Context, m *game.Match) error
	ActiveByOwner(ctx context.Context, ownerID int64) (*game.Match, error)
	ByIDForOwner(ctx context.Context, id uuid.UUID, ownerID int64) (*game.Match, error)
	ApplyAnswer(ctx context.Context, m *game.Match, mut AnswerMutation) error
	Finalize(ctx context.Context, m *game.Match, fin Finalization) error
	Answers(ctx context.Context, matchID uuid.UUID) ([]game.AnswerRecord, error)
}

const uniqueViolation = "23505"

const matchColumns = `
	id, owner_id, match_type, num_questions, questions, current_idx,
	current_started_at, question_seconds, base_score, multiplier, score,
	gamemode, category, tags, created_at, completed_at, tournament_id, participant_id`

// PGStore persists matches in Postgres.
type PGStore struct {
	pool    *pgxpool.Pool
	flags   *catalog.Repository
	players *player.Repository
}

var _ Store = (*PGStore)(nil)

// NewPGStore creates the Postgres-backed match store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{
		pool:    pool,
		flags:   catalog.NewRepository(pool),
		players: player.NewRepository(pool),
	}
}

// Create inserts a match. A partial unique index on (owner_id) for
// non-completed rows makes the first concurrent writer win; the loser gets
// ErrActiveMatchExists.
func (s *PGStore) Create(ctx context.Context, m *game.Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.OwnerID, m.Type, m.NumQuestions, m.Questions, m.CurrentIdx,
		m.CurrentStartedAt, m.QuestionSeconds, m.BaseScore, m.Multiplier, m.Score,
		m.GameMode, m.Category, m.Tags, m.CreatedAt, m.CompletedAt,
		m.TournamentID, m.ParticipantID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return game.ErrActiveMatchExists
		}
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// ActiveByOwner returns the owner's non-completed match, or nil.
func (s *PGStore) ActiveByOwner(ctx context.Context, ownerID int64) (*game.Match, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE owner_id = $1 AND completed_at IS NULL`, ownerID)

	m, err := scanMatch(row)
	if errors.Is(err, game.ErrMatchNotFound) {
		return nil, nil
	}
	return m, err
}

// ByIDForOwner loads a match, treating foreign matches as unknown.
func (s *PGStore) ByIDForOwner(ctx context.Context, id uuid.UUID, ownerID int64) (*game.Match, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return scanMatch(row)
}

func scanMatch(row pgx.Row) (*game.Match, error) {
	var m game.Match
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Type, &m.NumQuestions, &m.Questions, &m.CurrentIdx,
		&m.CurrentStartedAt, &m.QuestionSeconds, &m.BaseScore, &m.Multiplier, &m.Score,
		&m.GameMode, &m.Category, &m.Tags, &m.CreatedAt, &m.CompletedAt,
		&m.TournamentID, &m.ParticipantID,
	)
	if err == pgx.ErrNoRows {
		return nil, game.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan match: %w", err)
	}
	return &m, nil
}

// ApplyAnswer runs the whole per-answer mutation in one transaction.
func (s *PGStore) ApplyAnswer(ctx context.Context, m *game.Match, mut AnswerMutation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := mut.Record
	_, err = tx.Exec(ctx, `
		INSERT INTO match_answers (match_id, question_idx, flag_id, user_answer, is_correct, points, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.MatchID, rec.QuestionIdx, rec.FlagID, rec.Submitted, rec.IsCorrect, rec.Points, rec.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}

	if err := s.saveProgress(ctx, tx, m); err != nil {
		return err
	}

	if mut.UpdateStats {
		if err := s.flags.WithTx(tx).RecordAnswer(ctx, rec.FlagID, rec.IsCorrect); err != nil {
			return err
		}
	}

	if mut.Finalize != nil {
		if err := s.applyFinalization(ctx, tx, *mut.Finalize); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Finalize completes a match without inserting a new answer (forced early
// submission).
func (s *PGStore) Finalize(ctx context.Context, m *game.Match, fin Finalization) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.saveProgress(ctx, tx, m); err != nil {
		return err
	}
	if err := s.applyFinalization(ctx, tx, fin); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) saveProgress(ctx context.Context, tx pgx.Tx, m *game.Match) error {
	_, err := tx.Exec(ctx, `
		UPDATE matches
		SET current_idx = $2, current_started_at = $3, base_score = $4,
		    score = $5, completed_at = $6
		WHERE id = $1`,
		m.ID, m.CurrentIdx, m.CurrentStartedAt, m.BaseScore, m.Score, m.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

func (s *PGStore) applyFinalization(ctx context.Context, tx pgx.Tx, fin Finalization) error {
	switch {
	case fin.Participant != nil:
		out := fin.Participant
		dec := 0
		if out.DecrementTry {
			dec = 1
		}
		_, err := tx.Exec(ctx, `
			UPDATE tournament_participants
			SET score = score + $2, tries_left = GREATEST(tries_left - $3, 0)
			WHERE id = $1`,
			out.ParticipantID, out.ScoreDelta, dec)
		if err != nil {
			return fmt.Errorf("apply participant result: %w", err)
		}
	case fin.Casual != nil:
		out := fin.Casual
		if err := s.players.WithTx(tx).ApplyCasualResult(ctx, out.OwnerID, out.ScoreDelta, out.DecrementTry); err != nil {
			return err
		}
	}
	return nil
}

// Answers returns the match's answer records ordered by question index.
func (s *PGStore) Answers(ctx context.Context, matchID uuid.UUID) ([]game.AnswerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, question_idx, flag_id, user_answer, is_correct, points, answered_at
		FROM match_answers
		WHERE match_id = $1
		ORDER BY question_idx`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var records []game.AnswerRecord
	for rows.Next() {
		var rec game.AnswerRecord
		if err := rows.Scan(
			&rec.MatchID, &rec.QuestionIdx, &rec.FlagID, &rec.Submitted,
			&rec.IsCorrect, &rec.Points, &rec.AnsweredAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
