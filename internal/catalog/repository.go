package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flagquiz/flag-arena/internal/db"
	"github.com/flagquiz/flag-arena/internal/game"
)

// Filter narrows the eligible pool. Zero values mean "no restriction";
// the frenzy pseudo-category also selects everything.
type Filter struct {
	Category string
	Tags     []string
}

// Repository contains DB helpers for the flag catalog.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a catalog repository over a pool or transaction.
func NewRepository(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// ListEligible returns flags matching the filter, statistics included.
func (r *Repository) ListEligible(ctx context.Context, f Filter) ([]game.FlagItem, error) {
	query := `
		SELECT id, name, image, category, tags, times_shown, times_correct, difficulty
		FROM flags
		WHERE ($1 = '' OR category = $1)
		  AND (cardinality($2::text[]) = 0 OR tags && $2::text[])
		ORDER BY id`

	category := f.Category
	if category == game.CategoryFrenzy {
		category = ""
	}
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}

	rows, err := r.db.Query(ctx, query, category, tags)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	var items []game.FlagItem
	for rows.Next() {
		var item game.FlagItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Image, &item.Category, &item.Tags,
			&item.TimesShown, &item.TimesCorrect, &item.Difficulty,
		); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RecordAnswer applies the shown/correct counter increment and recomputes the
// derived difficulty in the same statement, so concurrent matches touching the
// same flag never lose updates.
func (r *Repository) RecordAnswer(ctx context.Context, flagID int64, correct bool) error {
	delta := 0
	if correct {
		delta = 1
	}
	query := `
		UPDATE flags
		SET times_shown   = times_shown + 1,
		    times_correct = times_correct + $2,
		    difficulty    = 1 - (times_correct + $2)::double precision / (times_shown + 1)
		WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, flagID, delta); err != nil {
		return fmt.Errorf("record answer for flag %d: %w", flagID, err)
	}
	return nil
}

// ListAliases loads the full alias table (lowercased key -> canonical name).
// It is read once at startup; the resulting table is immutable.
func (r *Repository) ListAliases(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT alias, canonical FROM flag_aliases`)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases[alias] = canonical
	}
	return aliases, rows.Err()
}
