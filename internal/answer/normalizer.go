package answer

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/flagquiz/flag-arena/internal/game"
)

// Table maps lowercased aliases (transliterations, abbreviations, common
// misspellings) to canonical flag names. It is loaded once at startup and
// shared read-only across all matches.
type Table struct {
	aliases map[string]string
	keys    []string
}

// NewTable builds an immutable alias table. Keys are lowercased and trimmed.
func NewTable(aliases map[string]string) *Table {
	t := &Table{aliases: make(map[string]string, len(aliases))}
	for k, v := range aliases {
		t.aliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
	t.keys = make([]string, 0, len(t.aliases))
	for k := range t.aliases {
		t.keys = append(t.keys, k)
	}
	sort.Strings(t.keys)
	return t
}

// Len reports the number of aliases in the table.
func (t *Table) Len() int { return len(t.aliases) }

// Normalizer resolves free-text submissions to canonical guesses.
type Normalizer struct {
	table     *Table
	threshold int
}

// NewNormalizer creates a normalizer. The threshold is a fuzzywuzzy-style
// similarity score on a 0..100 scale.
func NewNormalizer(table *Table, threshold int) *Normalizer {
	return &Normalizer{table: table, threshold: threshold}
}

// IsExpirySignal reports whether the submission is the client-side timeout
// literal, which short-circuits normalization entirely.
func IsExpirySignal(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), game.ExpirySignal)
}

// Normalize trims and lowercases the submission, resolves it through the
// alias table, and falls back to approximate matching against the alias keys.
// When no key scores at or above the threshold the lowercased input itself
// becomes the guess.
func (n *Normalizer) Normalize(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", game.ErrEmptyAnswer
	}

	if canonical, ok := n.table.aliases[trimmed]; ok {
		return strings.ToLower(canonical), nil
	}

	if len(n.table.keys) > 0 {
		best, err := fuzzy.ExtractOne(trimmed, n.table.keys)
		if err == nil && best != nil && best.Score >= n.threshold {
			return strings.ToLower(n.table.aliases[best.Match]), nil
		}
	}

	return trimmed, nil
}

// Check normalizes the submission and compares it to the canonical name
// case-insensitively.
func (n *Normalizer) Check(raw, canonical string) (bool, error) {
	normalized, err := n.Normalize(raw)
	if err != nil {
		return false, err
	}
	return normalized == strings.ToLower(strings.TrimSpace(canonical)), nil
}
