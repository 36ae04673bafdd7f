package generator

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/flagquiz/flag-arena/internal/catalog"
	"github.com/flagquiz/flag-arena/internal/game"
)

// Difficulty band boundaries over the derived [0,1] difficulty.
const (
	easyMax   = 0.33
	mediumMax = 0.66
)

const incorrectOptions = game.OptionsPerQuestion - 1

// Pool supplies eligible flags for a request.
type Pool interface {
	ListEligible(ctx context.Context, f catalog.Filter) ([]game.FlagItem, error)
}

// Request describes one match's question set.
type Request struct {
	NumQuestions int
	Category     string
	Tags         []string
	GameMode     string
}

// Generator builds fixed, shuffled question sequences stratified by the
// catalog's difficulty statistics.
type Generator struct {
	pool Pool

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a generator. The rand source is injected so tests can pin it;
// nil means a time-seeded source.
func New(pool Pool, rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{pool: pool, rnd: rnd}
}

// Build returns exactly req.NumQuestions questions, each with a full option
// set, or ErrInsufficientPool / ErrInsufficientOptions when the filtered
// catalog cannot satisfy the request. Question order and per-question option
// order are both shuffled; the result is fixed for the lifetime of the match.
func (g *Generator) Build(ctx context.Context, req Request) ([]game.Question, error) {
	eligible, err := g.pool.ListEligible(ctx, catalog.Filter{
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		return nil, err
	}

	if len(eligible) < req.NumQuestions || len(eligible) < game.OptionsPerQuestion {
		return nil, game.ErrInsufficientPool
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	selected := g.stratifiedSample(eligible, req.NumQuestions)
	g.shuffleFlags(selected)

	questions := make([]game.Question, 0, len(selected))
	for _, flag := range selected {
		options, err := g.buildOptions(flag, eligible)
		if err != nil {
			return nil, err
		}
		questions = append(questions, game.Question{
			FlagID:     flag.ID,
			Image:      flag.Image,
			Options:    options,
			Answer:     flag.Name,
			Mode:       req.GameMode,
			Difficulty: flag.Difficulty,
		})
	}
	return questions, nil
}

// stratifiedSample partitions the pool into easy/medium/hard bands, samples
// each band's target count without replacement, and backfills band shortfalls
// from the rest of the pool.
func (g *Generator) stratifiedSample(pool []game.FlagItem, n int) []game.FlagItem {
	var easy, medium, hard []game.FlagItem
	for _, f := range pool {
		switch {
		case f.Difficulty <= easyMax:
			easy = append(easy, f)
		case f.Difficulty <= mediumMax:
			medium = append(medium, f)
		default:
			hard = append(hard, f)
		}
	}

	easyTarget := int(math.Ceil(float64(n) * 0.33))
	mediumTarget := int(math.Ceil(float64(n) * 0.33))
	hardTarget := n - easyTarget - mediumTarget

	picked := make([]game.FlagItem, 0, n)
	taken := make(map[int64]bool, n)

	for _, band := range []struct {
		items  []game.FlagItem
		target int
	}{
		{easy, easyTarget},
		{medium, mediumTarget},
		{hard, hardTarget},
	} {
		picked = append(picked, g.sample(band.items, band.target, taken)...)
	}

	if shortfall := n - len(picked); shortfall > 0 {
		picked = append(picked, g.sample(pool, shortfall, taken)...)
	}
	// Ceil rounding of the band targets can overshoot at small n.
	if len(picked) > n {
		picked = picked[:n]
	}
	return picked
}

// sample draws up to n items that have not been taken yet, marking them taken.
func (g *Generator) sample(items []game.FlagItem, n int, taken map[int64]bool) []game.FlagItem {
	if n <= 0 {
		return nil
	}
	candidates := make([]game.FlagItem, 0, len(items))
	for _, f := range items {
		if !taken[f.ID] {
			candidates = append(candidates, f)
		}
	}
	g.shuffleFlags(candidates)
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	for _, f := range candidates {
		taken[f.ID] = true
	}
	return candidates
}

// buildOptions draws six distinct incorrect names from the pool and mixes in
// the correct one.
func (g *Generator) buildOptions(flag game.FlagItem, pool []game.FlagItem) ([]string, error) {
	seen := map[string]bool{flag.Name: true}
	candidates := make([]string, 0, len(pool))
	for _, f := range pool {
		if f.ID == flag.ID || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		candidates = append(candidates, f.Name)
	}
	if len(candidates) < incorrectOptions {
		return nil, game.ErrInsufficientOptions
	}

	g.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	options := append(candidates[:incorrectOptions:incorrectOptions], flag.Name)
	g.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options, nil
}

func (g *Generator) shuffleFlags(items []game.FlagItem) {
	g.rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
