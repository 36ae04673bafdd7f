package player

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const dailyKey = "daily:casual"

// DailyBoard keeps the day's casual scores in a Redis sorted set so the
// nightly bonus job can pick the top players without a table scan.
type DailyBoard struct {
	redis *redis.Client
}

// DailyEntry is one row of the daily board.
type DailyEntry struct {
	OwnerID int64
	Score   int
}

func NewDailyBoard(client *redis.Client) *DailyBoard {
	return &DailyBoard{redis: client}
}

// Record adds a finished match's score to the owner's daily total.
func (b *DailyBoard) Record(ctx context.Context, ownerID int64, score int) error {
	if b.redis == nil || score == 0 {
		return nil
	}
	member := strconv.FormatInt(ownerID, 10)
	if err := b.redis.ZIncrBy(ctx, dailyKey, float64(score), member).Err(); err != nil {
		return fmt.Errorf("record daily score: %w", err)
	}
	return nil
}

// Top returns the day's best owners, highest score first.
func (b *DailyBoard) Top(ctx context.Context, n int) ([]DailyEntry, error) {
	if b.redis == nil {
		return nil, nil
	}
	rows, err := b.redis.ZRevRangeWithScores(ctx, dailyKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read daily board: %w", err)
	}

	entries := make([]DailyEntry, 0, len(rows))
	for _, row := range rows {
		member, ok := row.Member.(string)
		if !ok {
			continue
		}
		ownerID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, DailyEntry{OwnerID: ownerID, Score: int(row.Score)})
	}
	return entries, nil
}

// Reset clears the board for the next day.
func (b *DailyBoard) Reset(ctx context.Context) error {
	if b.redis == nil {
		return nil
	}
	if err := b.redis.Del(ctx, dailyKey).Err(); err != nil {
		return fmt.Errorf("reset daily board: %w", err)
	}
	return nil
}
