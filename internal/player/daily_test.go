package player

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoard(t *testing.T) *DailyBoard {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDailyBoard(client)
}

func TestDailyBoard(t *testing.T) {
	board := newTestBoard(t)
	ctx := context.Background()

	require.NoError(t, board.Record(ctx, 7, 14))
	require.NoError(t, board.Record(ctx, 8, 25))
	require.NoError(t, board.Record(ctx, 7, 10)) // accumulates
	require.NoError(t, board.Record(ctx, 9, 0))  // zero scores are skipped

	top, err := board.Top(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []DailyEntry{
		{OwnerID: 8, Score: 25},
		{OwnerID: 7, Score: 24},
	}, top)

	require.NoError(t, board.Reset(ctx))
	top, err = board.Top(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestDailyBoardTopLimit(t *testing.T) {
	board := newTestBoard(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, board.Record(ctx, i, int(i*10)))
	}

	top, err := board.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(5), top[0].OwnerID)
	assert.Equal(t, int64(3), top[2].OwnerID)
}

func TestDailyBoardNilClient(t *testing.T) {
	board := NewDailyBoard(nil)
	ctx := context.Background()

	assert.NoError(t, board.Record(ctx, 7, 10))
	top, err := board.Top(ctx, 3)
	assert.NoError(t, err)
	assert.Nil(t, top)
	assert.NoError(t, board.Reset(ctx))
}
