package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAliasSource struct {
	aliases map[string]string
	err     error
	calls   int
}

func (s *stubAliasSource) ListAliases(ctx context.Context) (map[string]string, error) {
	s.calls++
	return s.aliases, s.err
}

func newCacheClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLoadTableFromSource(t *testing.T) {
	mr, client := newCacheClient(t)
	source := &stubAliasSource{aliases: map[string]string{"holland": "netherlands"}}

	table, err := LoadTable(context.Background(), client, source)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, source.calls)

	// the loaded table is cached for the next boot
	assert.True(t, mr.Exists("aliases:v1"))
	table, err = LoadTable(context.Background(), client, source)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, source.calls)
}

func TestLoadTableCorruptCache(t *testing.T) {
	mr, client := newCacheClient(t)
	require.NoError(t, mr.Set("aliases:v1", "not json"))
	source := &stubAliasSource{aliases: map[string]string{"holland": "netherlands"}}

	table, err := LoadTable(context.Background(), client, source)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, source.calls)
}

func TestLoadTableSourceError(t *testing.T) {
	_, client := newCacheClient(t)
	source := &stubAliasSource{err: errors.New("db down")}

	_, err := LoadTable(context.Background(), client, source)
	assert.Error(t, err)
}

func TestLoadTableNilClient(t *testing.T) {
	source := &stubAliasSource{aliases: map[string]string{"holland": "netherlands"}}

	table, err := LoadTable(context.Background(), nil, source)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}
