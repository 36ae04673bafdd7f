package answer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flagquiz/flag-arena/internal/logging"
)

const (
	aliasCacheKey = "aliases:v1"
	aliasCacheTTL = time.Hour
)

// AliasSource loads canonical name aliases from persistent storage.
type AliasSource interface {
	ListAliases(ctx context.Context) (map[string]string, error)
}

// LoadTable builds the alias table, preferring the Redis cache over a full
// table read. Cache failures fall through to the source.
func LoadTable(ctx context.Context, client *redis.Client, source AliasSource) (*Table, error) {
	logger := logging.FromContext(ctx)

	if client != nil {
		raw, err := client.Get(ctx, aliasCacheKey).Bytes()
		if err == nil {
			var aliases map[string]string
			if err := json.Unmarshal(raw, &aliases); err == nil {
				return NewTable(aliases), nil
			}
			logger.Warn().Msg("corrupt alias cache entry, reloading")
		} else if err != redis.Nil {
			logger.Warn().Err(err).Msg("alias cache read failed")
		}
	}

	aliases, err := source.ListAliases(ctx)
	if err != nil {
		return nil, err
	}

	if client != nil {
		if raw, err := json.Marshal(aliases); err == nil {
			if err := client.Set(ctx, aliasCacheKey, raw, aliasCacheTTL).Err(); err != nil {
				logger.Warn().Err(err).Msg("alias cache write failed")
			}
		}
	}

	return NewTable(aliases), nil
}
