package tournament

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/pkg/http/ws"
)

// Broadcaster listens for Redis Pub/Sub standings updates and forwards them
// to the websocket subscribers of the affected tournament.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered standings broadcaster.
func NewBroadcaster(redisClient *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "standings:updates"
	}
	return &Broadcaster{
		redis:   redisClient,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "standings_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel and blocks until the context is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt ws.StandingsUpdatePayload
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode standings payload")
		return
	}

	if b.hub.SubscriberCount(evt.TournamentID) == 0 {
		return
	}

	msgType := ws.TypeStandingsUpdate
	if evt.Finished {
		msgType = ws.TypeTournamentFinish
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal standings payload")
		return
	}

	if err := b.hub.BroadcastToFeed(evt.TournamentID, ws.Message{Type: msgType, Payload: raw}); err != nil {
		b.logger.Warn().Err(err).
			Int64("tournament_id", evt.TournamentID).
			Msg("failed to broadcast standings update")
	}
}
