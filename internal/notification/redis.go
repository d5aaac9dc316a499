package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSink publishes notifications on a pub/sub channel shared by every
// API replica
type RedisSink struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	log     zerolog.Logger
}

func NewRedisSink(client *redis.Client, channel string, timeout time.Duration, log zerolog.Logger) *RedisSink {
	return &RedisSink{client: client, channel: channel, timeout: timeout, log: log}
}

func (s *RedisSink) Notify(ctx context.Context, event string, payload any) {
	msg, err := NewMessage(event, payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("failed to encode notification")
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("failed to encode notification")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.client.Publish(pubCtx, s.channel, data).Err(); err != nil {
		s.log.Error().Err(err).Str("event", event).Str("channel", s.channel).Msg("failed to publish notification")
	}
}

// RelayRedis forwards every message of channel into the local hub until ctx
// is done. go-redis reconnects the subscription on its own.
func RelayRedis(ctx context.Context, client *redis.Client, channel string, hub *Hub, log zerolog.Logger) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("relaying notifications from redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Warn().Err(err).Msg("ignoring malformed notification")
				continue
			}
			hub.Broadcast(msg)
		}
	}
}
