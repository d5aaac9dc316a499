package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Publisher is the subset of kafka.Producer the sink needs
type Publisher interface {
	Publish(ctx context.Context, key, event string, value any) error
}

// KafkaSink publishes notifications to the notifications topic for the
// notifier service
type KafkaSink struct {
	pub     Publisher
	timeout time.Duration
	log     zerolog.Logger
}

func NewKafkaSink(pub Publisher, timeout time.Duration, log zerolog.Logger) *KafkaSink {
	return &KafkaSink{pub: pub, timeout: timeout, log: log}
}

func (s *KafkaSink) Notify(ctx context.Context, event string, payload any) {
	msg, err := NewMessage(event, payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("failed to encode notification")
		return
	}

	// The request context may already be cancelled once the response is written.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	key := partitionKey(event, payload)
	if err := s.pub.Publish(pubCtx, key, event, msg); err != nil {
		s.log.Error().Err(err).Str("event", event).Str("key", key).Msg("failed to publish notification")
	}
}
