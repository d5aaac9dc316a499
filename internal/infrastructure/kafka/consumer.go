package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Message is a consumed record with its event header resolved
type Message struct {
	Key   []byte
	Value []byte
	Event string
}

type MessageHandler func(ctx context.Context, msg Message) error

type Consumer struct {
	reader *kafka.Reader
	log    zerolog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, log: log}
}

// Consume hands every message to handler and commits it afterwards. Handler
// errors are logged and the message is still committed; notifications are
// best effort.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("error reading message")
			continue
		}

		if err := handler(ctx, toMessage(msg)); err != nil {
			c.log.Error().Err(err).
				Str("key", string(msg.Key)).
				Int64("offset", msg.Offset).
				Msg("error handling message")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error committing message")
		}
	}
}

func toMessage(msg kafka.Message) Message {
	m := Message{Key: msg.Key, Value: msg.Value}
	for _, h := range msg.Headers {
		if h.Key == HeaderEvent {
			m.Event = string(h.Value)
		}
	}
	return m
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
