package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// HeaderEvent carries the notification event name next to the JSON value
const HeaderEvent = "event"

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

// Publish writes value as JSON. Messages with the same key land on the same
// partition, so events of one order stay in order.
func (p *Producer) Publish(ctx context.Context, key, event string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: []kafka.Header{{Key: HeaderEvent, Value: []byte(event)}},
		Time:    time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
