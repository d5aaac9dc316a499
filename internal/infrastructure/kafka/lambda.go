package kafka

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/aws/aws-lambda-go/events"
)

// FromLambdaRecord converts a record delivered by an MSK or self-managed
// Kafka event source mapping. Lambda base64-encodes keys and values.
func FromLambdaRecord(record events.KafkaRecord) (Message, error) {
	value, err := base64.StdEncoding.DecodeString(record.Value)
	if err != nil {
		return Message{}, fmt.Errorf("decode value at offset %d: %w", record.Offset, err)
	}
	key, err := base64.StdEncoding.DecodeString(record.Key)
	if err != nil {
		return Message{}, fmt.Errorf("decode key at offset %d: %w", record.Offset, err)
	}

	m := Message{Key: key, Value: value}
	for _, header := range record.Headers {
		if v, ok := header[HeaderEvent]; ok {
			m.Event = string(v)
		}
	}
	return m, nil
}

// BatchFromLambdaEvent flattens every partition of the event in partition
// and offset order. Records that cannot be decoded are returned as errors.
func BatchFromLambdaEvent(event events.KafkaEvent) ([]Message, []error) {
	partitions := make([]string, 0, len(event.Records))
	for p := range event.Records {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	var (
		messages []Message
		errs     []error
	)
	for _, p := range partitions {
		for _, record := range event.Records[p] {
			m, err := FromLambdaRecord(record)
			if err != nil {
				errs = append(errs, fmt.Errorf("partition %s: %w", p, err))
				continue
			}
			messages = append(messages, m)
		}
	}
	return messages, errs
}
