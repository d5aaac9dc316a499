package kafka

import (
	"encoding/base64"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestFromLambdaRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  events.KafkaRecord
		want    Message
		wantErr bool
	}{
		{
			name:   "value and key",
			record: events.KafkaRecord{Key: b64("order-7"), Value: b64(`{"event":"paymentUpdate"}`)},
			want:   Message{Key: []byte("order-7"), Value: []byte(`{"event":"paymentUpdate"}`)},
		},
		{
			name:    "value is not base64",
			record:  events.KafkaRecord{Value: "%%%"},
			wantErr: true,
		},
		{
			name:    "key is not base64",
			record:  events.KafkaRecord{Key: "%%%", Value: b64("{}")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromLambdaRecord(tt.record)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Key, got.Key)
			assert.Equal(t, tt.want.Value, got.Value)
		})
	}
}

func TestBatchFromLambdaEvent(t *testing.T) {
	event := events.KafkaEvent{
		Records: map[string][]events.KafkaRecord{
			"ec-notifications-1": {
				{Offset: 3, Value: b64(`{"n":3}`)},
			},
			"ec-notifications-0": {
				{Offset: 1, Value: b64(`{"n":1}`)},
				{Offset: 2, Value: "not base64!"},
			},
		},
	}

	messages, errs := BatchFromLambdaEvent(event)

	require.Len(t, messages, 2)
	assert.Equal(t, `{"n":1}`, string(messages[0].Value))
	assert.Equal(t, `{"n":3}`, string(messages[1].Value))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "ec-notifications-0")
}
