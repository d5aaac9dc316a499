package notification

import (
	"context"
	"testing"
	"time"

	"github.com/example/ec-order-payments/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	addr, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisSink_RelaysIntoHub(t *testing.T) {
	client := newTestRedis(t)
	hub := NewHub(4, zerolog.Nop())
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relayDone := make(chan error, 1)
	go func() { relayDone <- RelayRedis(ctx, client, "notifications-test", hub, zerolog.Nop()) }()

	sink := NewRedisSink(client, "notifications-test", time.Second, zerolog.Nop())
	// The subscription is asynchronous; publish until the relay picks it up.
	require.Eventually(t, func() bool {
		sink.Notify(context.Background(), EventRefundUpdate, RefundUpdate{RefundID: 4, Status: model.RefundSucceeded})
		select {
		case msg := <-ch:
			assert.Equal(t, EventRefundUpdate, msg.Event)
			assert.JSONEq(t, `{"refundId":4,"status":"SUCCEEDED"}`, string(msg.Payload))
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-relayDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}
