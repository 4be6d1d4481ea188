package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPubSub_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL не задан")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	require.NoError(t, NewRedisSubscriber(client).Subscribe(ctx, StreamEscrow, func(e Event) { received <- e }))

	event := testEvent(TypeFundsDeposited)
	require.NoError(t, NewRedisPublisher(client).Publish(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, event.Type, got.Type)
		assert.Equal(t, []string{"alice", "bob"}, got.Parties)
	case <-time.After(3 * time.Second):
		t.Fatal("event not received")
	}
}
