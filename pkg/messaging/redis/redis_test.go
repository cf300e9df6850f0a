package redis

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "://nope"}, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestPublishRejectsUnencodableMessage(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	broker := newBroker(client, zerolog.Nop())
	t.Cleanup(func() { broker.Close() })

	err := broker.Publish(context.Background(), "appointments", map[string]interface{}{"bad": make(chan int)})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to marshal message")
}
