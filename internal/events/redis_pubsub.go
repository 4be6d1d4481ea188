package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/escrow-ledger/internal/goroutine"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
)

type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Type, err)
	}
	return p.client.Publish(ctx, event.Stream(), data).Err()
}

type RedisSubscriber struct {
	client redis.UniversalClient
}

func NewRedisSubscriber(client redis.UniversalClient) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

// Subscribe читает канал до отмены ctx. Обработчик вызывается из одной горутины.
func (s *RedisSubscriber) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	pubsub := s.client.Subscribe(ctx, stream)
	// Дожидаемся подтверждения подписки, иначе первые события могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("events: subscribe %s: %w", stream, err)
	}
	ch := pubsub.Channel()

	goroutine.SafeGo("events.subscriber."+stream, func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Log.WithError(err).WithField("stream", stream).Error("failed to unmarshal event")
					continue
				}
				handler(event)
			}
		}
	})

	return nil
}
