package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var errNoBroker = errors.New("redis client not configured")

// Publisher sends change notifications over Redis pub/sub. Delivery is at
// most once; subscribers that are offline miss the message.
type Publisher struct {
	redisClient *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redisClient: redisClient}
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if p.redisClient == nil {
		return errNoBroker
	}
	if err := p.redisClient.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}
