package service

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// PrintConsumer subscribes to a topic and logs every message it receives.
type PrintConsumer struct {
	redisClient *redis.Client
	topic       string
	logger      *log.Logger
}

func NewPrintConsumer(redisClient *redis.Client, topic string, logger *log.Logger) *PrintConsumer {
	if logger == nil {
		logger = log.Default()
	}
	return &PrintConsumer{redisClient: redisClient, topic: topic, logger: logger}
}

// Run blocks until ctx is cancelled. ready, when non-nil, is closed once the
// subscription is confirmed.
func (c *PrintConsumer) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := c.redisClient.Subscribe(ctx, c.topic)
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	if ready != nil {
		close(ready)
	}
	c.logger.Printf("[PrintConsumer] listening on %s", c.topic)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.logger.Printf("[PrintConsumer] topic=%s payload=%s", msg.Channel, msg.Payload)
		case <-ctx.Done():
			return nil
		}
	}
}
