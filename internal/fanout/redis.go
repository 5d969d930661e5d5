package fanout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// RedisBus implements Bus over Redis pub/sub. Each subscription holds its own
// *redis.PubSub so subscriptions tear down independently.
type RedisBus struct {
	client *redis.Client
	log    *log.Logger
}

func NewRedisBus(url string, logger *log.Logger) (*RedisBus, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &RedisBus{client: client, log: logger}, nil
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)

	// Confirm the subscription before reporting success so a publish issued
	// after Subscribe returns is not missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis: subscribe %q: %w", channel, err)
	}

	sub := &redisSubscription{ps: ps}
	go func() {
		for msg := range ps.Channel() {
			handler([]byte(msg.Payload))
		}
	}()

	return sub, nil
}

func (b *RedisBus) Connected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return b.client.Ping(ctx).Err() == nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	ps *redis.PubSub
}

// Close unsubscribes and closes the delivery channel, which ends the
// forwarding goroutine.
func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
