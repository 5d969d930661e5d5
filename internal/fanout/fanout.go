// Package fanout provides the cross-instance publish/subscribe channel used to
// bridge a message from the gateway process that accepted it to whichever
// process holds the recipient's live socket. Delivery is at-most-once and
// best-effort: a publish with no active subscriber is dropped. Durable
// delivery is the store's job, not the bus's.
package fanout

import (
	"context"
)

// Handler is invoked once per payload delivered on a subscribed channel.
type Handler func(payload []byte)

// Subscription is a single channel subscription. Close tears it down and stops
// further deliveries.
type Subscription interface {
	Close() error
}

type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe registers handler on channel. Every active subscription on a
	// channel receives every publish, across processes.
	Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error)
	Connected() bool
	Close() error
}

// UserChannel returns the per-user channel key.
func UserChannel(userId string) string {
	return "user:" + userId
}
