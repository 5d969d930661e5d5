package fanout

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for single-instance deployments and tests.
// It provides the same contract as RedisBus minus the cross-process reach.
type MemoryBus struct {
	mu       sync.RWMutex
	channels map[string]map[*memorySubscription]Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		channels: make(map[string]map[*memorySubscription]Handler),
	}
}

func (b *MemoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.channels[channel]))
	for _, h := range b.channels[channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	// No subscriber means the publish is dropped, same as Redis pub/sub.
	for _, h := range handlers {
		h(payload)
	}

	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, channel string, handler Handler) (Subscription, error) {
	sub := &memorySubscription{bus: b, channel: channel}

	b.mu.Lock()
	subs := b.channels[channel]
	if subs == nil {
		subs = make(map[*memorySubscription]Handler)
		b.channels[channel] = subs
	}
	subs[sub] = handler
	b.mu.Unlock()

	return sub, nil
}

func (b *MemoryBus) Connected() bool { return true }

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.channels = make(map[string]map[*memorySubscription]Handler)
	b.mu.Unlock()
	return nil
}

type memorySubscription struct {
	bus     *MemoryBus
	channel string
}

func (s *memorySubscription) Close() error {
	s.bus.mu.Lock()
	if subs, ok := s.bus.channels[s.channel]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.bus.channels, s.channel)
		}
	}
	s.bus.mu.Unlock()
	return nil
}
