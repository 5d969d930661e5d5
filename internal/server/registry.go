package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"messagehub/internal/fanout"
)

// Registration ties one authenticated client to its fanout subscription. It
// is handed back to Unregister on disconnect for teardown.
type Registration struct {
	userId string
	client *Client
	sub    fanout.Subscription
}

// Registry is the per-instance map from authenticated user to live sockets.
// A user may hold several concurrent registrations (tabs, devices); each gets
// its own bus subscription and independent teardown. The registry is never
// shared across instances — cross-instance reach is the bus's job.
type Registry struct {
	mu       sync.RWMutex
	bus      fanout.Bus
	log      *log.Logger
	sessions map[string]map[*Client]*Registration
}

func NewRegistry(bus fanout.Bus, logger *log.Logger) *Registry {
	return &Registry{
		bus:      bus,
		log:      logger,
		sessions: make(map[string]map[*Client]*Registration),
	}
}

// Register subscribes to the user's fanout channel and forwards every payload
// verbatim to the client while its socket is open.
func (r *Registry) Register(ctx context.Context, userId string, c *Client) (*Registration, error) {
	sub, err := r.bus.Subscribe(ctx, fanout.UserChannel(userId), func(payload []byte) {
		c.queuePayload(payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe for user %s: %w", userId, err)
	}

	reg := &Registration{userId: userId, client: c, sub: sub}

	r.mu.Lock()
	clients := r.sessions[userId]
	if clients == nil {
		clients = make(map[*Client]*Registration)
		r.sessions[userId] = clients
	}
	clients[c] = reg
	r.mu.Unlock()

	return reg, nil
}

// Unregister closes the registration's bus subscription and drops the client
// from the session map. Called synchronously from the disconnect path so a
// dead socket never keeps receiving deliveries.
func (r *Registry) Unregister(reg *Registration) {
	if err := reg.sub.Close(); err != nil {
		r.log.Printf("close subscription for user %s: %v", reg.userId, err)
	}

	r.mu.Lock()
	if clients, ok := r.sessions[reg.userId]; ok {
		delete(clients, reg.client)
		if len(clients) == 0 {
			delete(r.sessions, reg.userId)
		}
	}
	r.mu.Unlock()
}

// ActiveUsers returns the number of distinct users with at least one
// registered socket on this instance.
func (r *Registry) ActiveUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) ActiveSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	for _, clients := range r.sessions {
		n += len(clients)
	}
	return n
}
