package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"messagehub/internal/fanout"
	"messagehub/internal/notify"
	"messagehub/internal/presence"
	"messagehub/internal/stats"
	"messagehub/internal/store"
	"messagehub/internal/types"
)

var ErrInvalidArgument = errors.New("invalid argument")

const (
	metricActiveConnections     = "ActiveConnections"
	metricAuthenticatedSessions = "AuthenticatedSessions"
	metricMessagesSent          = "MessagesSent"
	metricPublishErrors         = "PublishErrors"
)

// Gateway orchestrates the messaging core: it authenticates sockets, persists
// and fans out messages, and triggers the email escalation decision.
type Gateway struct {
	log       *log.Logger
	store     store.Repository
	presence  presence.Tracker
	bus       fanout.Bus
	registry  *Registry
	escalator notify.Escalator
	stats     stats.StatsProvider

	// strictFrames closes sockets on protocol violations instead of
	// silently dropping the offending frame.
	strictFrames bool

	clientsMu sync.Mutex
	clients   map[*Client]struct{}
}

func NewGateway(logger *log.Logger, repo store.Repository, tracker presence.Tracker,
	bus fanout.Bus, escalator notify.Escalator, statsProvider stats.StatsProvider, strictFrames bool) *Gateway {

	statsProvider.RegisterMetric(metricActiveConnections)
	statsProvider.RegisterMetric(metricAuthenticatedSessions)
	statsProvider.RegisterMetric(metricMessagesSent)
	statsProvider.RegisterMetric(metricPublishErrors)

	return &Gateway{
		log:          logger,
		store:        repo,
		presence:     tracker,
		bus:          bus,
		registry:     NewRegistry(bus, logger),
		escalator:    escalator,
		stats:        statsProvider,
		strictFrames: strictFrames,
		clients:      make(map[*Client]struct{}),
	}
}

// RegisterClient starts tracking a freshly upgraded, not yet authenticated
// socket.
func (gw *Gateway) RegisterClient(c *Client) {
	gw.clientsMu.Lock()
	gw.clients[c] = struct{}{}
	gw.clientsMu.Unlock()

	gw.stats.Incr(metricActiveConnections)
}

// Authenticate binds the declared identity to the client, records presence
// and opens the fanout subscription that makes the user reachable on this
// instance.
func (gw *Gateway) Authenticate(ctx context.Context, c *Client, userId, userName string) error {
	if userId == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}

	if err := gw.presence.RecordConnect(ctx, userId); err != nil {
		// presence is advisory, the connection still proceeds
		gw.log.Println("record connect:", err)
	}

	reg, err := gw.registry.Register(ctx, userId, c)
	if err != nil {
		return err
	}

	c.setAuthenticated(userId, userName, reg)
	gw.stats.Incr(metricAuthenticatedSessions)
	gw.log.Printf("user %s authenticated on session %s", userId, c.id)

	return nil
}

// Disconnect releases everything a connection holds: its registry entry, its
// fanout subscription and its presence claim. Runs synchronously in the read
// pump's close path.
func (gw *Gateway) Disconnect(c *Client) {
	userId, reg := c.close()
	if reg != nil {
		gw.registry.Unregister(reg)
		if err := gw.presence.RecordDisconnect(context.Background(), userId); err != nil {
			gw.log.Println("record disconnect:", err)
		}
		gw.stats.Decr(metricAuthenticatedSessions)
		gw.log.Printf("user %s disconnected", userId)
	}

	gw.clientsMu.Lock()
	if _, ok := gw.clients[c]; ok {
		delete(gw.clients, c)
		gw.stats.Decr(metricActiveConnections)
	}
	gw.clientsMu.Unlock()

	c.stopClient()
}

func (gw *Gateway) CreateConversation(ctx context.Context, params store.CreateConversationParams) (store.Conversation, error) {
	if params.UserId1 == "" || params.UserId2 == "" {
		return store.Conversation{}, fmt.Errorf("%w: userId1 and userId2 are required", ErrInvalidArgument)
	}

	return gw.store.FindOrCreateConversation(ctx, params)
}

func (gw *Gateway) ListConversations(ctx context.Context, userId string) ([]store.Conversation, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}

	return gw.store.ListConversations(ctx, userId)
}

// SendMessage persists the message, fans it out to both participants' live
// sessions and runs the escalation policy for the recipient. Once the message
// is stored, push and escalation failures degrade the experience but never
// fail the call.
func (gw *Gateway) SendMessage(ctx context.Context, params store.AppendMessageParams) (store.Message, error) {
	if params.ConversationId == "" || params.SenderId == "" || params.Content == "" {
		return store.Message{}, fmt.Errorf("%w: conversationId, senderId and content are required", ErrInvalidArgument)
	}

	msg, err := gw.store.AppendMessage(ctx, params)
	if err != nil {
		return store.Message{}, err
	}
	gw.stats.Incr(metricMessagesSent)

	conv, err := gw.store.GetConversation(ctx, params.ConversationId)
	if err != nil {
		gw.log.Println("load conversation for push:", err)
		return msg, nil
	}
	recipientId := conv.OtherParticipant(params.SenderId)

	payload, err := EncodeNewMessage(WireMessage(msg))
	if err != nil {
		gw.log.Println("encode push payload:", err)
		return msg, nil
	}

	gw.publish(ctx, recipientId, payload)
	// echo to the sender's other sessions so every open tab converges
	gw.publish(ctx, params.SenderId, payload)

	gw.escalator.MessageSent(ctx, recipientId, params.SenderName)

	return msg, nil
}

func (gw *Gateway) ListMessages(ctx context.Context, conversationId string, limit, offset int) ([]store.Message, error) {
	if conversationId == "" {
		return nil, fmt.Errorf("%w: conversationId is required", ErrInvalidArgument)
	}

	return gw.store.ListMessages(ctx, conversationId, limit, offset)
}

func (gw *Gateway) MarkRead(ctx context.Context, conversationId, readerId string) error {
	if conversationId == "" || readerId == "" {
		return fmt.Errorf("%w: conversationId and userId are required", ErrInvalidArgument)
	}

	return gw.store.MarkRead(ctx, conversationId, readerId)
}

func (gw *Gateway) DeleteConversation(ctx context.Context, conversationId string) error {
	if conversationId == "" {
		return fmt.Errorf("%w: conversationId is required", ErrInvalidArgument)
	}

	return gw.store.DeleteConversation(ctx, conversationId)
}

// Counts reports open sockets and distinct authenticated users on this
// instance, for the health endpoint.
func (gw *Gateway) Counts() (clients, authenticated int) {
	gw.clientsMu.Lock()
	clients = len(gw.clients)
	gw.clientsMu.Unlock()

	return clients, gw.registry.ActiveUsers()
}

func (gw *Gateway) Shutdown() {
	gw.log.Println("closing client connections")

	gw.clientsMu.Lock()
	clients := make([]*Client, 0, len(gw.clients))
	for c := range gw.clients {
		clients = append(clients, c)
	}
	gw.clientsMu.Unlock()

	for _, c := range clients {
		c.stopClient()
	}
}

func (gw *Gateway) publish(ctx context.Context, userId string, payload []byte) {
	if err := gw.bus.Publish(ctx, fanout.UserChannel(userId), payload); err != nil {
		gw.stats.Incr(metricPublishErrors)
		gw.log.Printf("publish to %s: %v", userId, err)
	}
}

// WireMessage converts a stored message to its socket/HTTP representation.
func WireMessage(m store.Message) types.Message {
	return types.Message{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		SenderName:     m.SenderName,
		Content:        m.Content,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}
