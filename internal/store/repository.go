package store

import (
	"context"
	"errors"
)

var ErrConversationNotFound = errors.New("conversation not found")

type Repository interface {
	Ping() error
	FindOrCreateConversation(ctx context.Context, params CreateConversationParams) (Conversation, error)
	GetConversation(ctx context.Context, conversationId string) (Conversation, error)
	ListConversations(ctx context.Context, userId string) ([]Conversation, error)
	AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error)
	ListMessages(ctx context.Context, conversationId string, limit, offset int) ([]Message, error)
	MarkRead(ctx context.Context, conversationId, readerId string) error
	DeleteConversation(ctx context.Context, conversationId string) error
}
