package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) FindOrCreateConversation(ctx context.Context, params CreateConversationParams) (Conversation, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Conversation), args.Error(1)
}

func (m *MockRepository) GetConversation(ctx context.Context, conversationId string) (Conversation, error) {
	args := m.Called(ctx, conversationId)
	return args.Get(0).(Conversation), args.Error(1)
}

func (m *MockRepository) ListConversations(ctx context.Context, userId string) ([]Conversation, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]Conversation), args.Error(1)
}

func (m *MockRepository) AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockRepository) ListMessages(ctx context.Context, conversationId string, limit, offset int) ([]Message, error) {
	args := m.Called(ctx, conversationId, limit, offset)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, conversationId, readerId string) error {
	args := m.Called(ctx, conversationId, readerId)
	return args.Error(0)
}

func (m *MockRepository) DeleteConversation(ctx context.Context, conversationId string) error {
	args := m.Called(ctx, conversationId)
	return args.Error(0)
}
