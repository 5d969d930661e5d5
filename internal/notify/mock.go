package notify

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockEscalator struct {
	mock.Mock
}

func (m *MockEscalator) MessageSent(ctx context.Context, recipientId, senderName string) {
	m.Called(ctx, recipientId, senderName)
}

type MockMailQueue struct {
	mock.Mock
}

func (m *MockMailQueue) EnqueueNewMessage(ctx context.Context, intent NewMessageIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockMailQueue) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockProfileResolver struct {
	mock.Mock
}

func (m *MockProfileResolver) Resolve(ctx context.Context, userId string) (Profile, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(Profile), args.Error(1)
}
