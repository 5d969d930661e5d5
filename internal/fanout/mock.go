package fanout

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockBus struct {
	mock.Mock
}

func (m *MockBus) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func (m *MockBus) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	args := m.Called(ctx, channel, handler)
	if sub, ok := args.Get(0).(Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBus) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSubscription struct {
	mock.Mock
}

func (m *MockSubscription) Close() error {
	args := m.Called()
	return args.Error(0)
}
