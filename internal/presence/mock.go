package presence

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) RecordConnect(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockTracker) RecordDisconnect(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockTracker) IsInactive(ctx context.Context, userId string) bool {
	args := m.Called(ctx, userId)
	return args.Bool(0)
}
