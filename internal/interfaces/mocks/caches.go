package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// MockPreferredModelCache - мок для интерфейса PreferredModelCache
type MockPreferredModelCache struct {
	mock.Mock
}

var _ interfaces.PreferredModelCache = (*MockPreferredModelCache)(nil)

func (m *MockPreferredModelCache) Get(ctx context.Context, userID int64) (string, bool) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Bool(1)
}

func (m *MockPreferredModelCache) Set(ctx context.Context, userID int64, model string) {
	m.Called(ctx, userID, model)
}

func (m *MockPreferredModelCache) Delete(ctx context.Context, userID int64) {
	m.Called(ctx, userID)
}

// MockCompletedRegistry - мок для интерфейса CompletedRegistry
type MockCompletedRegistry struct {
	mock.Mock
}

var _ interfaces.CompletedRegistry = (*MockCompletedRegistry)(nil)

func (m *MockCompletedRegistry) Add(ctx context.Context, sessionID string) {
	m.Called(ctx, sessionID)
}

func (m *MockCompletedRegistry) IsCompleted(ctx context.Context, sessionID string) bool {
	args := m.Called(ctx, sessionID)
	return args.Bool(0)
}

func (m *MockCompletedRegistry) Cleanup(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}
