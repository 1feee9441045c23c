package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// MockModelBackend - мок для интерфейса ModelBackend
type MockModelBackend struct {
	mock.Mock
}

var _ interfaces.ModelBackend = (*MockModelBackend)(nil)

func (m *MockModelBackend) Complete(ctx context.Context, model, systemPrompt, userPrompt string, timeout time.Duration) (any, error) {
	args := m.Called(ctx, model, systemPrompt, userPrompt, timeout)
	return args.Get(0), args.Error(1)
}
