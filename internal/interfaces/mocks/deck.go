package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// MockDeck - мок для интерфейса Deck
type MockDeck struct {
	mock.Mock
}

var _ interfaces.Deck = (*MockDeck)(nil)

func (m *MockDeck) Draw(ctx context.Context, n int, topic string) ([]models.DrawnCard, error) {
	args := m.Called(ctx, n, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DrawnCard), args.Error(1)
}
