package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// MockMessagingGateway - мок для интерфейса MessagingGateway
type MockMessagingGateway struct {
	mock.Mock
}

var _ interfaces.MessagingGateway = (*MockMessagingGateway)(nil)

func (m *MockMessagingGateway) Send(ctx context.Context, chatID int64, text string) (int, error) {
	args := m.Called(ctx, chatID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockMessagingGateway) Edit(ctx context.Context, chatID int64, messageID int, text string) (int, error) {
	args := m.Called(ctx, chatID, messageID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockMessagingGateway) Delete(ctx context.Context, chatID int64, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

func (m *MockMessagingGateway) SendCardMedia(ctx context.Context, chatID int64, title string, cards []models.DrawnCard) error {
	args := m.Called(ctx, chatID, title, cards)
	return args.Error(0)
}
