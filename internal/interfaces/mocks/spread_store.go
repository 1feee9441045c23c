// Package mocks содержит моки интерфейсов для тестов.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// MockSpreadStore - мок для интерфейса SpreadStore
type MockSpreadStore struct {
	mock.Mock
}

var _ interfaces.SpreadStore = (*MockSpreadStore)(nil)

func (m *MockSpreadStore) CreateSpread(ctx context.Context, userID int64, kind models.SpreadKind, topic string, cards []models.DrawnCard) (int64, error) {
	args := m.Called(ctx, userID, kind, topic, cards)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSpreadStore) AttachInterpretation(ctx context.Context, spreadID int64, text string) error {
	args := m.Called(ctx, spreadID, text)
	return args.Error(0)
}

func (m *MockSpreadStore) GetSpread(ctx context.Context, spreadID int64) (*models.SpreadRecord, error) {
	args := m.Called(ctx, spreadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpreadRecord), args.Error(1)
}

func (m *MockSpreadStore) ListHistory(ctx context.Context, userID int64, limit int) ([]models.SpreadRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SpreadRecord), args.Error(1)
}

func (m *MockSpreadStore) CreateQuestion(ctx context.Context, spreadID int64, text string) (int64, error) {
	args := m.Called(ctx, spreadID, text)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSpreadStore) AttachAnswer(ctx context.Context, questionID int64, text string) error {
	args := m.Called(ctx, questionID, text)
	return args.Error(0)
}
