package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// MockGenerator - мок для интерфейса Generator
type MockGenerator struct {
	mock.Mock
}

var _ interfaces.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	args := m.Called(ctx, req)
	return args.Get(0).(models.GenerationResult)
}

func (m *MockGenerator) GenerateAnswer(ctx context.Context, req models.GenerationRequest, record *models.SpreadRecord) models.GenerationResult {
	args := m.Called(ctx, req, record)
	return args.Get(0).(models.GenerationResult)
}
