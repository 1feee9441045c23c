package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces/mocks"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/router"
)

// Сквозной сценарий: расклад из трех карт, первая модель упирается в 429,
// вторая дает огрызок, третья — полноценный текст. Сессия завершается
// ровно одной генерацией, повторное завершение — холостое.
func TestThreeCardSpreadEndToEnd(t *testing.T) {
	ctx := context.Background()

	deck := new(mocks.MockDeck)
	store := new(mocks.MockSpreadStore)
	gateway := new(mocks.MockMessagingGateway)
	backend := new(mocks.MockModelBackend)

	registry := router.NewRegistry([]string{"m1", "m2", "m3"}, nil, 5*time.Minute)
	preferred := router.NewMemoryPreferredCache(registry, 30*time.Minute, "")
	generator := router.New(backend, registry, preferred, router.Config{MaxRetries: 1})

	completed := NewMemoryCompletedRegistry(time.Hour)
	coordinator := NewCoordinator(deck, store, gateway, generator, completed, Config{SessionTTL: time.Hour}, zap.NewNop())
	seq := 0
	coordinator.newID = func() string {
		seq++
		return fmt.Sprintf("e2e-%d", seq)
	}

	sess, err := coordinator.Create(ctx, 7, 100, models.SpreadThree, "карьера")
	require.NoError(t, err)
	require.NoError(t, coordinator.TrackInterfaceMessage(sess.ID, 11))

	for i, name := range []string{"Маг", "Жрица", "Колесница"} {
		deck.On("Draw", mock.Anything, 1, "карьера").
			Return([]models.DrawnCard{{
				Card:        models.Card{Name: name},
				Orientation: models.OrientationUpright,
			}}, nil).Once()
		result, err := coordinator.SelectCard(ctx, sess.ID, i+1)
		require.NoError(t, err)
		assert.Equal(t, i == 2, result.Completed)
	}

	goodText := strings.TrimSpace(strings.Repeat("карты говорят о росте и новых возможностях впереди ", 18))
	backend.On("Complete", mock.Anything, "m1", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &models.BackendError{Class: models.ErrClassRateLimit, Model: "m1", Err: errors.New("429")}).Once()
	backend.On("Complete", mock.Anything, "m2", mock.Anything, mock.Anything, mock.Anything).
		Return("карты сулят перемены", nil).Once()
	backend.On("Complete", mock.Anything, "m3", mock.Anything, mock.Anything, mock.Anything).
		Return(goodText, nil).Once()

	store.On("CreateSpread", mock.Anything, int64(7), models.SpreadThree, "карьера", mock.MatchedBy(func(cards []models.DrawnCard) bool {
		return len(cards) == 3 && cards[0].Position == "Прошлое" && cards[2].Position == "Будущее"
	})).Return(int64(42), nil).Once()
	gateway.On("SendCardMedia", mock.Anything, int64(100), mock.Anything, mock.Anything).Return(nil).Once()
	gateway.On("Send", mock.Anything, int64(100), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Генерирую")
	})).Return(77, nil).Once()
	store.On("AttachInterpretation", mock.Anything, int64(42), goodText).Return(nil).Once()
	gateway.On("Delete", mock.Anything, int64(100), 77).Return(nil).Once()
	gateway.On("Edit", mock.Anything, int64(100), 11, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, goodText)
	})).Return(11, nil).Once()

	result, err := coordinator.Complete(ctx, sess.ID, models.UserProfile{Name: "Анна", Age: 30, Gender: "female"})
	require.NoError(t, err)

	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, int64(42), result.SpreadID)
	assert.Equal(t, models.ResultValidated, result.Result.Kind)
	assert.Equal(t, "m3", result.Result.Model)

	// 429 запарковала m1, успех закрепил m3 как предпочтительную.
	assert.True(t, registry.InCooldown("m1"))
	model, ok := preferred.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "m3", model)

	// Повторное завершение холостое: ни вызовов бэкенда, ни записи.
	again, err := coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	backend.AssertNumberOfCalls(t, "Complete", 3)
	store.AssertNumberOfCalls(t, "CreateSpread", 1)

	deck.AssertExpectations(t)
	store.AssertExpectations(t)
	gateway.AssertExpectations(t)
	backend.AssertExpectations(t)
}
