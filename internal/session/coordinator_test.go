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
)

type coordinatorFixture struct {
	deck      *mocks.MockDeck
	store     *mocks.MockSpreadStore
	gateway   *mocks.MockMessagingGateway
	generator *mocks.MockGenerator

	coordinator *Coordinator
	current     *time.Time
}

func newFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		deck:      new(mocks.MockDeck),
		store:     new(mocks.MockSpreadStore),
		gateway:   new(mocks.MockMessagingGateway),
		generator: new(mocks.MockGenerator),
	}
	completed := NewMemoryCompletedRegistry(time.Hour)
	f.coordinator = NewCoordinator(f.deck, f.store, f.gateway, f.generator, completed, Config{SessionTTL: time.Hour}, zap.NewNop())

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.current = &current
	f.coordinator.now = func() time.Time { return current }

	seq := 0
	f.coordinator.newID = func() string {
		seq++
		return fmt.Sprintf("s%d", seq)
	}
	return f
}

func drawn(name string) models.DrawnCard {
	return models.DrawnCard{
		Card:        models.Card{Name: name, Description: "описание"},
		Orientation: models.OrientationUpright,
	}
}

func (f *coordinatorFixture) expectDraw(names ...string) {
	for _, name := range names {
		f.deck.On("Draw", mock.Anything, 1, mock.Anything).
			Return([]models.DrawnCard{drawn(name)}, nil).Once()
	}
}

func validText() string {
	return strings.TrimSpace(strings.Repeat("карты говорят о грядущих переменах и новых дорогах ", 18))
}

func TestCreate_EvictsPreviousUserSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	require.NoError(t, f.coordinator.TrackInterfaceMessage(first.ID, 11))

	f.gateway.On("Delete", mock.Anything, int64(100), 11).Return(nil).Once()

	second, err := f.coordinator.Create(ctx, 7, 100, models.SpreadThree, "любовь")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, f.coordinator.ActiveCount())
	_, err = f.coordinator.Get(first.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	f.gateway.AssertExpectations(t)
}

func TestCreate_KeepsSessionsOfOtherUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	_, err = f.coordinator.Create(ctx, 8, 200, models.SpreadSingle, "общий")
	require.NoError(t, err)

	assert.Equal(t, 2, f.coordinator.ActiveCount())
}

func TestSelectCard_SingleSpreadCompletesAtFirstPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	f.expectDraw("Маг")

	result, err := f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, "Маг", result.Card.Name)
	assert.Equal(t, 1, result.Progress)
	assert.Equal(t, 1, result.Total)
	f.deck.AssertExpectations(t)
}

func TestSelectCard_ThreeSpreadStrictOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadThree, "общий")
	require.NoError(t, err)

	// Позиции 2 и 3 до позиции 1 отклоняются.
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 2)
	assert.ErrorIs(t, err, models.ErrWrongPosition)
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 3)
	assert.ErrorIs(t, err, models.ErrWrongPosition)

	f.expectDraw("Маг", "Жрица", "Императрица")

	first, err := f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.False(t, first.Completed)
	assert.Equal(t, 2, first.NextPosition)
	assert.Equal(t, "Прошлое", first.Card.Position)

	// Повторный выбор той же позиции отклоняется.
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	assert.ErrorIs(t, err, models.ErrWrongPosition)

	second, err := f.coordinator.SelectCard(ctx, sess.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Настоящее", second.Card.Position)

	third, err := f.coordinator.SelectCard(ctx, sess.ID, 3)
	require.NoError(t, err)
	assert.True(t, third.Completed)
	assert.Equal(t, "Будущее", third.Card.Position)
	assert.Equal(t, 3, third.Progress)
	f.deck.AssertExpectations(t)
}

func TestSelectCard_RedrawsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadThree, "общий")
	require.NoError(t, err)

	f.expectDraw("Маг")
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	// Колода дважды подсовывает дубликат, затем новую карту.
	f.expectDraw("Маг", "Маг", "Жрица")
	result, err := f.coordinator.SelectCard(ctx, sess.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Жрица", result.Card.Name)
	f.deck.AssertExpectations(t)
}

func TestSelectCard_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator.SelectCard(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestComplete_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	require.NoError(t, f.coordinator.TrackInterfaceMessage(sess.ID, 11))
	f.expectDraw("Маг")
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	interpretation := validText()
	f.store.On("CreateSpread", mock.Anything, int64(7), models.SpreadSingle, "общий", mock.Anything).
		Return(int64(42), nil).Once()
	f.gateway.On("SendCardMedia", mock.Anything, int64(100), mock.Anything, mock.Anything).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), generatingNotice).Return(77, nil).Once()
	f.generator.On("Generate", mock.Anything, mock.MatchedBy(func(req models.GenerationRequest) bool {
		return req.UserID == 7 && req.Kind == models.SpreadSingle && len(req.Cards) == 1
	})).Return(models.GenerationResult{Kind: models.ResultValidated, Text: interpretation, Model: "m1"}).Once()
	f.store.On("AttachInterpretation", mock.Anything, int64(42), interpretation).Return(nil).Once()
	f.gateway.On("Delete", mock.Anything, int64(100), 77).Return(nil).Once()
	f.gateway.On("Edit", mock.Anything, int64(100), 11, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, interpretation)
	})).Return(11, nil).Once()

	result, err := f.coordinator.Complete(ctx, sess.ID, models.UserProfile{Name: "Анна"})
	require.NoError(t, err)

	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, int64(42), result.SpreadID)
	assert.Equal(t, models.ResultValidated, result.Result.Kind)
	assert.Equal(t, 0, f.coordinator.ActiveCount())

	f.store.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.generator.AssertExpectations(t)
}

func TestComplete_SecondCallIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess := completeOnce(t, f)

	// Повторное завершение: ни генерации, ни записи, ни сообщений.
	result, err := f.coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	require.NoError(t, err)
	assert.True(t, result.AlreadyCompleted)

	f.generator.AssertNumberOfCalls(t, "Generate", 1)
	f.store.AssertNumberOfCalls(t, "CreateSpread", 1)
}

func TestSelectCard_AfterCompleteReturnsCompleted(t *testing.T) {
	f := newFixture(t)
	sess := completeOnce(t, f)

	_, err := f.coordinator.SelectCard(context.Background(), sess.ID, 1)
	assert.ErrorIs(t, err, models.ErrSessionCompleted)
}

// completeOnce прогоняет сессию одной карты до успешного завершения.
func completeOnce(t *testing.T, f *coordinatorFixture) *models.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	require.NoError(t, f.coordinator.TrackInterfaceMessage(sess.ID, 11))
	f.expectDraw("Маг")
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	f.store.On("CreateSpread", mock.Anything, int64(7), models.SpreadSingle, "общий", mock.Anything).
		Return(int64(42), nil).Once()
	f.gateway.On("SendCardMedia", mock.Anything, int64(100), mock.Anything, mock.Anything).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), generatingNotice).Return(77, nil).Once()
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(models.GenerationResult{Kind: models.ResultValidated, Text: validText(), Model: "m1"}).Once()
	f.store.On("AttachInterpretation", mock.Anything, int64(42), mock.Anything).Return(nil).Once()
	f.gateway.On("Delete", mock.Anything, int64(100), 77).Return(nil).Once()
	f.gateway.On("Edit", mock.Anything, int64(100), 11, mock.Anything).Return(11, nil).Once()

	result, err := f.coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	require.NoError(t, err)
	require.False(t, result.AlreadyCompleted)
	return sess
}

func TestComplete_NoCardsSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)

	_, err = f.coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	assert.ErrorIs(t, err, models.ErrNoCardsSelected)
}

func TestComplete_GenerationFailureFallsBackLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "любовь")
	require.NoError(t, err)
	f.expectDraw("Маг")
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	f.store.On("CreateSpread", mock.Anything, int64(7), models.SpreadSingle, "любовь", mock.Anything).
		Return(int64(43), nil).Once()
	f.gateway.On("SendCardMedia", mock.Anything, int64(100), mock.Anything, mock.Anything).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), generatingNotice).Return(77, nil).Once()
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(models.GenerationResult{Kind: models.ResultFailed, Failures: map[string]string{"m1": "timeout"}}).Once()
	f.gateway.On("Delete", mock.Anything, int64(100), 77).Return(nil).Once()
	// Интерфейсного сообщения нет — итог уходит новым сообщением.
	f.gateway.On("Send", mock.Anything, int64(100), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Базовая интерпретация")
	})).Return(12, nil).Once()

	result, err := f.coordinator.Complete(ctx, sess.ID, models.UserProfile{Name: "Анна"})
	require.NoError(t, err)

	assert.Equal(t, models.ResultLocalFallback, result.Result.Kind)
	assert.Contains(t, result.Result.Text, "AI временно недоступен")
	f.store.AssertNotCalled(t, "AttachInterpretation", mock.Anything, mock.Anything, mock.Anything)
	f.gateway.AssertExpectations(t)
}

func TestComplete_StoreErrorAllowsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	f.expectDraw("Маг")
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	f.store.On("CreateSpread", mock.Anything, int64(7), models.SpreadSingle, "общий", mock.Anything).
		Return(int64(0), errors.New("postgres down")).Once()

	_, err = f.coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	require.Error(t, err)

	// Сессия жива, повторная попытка проходит генерацию заново.
	f.store.On("CreateSpread", mock.Anything, int64(7), models.SpreadSingle, "общий", mock.Anything).
		Return(int64(42), nil).Once()
	f.gateway.On("SendCardMedia", mock.Anything, int64(100), mock.Anything, mock.Anything).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), generatingNotice).Return(77, nil).Once()
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(models.GenerationResult{Kind: models.ResultValidated, Text: validText(), Model: "m1"}).Once()
	f.store.On("AttachInterpretation", mock.Anything, int64(42), mock.Anything).Return(nil).Once()
	f.gateway.On("Delete", mock.Anything, int64(100), 77).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), mock.Anything).Return(12, nil).Once()

	result, err := f.coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.SpreadID)
	f.generator.AssertNumberOfCalls(t, "Generate", 1)
}

func TestComplete_MediaFailureFallsBackToText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	f.expectDraw("Маг")
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	require.NoError(t, err)

	f.store.On("CreateSpread", mock.Anything, int64(7), models.SpreadSingle, "общий", mock.Anything).
		Return(int64(42), nil).Once()
	f.gateway.On("SendCardMedia", mock.Anything, int64(100), mock.Anything, mock.Anything).
		Return(errors.New("файлы недоступны")).Once()
	// Вместо изображений уходит текстовое описание карт.
	f.gateway.On("Send", mock.Anything, int64(100), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Маг")
	})).Return(13, nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), generatingNotice).Return(77, nil).Once()
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(models.GenerationResult{Kind: models.ResultValidated, Text: validText(), Model: "m1"}).Once()
	f.store.On("AttachInterpretation", mock.Anything, int64(42), mock.Anything).Return(nil).Once()
	f.gateway.On("Delete", mock.Anything, int64(100), 77).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), mock.Anything).Return(14, nil).Once()

	_, err = f.coordinator.Complete(ctx, sess.ID, models.UserProfile{})
	require.NoError(t, err)
	f.gateway.AssertExpectations(t)
}

func TestCancel_RemovesSessionAndMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)
	require.NoError(t, f.coordinator.TrackInterfaceMessage(sess.ID, 11))

	f.gateway.On("Delete", mock.Anything, int64(100), 11).Return(nil).Once()

	require.NoError(t, f.coordinator.Cancel(ctx, sess.ID))
	assert.Equal(t, 0, f.coordinator.ActiveCount())

	// Отмененную сессию нельзя ни отменить снова, ни продолжить.
	assert.ErrorIs(t, f.coordinator.Cancel(ctx, sess.ID), models.ErrSessionNotFound)
	_, err = f.coordinator.SelectCard(ctx, sess.ID, 1)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	f.gateway.AssertExpectations(t)
}

func TestCleanupExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.Create(ctx, 7, 100, models.SpreadSingle, "общий")
	require.NoError(t, err)

	removed, _ := f.coordinator.CleanupExpired(ctx)
	assert.Equal(t, 0, removed)

	*f.current = f.current.Add(2 * time.Hour)
	removed, _ = f.coordinator.CleanupExpired(ctx)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, f.coordinator.ActiveCount())
}

func TestTrackInterfaceMessage_UnknownSession(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.coordinator.TrackInterfaceMessage("missing", 5), models.ErrSessionNotFound)
}

func TestAnswerQuestion_AttachesAndSends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record := &models.SpreadRecord{
		ID:     42,
		UserID: 7,
		Kind:   models.SpreadSingle,
		Topic:  "общий",
		Cards:  []models.DrawnCard{drawn("Маг")},
	}
	answer := validText()

	f.store.On("GetSpread", mock.Anything, int64(42)).Return(record, nil).Once()
	f.store.On("CreateQuestion", mock.Anything, int64(42), "что дальше?").Return(int64(5), nil).Once()
	f.generator.On("GenerateAnswer", mock.Anything, mock.Anything, record).
		Return(models.GenerationResult{Kind: models.ResultValidated, Text: answer, Model: "m1"}).Once()
	f.store.On("AttachAnswer", mock.Anything, int64(5), answer).Return(nil).Once()
	f.gateway.On("Send", mock.Anything, int64(100), answer).Return(15, nil).Once()

	result, err := f.coordinator.AnswerQuestion(ctx, 7, 100, 42, "что дальше?", models.UserProfile{Name: "Анна"})
	require.NoError(t, err)
	assert.Equal(t, models.ResultValidated, result.Kind)
	f.store.AssertExpectations(t)
}

func TestAnswerQuestion_WrongOwner(t *testing.T) {
	f := newFixture(t)

	record := &models.SpreadRecord{ID: 42, UserID: 7}
	f.store.On("GetSpread", mock.Anything, int64(42)).Return(record, nil).Once()

	_, err := f.coordinator.AnswerQuestion(context.Background(), 999, 100, 42, "вопрос", models.UserProfile{})
	assert.ErrorIs(t, err, models.ErrSpreadNotFound)
}

func TestAnswerQuestion_FallbackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record := &models.SpreadRecord{ID: 42, UserID: 7, Kind: models.SpreadSingle, Cards: []models.DrawnCard{drawn("Маг")}}
	f.store.On("GetSpread", mock.Anything, int64(42)).Return(record, nil).Once()
	f.store.On("CreateQuestion", mock.Anything, int64(42), "вопрос").Return(int64(5), nil).Once()
	f.generator.On("GenerateAnswer", mock.Anything, mock.Anything, record).
		Return(models.GenerationResult{Kind: models.ResultFailed}).Once()
	f.gateway.On("Send", mock.Anything, int64(100), mock.Anything).Return(15, nil).Once()

	result, err := f.coordinator.AnswerQuestion(ctx, 7, 100, 42, "вопрос", models.UserProfile{})
	require.NoError(t, err)
	assert.Equal(t, models.ResultLocalFallback, result.Kind)
	f.store.AssertNotCalled(t, "AttachAnswer", mock.Anything, mock.Anything, mock.Anything)
}

func TestMemoryCompletedRegistry(t *testing.T) {
	reg := NewMemoryCompletedRegistry(time.Hour).(*memoryCompletedRegistry)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return current }
	ctx := context.Background()

	reg.Add(ctx, "s1")
	assert.True(t, reg.IsCompleted(ctx, "s1"))
	assert.False(t, reg.IsCompleted(ctx, "s2"))

	current = current.Add(2 * time.Hour)
	assert.False(t, reg.IsCompleted(ctx, "s1"), "запись истекает по TTL")

	reg.Add(ctx, "s3")
	current = current.Add(2 * time.Hour)
	assert.Equal(t, 1, reg.Cleanup(ctx))
}
