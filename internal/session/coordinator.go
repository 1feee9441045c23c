// Package session реализует координатор интерактивных сессий выбора карт:
// машину состояний, идемпотентное завершение и учет сообщений чата.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/prompts"
)

const generatingNotice = "🔄 Генерирую AI-интерпретацию..."

// Config содержит настройки координатора.
type Config struct {
	SessionTTL time.Duration // время жизни незавершенной сессии
}

// Coordinator владеет жизненным циклом интерактивных сессий.
// Таблица активных сессий защищена одним мьютексом; весь внешний
// I/O выполняется вне его.
type Coordinator struct {
	mu     sync.Mutex
	active map[string]*models.Session

	completed interfaces.CompletedRegistry
	deck      interfaces.Deck
	store     interfaces.SpreadStore
	gateway   interfaces.MessagingGateway
	generator interfaces.Generator

	sessionTTL time.Duration
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewCoordinator создает координатор сессий.
func NewCoordinator(
	deck interfaces.Deck,
	store interfaces.SpreadStore,
	gateway interfaces.MessagingGateway,
	generator interfaces.Generator,
	completed interfaces.CompletedRegistry,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &Coordinator{
		active:     make(map[string]*models.Session),
		completed:  completed,
		deck:       deck,
		store:      store,
		gateway:    gateway,
		generator:  generator,
		sessionTTL: cfg.SessionTTL,
		logger:     logger.Named("SessionCoordinator"),
		now:        time.Now,
		newID:      func() string { return uuid.NewString()[:8] },
	}
}

// Create создает новую сессию. У пользователя может быть не больше
// одной живой сессии: прежние вытесняются.
func (c *Coordinator) Create(ctx context.Context, userID, chatID int64, kind models.SpreadKind, topic string) (*models.Session, error) {
	c.mu.Lock()
	var stale []*models.Session
	for id, sess := range c.active {
		if sess.UserID == userID {
			delete(c.active, id)
			stale = append(stale, sess)
		}
	}

	sess := &models.Session{
		ID:              c.newID(),
		UserID:          userID,
		ChatID:          chatID,
		Kind:            kind,
		Topic:           topic,
		Cards:           make(map[int]models.DrawnCard),
		CurrentPosition: 1,
		Status:          models.StatusPending,
		CreatedAt:       c.now(),
	}
	c.active[sess.ID] = sess
	c.mu.Unlock()

	for _, old := range stale {
		c.deleteQuietly(ctx, old.ChatID, old.GeneratingMessageID)
		c.deleteQuietly(ctx, old.ChatID, old.InterfaceMessageID)
		c.logger.Info("Вытеснена прежняя сессия пользователя",
			zap.String("sessionID", old.ID), zap.Int64("userID", userID))
	}

	c.logger.Info("Создана сессия",
		zap.String("sessionID", sess.ID),
		zap.Int64("userID", userID),
		zap.String("kind", string(kind)),
		zap.String("topic", topic))
	return c.snapshot(sess), nil
}

// TrackInterfaceMessage привязывает к сессии идентификатор сообщения
// с интерфейсом выбора карт.
func (c *Coordinator) TrackInterfaceMessage(sessionID string, messageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.active[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	sess.InterfaceMessageID = messageID
	return nil
}

// SelectResult — итог выбора карты на одной позиции.
type SelectResult struct {
	Card         models.DrawnCard
	Position     int
	NextPosition int
	Completed    bool
	Progress     int
	Total        int
}

// SelectCard вытягивает карту для позиции. Позиции заполняются строго
// по порядку: любая другая позиция отклоняется без изменения состояния.
func (c *Coordinator) SelectCard(ctx context.Context, sessionID string, position int) (SelectResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.active[sessionID]
	if !ok {
		if c.completed.IsCompleted(ctx, sessionID) {
			return SelectResult{}, models.ErrSessionCompleted
		}
		return SelectResult{}, models.ErrSessionNotFound
	}
	if sess.Status == models.StatusCompleted || c.completed.IsCompleted(ctx, sessionID) {
		return SelectResult{}, models.ErrSessionCompleted
	}
	if position != sess.CurrentPosition {
		return SelectResult{}, fmt.Errorf("%w: ожидается %d, получена %d",
			models.ErrWrongPosition, sess.CurrentPosition, position)
	}

	card, err := c.drawDistinct(ctx, sess)
	if err != nil {
		return SelectResult{}, err
	}
	card.Position = prompts.PositionLabel(sess.Kind, position)
	sess.Cards[position] = card

	total := sess.Kind.RequiredPositions()
	result := SelectResult{
		Card:     card,
		Position: position,
		Progress: len(sess.Cards),
		Total:    total,
	}

	if len(sess.Cards) >= total {
		sess.Status = models.StatusCompleted
		result.Completed = true
	} else {
		sess.Status = models.StatusInProgress
		sess.CurrentPosition++
		result.NextPosition = sess.CurrentPosition
	}

	c.logger.Debug("Выбрана карта",
		zap.String("sessionID", sessionID),
		zap.Int("position", position),
		zap.String("card", card.Name),
		zap.Bool("completed", result.Completed))
	return result, nil
}

// drawDistinct вытягивает карту, которой еще нет в сессии.
func (c *Coordinator) drawDistinct(ctx context.Context, sess *models.Session) (models.DrawnCard, error) {
	for attempt := 0; attempt < 10; attempt++ {
		cards, err := c.deck.Draw(ctx, 1, sess.Topic)
		if err != nil {
			return models.DrawnCard{}, err
		}
		card := cards[0]
		duplicate := false
		for _, existing := range sess.Cards {
			if existing.Name == card.Name {
				duplicate = true
				break
			}
		}
		if !duplicate {
			return card, nil
		}
	}
	return models.DrawnCard{}, fmt.Errorf("%w: не удалось вытянуть уникальную карту", models.ErrEmptyDeck)
}

// CompleteResult — итог завершения сессии.
type CompleteResult struct {
	AlreadyCompleted bool
	SpreadID         int64
	Result           models.GenerationResult
}

// Complete — идемпотентное завершение сессии: сохранение расклада,
// раскрытие карт, ровно один вызов генерации и финальное сообщение.
func (c *Coordinator) Complete(ctx context.Context, sessionID string, profile models.UserProfile) (CompleteResult, error) {
	// Фаза 1: проверки идемпотентности и захват под локом.
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if !ok {
		c.mu.Unlock()
		if c.completed.IsCompleted(ctx, sessionID) {
			return CompleteResult{AlreadyCompleted: true}, nil
		}
		return CompleteResult{}, models.ErrSessionNotFound
	}
	if (sess.Status == models.StatusCompleted && sess.AIExecuted) || c.completed.IsCompleted(ctx, sessionID) {
		c.mu.Unlock()
		return CompleteResult{AlreadyCompleted: true}, nil
	}

	cards := sess.CardsInOrder()
	if len(cards) == 0 {
		c.mu.Unlock()
		return CompleteResult{}, models.ErrNoCardsSelected
	}

	runAI := !sess.AIExecuted
	if runAI {
		// Флаг поднимается ДО сетевого вызова: это закрывает окно
		// реентерабельности для конкурентного дубликата завершения.
		sess.AIExecuted = true
	}
	userID, chatID := sess.UserID, sess.ChatID
	kind, topic := sess.Kind, sess.Topic
	spreadID := sess.SavedSpreadID
	interfaceMessageID := sess.InterfaceMessageID
	c.mu.Unlock()

	// Фаза 2: I/O вне лока.
	if spreadID == 0 {
		id, err := c.store.CreateSpread(ctx, userID, kind, topic, cards)
		if err != nil {
			if runAI {
				c.resetAIExecuted(sessionID)
			}
			return CompleteResult{}, fmt.Errorf("не удалось сохранить расклад: %w", err)
		}
		spreadID = id
		c.mu.Lock()
		sess.SavedSpreadID = spreadID
		c.mu.Unlock()
	}

	title := kind.DisplayName()
	if err := c.gateway.SendCardMedia(ctx, chatID, title, cards); err != nil {
		c.logger.Warn("Не удалось отправить изображения карт, отправляем текст",
			zap.String("sessionID", sessionID), zap.Error(err))
		if _, sendErr := c.gateway.Send(ctx, chatID, title+"\n\n"+prompts.CardsText(kind, cards)); sendErr != nil {
			c.logger.Error("Не удалось отправить описание карт",
				zap.String("sessionID", sessionID), zap.Error(sendErr))
		}
	}

	var genResult models.GenerationResult
	if runAI {
		genResult = c.runGeneration(ctx, sessionID, sess, userID, chatID, kind, topic, cards, profile, spreadID)
	} else {
		genResult = c.storedInterpretation(ctx, spreadID, kind, topic, cards, profile)
	}

	finalText := title + "\n\n" + genResult.Text
	resultMessageID, err := c.editOrSend(ctx, chatID, interfaceMessageID, finalText)
	if err != nil {
		c.logger.Error("Не удалось доставить итоговое сообщение",
			zap.String("sessionID", sessionID), zap.Error(err))
	}

	// Фаза 3: финализация под локом.
	c.mu.Lock()
	sess.Status = models.StatusCompleted
	if resultMessageID != 0 {
		sess.ResultMessageID = resultMessageID
	}
	delete(c.active, sessionID)
	c.mu.Unlock()

	c.completed.Add(ctx, sessionID)
	c.logger.Info("Сессия завершена",
		zap.String("sessionID", sessionID),
		zap.Int64("spreadID", spreadID),
		zap.String("resultKind", string(genResult.Kind)),
		zap.String("model", genResult.Model))
	return CompleteResult{SpreadID: spreadID, Result: genResult}, nil
}

// runGeneration выполняет ровно один вызов генерации с транзитным
// уведомлением. На жестком отказе возвращает локальный шаблон и
// снимает флаг AIExecuted, чтобы будущая попытка могла повторить AI.
func (c *Coordinator) runGeneration(
	ctx context.Context,
	sessionID string,
	sess *models.Session,
	userID, chatID int64,
	kind models.SpreadKind,
	topic string,
	cards []models.DrawnCard,
	profile models.UserProfile,
	spreadID int64,
) models.GenerationResult {
	noticeID, err := c.gateway.Send(ctx, chatID, generatingNotice)
	if err == nil && noticeID != 0 {
		c.mu.Lock()
		sess.GeneratingMessageID = noticeID
		c.mu.Unlock()
	}

	result := c.generator.Generate(ctx, models.GenerationRequest{
		UserID:  userID,
		Kind:    kind,
		Topic:   topic,
		Cards:   cards,
		Profile: profile,
	})

	if result.Usable() {
		if err := c.store.AttachInterpretation(ctx, spreadID, result.Text); err != nil {
			c.logger.Error("Не удалось сохранить интерпретацию",
				zap.Int64("spreadID", spreadID), zap.Error(err))
		}
	} else {
		c.resetAIExecuted(sessionID)
		result = models.GenerationResult{
			Kind: models.ResultLocalFallback,
			Text: prompts.FallbackInterpretation(kind, cards, topic, profile.Name),
		}
	}

	// Уведомление о генерации убирается при любом исходе.
	c.deleteQuietly(ctx, chatID, noticeID)
	c.mu.Lock()
	sess.GeneratingMessageID = 0
	c.mu.Unlock()
	return result
}

// storedInterpretation достает ранее сохраненную интерпретацию, когда
// генерация уже выполнялась прежней попыткой завершения.
func (c *Coordinator) storedInterpretation(ctx context.Context, spreadID int64, kind models.SpreadKind, topic string, cards []models.DrawnCard, profile models.UserProfile) models.GenerationResult {
	record, err := c.store.GetSpread(ctx, spreadID)
	if err == nil && record.Interpretation != "" {
		return models.GenerationResult{Kind: models.ResultValidated, Text: record.Interpretation}
	}
	return models.GenerationResult{
		Kind: models.ResultLocalFallback,
		Text: prompts.FallbackInterpretation(kind, cards, topic, profile.Name),
	}
}

func (c *Coordinator) resetAIExecuted(sessionID string) {
	c.mu.Lock()
	if sess, ok := c.active[sessionID]; ok {
		sess.AIExecuted = false
	}
	c.mu.Unlock()
}

// Cancel убирает незавершенную сессию и подчищает ее транзитные сообщения.
func (c *Coordinator) Cancel(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if !ok {
		c.mu.Unlock()
		return models.ErrSessionNotFound
	}
	sess.Status = models.StatusCancelled
	delete(c.active, sessionID)
	c.mu.Unlock()

	c.deleteQuietly(ctx, sess.ChatID, sess.GeneratingMessageID)
	c.deleteQuietly(ctx, sess.ChatID, sess.InterfaceMessageID)
	c.logger.Info("Сессия отменена", zap.String("sessionID", sessionID))
	return nil
}

// CleanupExpired вычищает просроченные сессии и устаревшие записи
// реестра завершенных. Вызывается периодическим sweep, не из горячего пути.
func (c *Coordinator) CleanupExpired(ctx context.Context) (int, int) {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for id, sess := range c.active {
		if now.Sub(sess.CreatedAt) > c.sessionTTL {
			delete(c.active, id)
			removed++
		}
	}
	c.mu.Unlock()

	registryRemoved := c.completed.Cleanup(ctx)
	if removed > 0 || registryRemoved > 0 {
		c.logger.Info("Очистка просроченных сессий",
			zap.Int("sessions", removed), zap.Int("registryEntries", registryRemoved))
	}
	return removed, registryRemoved
}

// ActiveCount возвращает число активных сессий (для метрик и тестов).
func (c *Coordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Get возвращает копию активной сессии.
func (c *Coordinator) Get(sessionID string) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.active[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return c.snapshot(sess), nil
}

// FindByUser возвращает активную сессию пользователя, если она есть.
func (c *Coordinator) FindByUser(userID int64) (*models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sess := range c.active {
		if sess.UserID == userID {
			return c.snapshot(sess), true
		}
	}
	return nil, false
}

// AnswerQuestion отвечает на дополнительный вопрос по сохраненному
// раскладу: ровно один вызов генерации, ответ сохраняется и отправляется.
func (c *Coordinator) AnswerQuestion(ctx context.Context, userID, chatID, spreadID int64, question string, profile models.UserProfile) (models.GenerationResult, error) {
	record, err := c.store.GetSpread(ctx, spreadID)
	if err != nil {
		return models.GenerationResult{}, err
	}
	if record.UserID != userID {
		return models.GenerationResult{}, models.ErrSpreadNotFound
	}

	questionID, err := c.store.CreateQuestion(ctx, spreadID, question)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("не удалось сохранить вопрос: %w", err)
	}

	result := c.generator.GenerateAnswer(ctx, models.GenerationRequest{
		UserID:   userID,
		Kind:     record.Kind,
		Topic:    record.Topic,
		Cards:    record.Cards,
		Profile:  profile,
		Question: question,
	}, record)

	if result.Usable() {
		if err := c.store.AttachAnswer(ctx, questionID, result.Text); err != nil {
			c.logger.Error("Не удалось сохранить ответ на вопрос",
				zap.Int64("questionID", questionID), zap.Error(err))
		}
	} else {
		result = models.GenerationResult{
			Kind: models.ResultLocalFallback,
			Text: prompts.FallbackAnswer(question, profile.Name),
		}
	}

	if _, err := c.gateway.Send(ctx, chatID, result.Text); err != nil {
		c.logger.Error("Не удалось отправить ответ на вопрос",
			zap.Int64("chatID", chatID), zap.Error(err))
	}
	return result, nil
}

// snapshot копирует сессию, чтобы вызывающие не трогали состояние под локом.
func (c *Coordinator) snapshot(sess *models.Session) *models.Session {
	clone := *sess
	clone.Cards = make(map[int]models.DrawnCard, len(sess.Cards))
	for pos, card := range sess.Cards {
		clone.Cards[pos] = card
	}
	return &clone
}
