// Package bot обрабатывает обновления Telegram: команды, кнопки выбора
// расклада и коллбэки выбора карт.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/session"
)

const (
	buttonDailyCard   = "🔮 Карта дня"
	buttonThreeSpread = "🃏 Прошлое–Настоящее–Будущее"
	buttonHistory     = "📜 История"
	buttonCancel      = "❌ Отменить расклад"

	greeting = "Добро пожаловать! Я помогу вам с раскладами таро.\n" +
		"Выберите расклад на клавиатуре ниже."
)

// Bot связывает Telegram-обновления с координатором сессий.
type Bot struct {
	api         *tgbotapi.BotAPI
	coordinator *session.Coordinator
	store       interfaces.SpreadStore
	logger      *zap.Logger

	mu sync.Mutex
	// userID -> spreadID, по которому ждем текст вопроса
	pendingQuestions map[int64]int64
}

// New creates a new Bot.
func New(api *tgbotapi.BotAPI, coordinator *session.Coordinator, store interfaces.SpreadStore, logger *zap.Logger) *Bot {
	return &Bot{
		api:              api,
		coordinator:      coordinator,
		store:            store,
		logger:           logger.Named("Bot"),
		pendingQuestions: make(map[int64]int64),
	}
}

// HandleUpdate обрабатывает одно обновление Telegram.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.sendMenu(chatID, greeting)
		case "history":
			b.sendHistory(ctx, userID, chatID)
		case "cancel":
			b.cancelActive(ctx, userID, chatID)
		default:
			b.reply(chatID, "Неизвестная команда. Используйте /start.")
		}
		return
	}

	switch msg.Text {
	case buttonDailyCard:
		b.startSpread(ctx, msg, models.SpreadSingle)
	case buttonThreeSpread:
		b.startSpread(ctx, msg, models.SpreadThree)
	case buttonHistory:
		b.sendHistory(ctx, userID, chatID)
	case buttonCancel:
		b.cancelActive(ctx, userID, chatID)
	default:
		b.handleFreeText(ctx, msg)
	}
}

// handleFreeText трактует произвольный текст как вопрос по последнему
// раскладу, если мы его ждем.
func (b *Bot) handleFreeText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	b.mu.Lock()
	spreadID, waiting := b.pendingQuestions[userID]
	if waiting {
		delete(b.pendingQuestions, userID)
	}
	b.mu.Unlock()

	if !waiting {
		b.sendMenu(msg.Chat.ID, "Выберите расклад на клавиатуре ниже.")
		return
	}

	question := strings.TrimSpace(msg.Text)
	if question == "" {
		b.reply(msg.Chat.ID, "Вопрос не может быть пустым.")
		return
	}

	profile := profileFromUser(msg.From)
	if _, err := b.coordinator.AnswerQuestion(ctx, userID, msg.Chat.ID, spreadID, question, profile); err != nil {
		b.logger.Warn("Failed to answer question", zap.Error(err), zap.Int64("userID", userID), zap.Int64("spreadID", spreadID))
		b.reply(msg.Chat.ID, "Не удалось получить ответ на вопрос. Попробуйте позже.")
	}
}

func (b *Bot) startSpread(ctx context.Context, msg *tgbotapi.Message, kind models.SpreadKind) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	sess, err := b.coordinator.Create(ctx, userID, chatID, kind, "общий")
	if err != nil {
		b.logger.Error("Failed to create session", zap.Error(err), zap.Int64("userID", userID))
		b.reply(chatID, "Не удалось начать расклад. Попробуйте позже.")
		return
	}

	text := fmt.Sprintf("%s\n\nВыберите карту %d из %d:", kind.DisplayName(), sess.CurrentPosition, kind.RequiredPositions())
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = cardKeyboard(sess.ID, sess.CurrentPosition)
	sent, err := b.api.Send(reply)
	if err != nil {
		b.logger.Error("Failed to send card picker", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	if err := b.coordinator.TrackInterfaceMessage(sess.ID, sent.MessageID); err != nil {
		b.logger.Debug("Session gone before interface message tracked", zap.String("sessionID", sess.ID))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.logger.Debug("Failed to ack callback", zap.Error(err))
		}
	}()

	parts := strings.Split(cb.Data, ":")
	switch parts[0] {
	case "pick":
		if len(parts) != 3 {
			return
		}
		position, err := strconv.Atoi(parts[2])
		if err != nil {
			return
		}
		b.pickCard(ctx, cb, parts[1], position)
	case "ask":
		if len(parts) != 2 {
			return
		}
		spreadID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.pendingQuestions[cb.From.ID] = spreadID
		b.mu.Unlock()
		b.reply(cb.Message.Chat.ID, "Напишите ваш вопрос по раскладу.")
	}
}

func (b *Bot) pickCard(ctx context.Context, cb *tgbotapi.CallbackQuery, sessionID string, position int) {
	chatID := cb.Message.Chat.ID

	result, err := b.coordinator.SelectCard(ctx, sessionID, position)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSessionCompleted):
			b.reply(chatID, "Этот расклад уже завершен.")
		case errors.Is(err, models.ErrSessionNotFound):
			b.reply(chatID, "Сессия расклада не найдена или истекла. Начните новый расклад.")
		default:
			b.logger.Warn("Failed to select card", zap.Error(err), zap.String("sessionID", sessionID))
			b.reply(chatID, "Не удалось выбрать карту. Попробуйте еще раз.")
		}
		return
	}

	if !result.Completed {
		text := fmt.Sprintf("Выпала карта: %s (%s)\n\nВыберите карту %d из %d:",
			result.Card.Name, result.Card.Orientation.Label(), result.NextPosition, result.Total)
		edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, text)
		markup := cardKeyboard(sessionID, result.NextPosition)
		edit.ReplyMarkup = &markup
		if _, err := b.api.Send(edit); err != nil {
			b.logger.Debug("Failed to update card picker", zap.Error(err))
		}
		return
	}

	complete, err := b.coordinator.Complete(ctx, sessionID, profileFromUser(cb.From))
	if err != nil {
		b.logger.Error("Failed to complete session", zap.Error(err), zap.String("sessionID", sessionID))
		b.reply(chatID, "Не удалось завершить расклад. Попробуйте позже.")
		return
	}
	if complete.AlreadyCompleted {
		return
	}

	if complete.SpreadID != 0 {
		followUp := tgbotapi.NewMessage(chatID, "Хотите задать вопрос по этому раскладу?")
		followUp.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💬 Задать вопрос", fmt.Sprintf("ask:%d", complete.SpreadID)),
			),
		)
		if _, err := b.api.Send(followUp); err != nil {
			b.logger.Debug("Failed to send follow-up prompt", zap.Error(err))
		}
	}
}

func (b *Bot) sendHistory(ctx context.Context, userID, chatID int64) {
	records, err := b.store.ListHistory(ctx, userID, 5)
	if err != nil {
		b.logger.Warn("Failed to load history", zap.Error(err), zap.Int64("userID", userID))
		b.reply(chatID, "Не удалось загрузить историю раскладов.")
		return
	}
	if len(records) == 0 {
		b.reply(chatID, "У вас пока нет сохраненных раскладов.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 Ваши последние расклады:\n")
	for _, record := range records {
		names := make([]string, 0, len(record.Cards))
		for _, card := range record.Cards {
			names = append(names, card.Name)
		}
		sb.WriteString(fmt.Sprintf("\n%s — %s\n%s\n",
			record.CreatedAt.Format("02.01.2006"), record.Kind.DisplayName(), strings.Join(names, ", ")))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) cancelActive(ctx context.Context, userID, chatID int64) {
	sess, ok := b.coordinator.FindByUser(userID)
	if !ok {
		b.reply(chatID, "У вас нет активного расклада.")
		return
	}
	if err := b.coordinator.Cancel(ctx, sess.ID); err != nil {
		b.logger.Debug("Failed to cancel session", zap.Error(err), zap.String("sessionID", sess.ID))
	}
	b.sendMenu(chatID, "Расклад отменен.")
}

func (b *Bot) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonDailyCard),
			tgbotapi.NewKeyboardButton(buttonThreeSpread),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonHistory),
			tgbotapi.NewKeyboardButton(buttonCancel),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send menu", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("Failed to send reply", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// cardKeyboard строит ряд «рубашек» карт. Какую кнопку ни нажми, карта
// вытягивается случайно, кнопки дают лишь ощущение выбора.
func cardKeyboard(sessionID string, position int) tgbotapi.InlineKeyboardMarkup {
	data := fmt.Sprintf("pick:%s:%d", sessionID, position)
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for i := 0; i < 5; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🂠", data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func profileFromUser(user *tgbotapi.User) models.UserProfile {
	if user == nil {
		return models.UserProfile{}
	}
	return models.UserProfile{Name: user.FirstName}
}
