package gateway

import (
	"context"
	"fmt"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// Compile-time check to ensure telegramGateway implements MessagingGateway
var _ interfaces.MessagingGateway = (*telegramGateway)(nil)

type telegramGateway struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegramGateway creates a MessagingGateway backed by the Telegram Bot API.
func NewTelegramGateway(bot *tgbotapi.BotAPI, logger *zap.Logger) interfaces.MessagingGateway {
	return &telegramGateway{
		bot:    bot,
		logger: logger.Named("TelegramGateway"),
	}
}

// Send отправляет текст пользователю, при необходимости разбивая его на
// несколько сообщений. Возвращает идентификатор последнего отправленного.
func (g *telegramGateway) Send(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var lastID int
	for _, chunk := range splitIntoChunks(escapeMarkdown(text), telegramSafeLimit) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdown
		sent, err := g.bot.Send(msg)
		if err != nil {
			// Telegram отклоняет сообщение с битой разметкой, повторяем без нее.
			if strings.Contains(err.Error(), "can't parse entities") {
				msg.ParseMode = ""
				sent, err = g.bot.Send(msg)
			}
			if err != nil {
				g.logger.Error("Failed to send telegram message", zap.Error(err), zap.Int64("chatID", chatID))
				return lastID, fmt.Errorf("failed to send telegram message: %w", err)
			}
		}
		lastID = sent.MessageID
	}
	return lastID, nil
}

// Edit редактирует ранее отправленное сообщение. Если Telegram сообщает, что
// сообщение нельзя отредактировать, возвращает models.ErrMessageNotEditable,
// чтобы вызывающий мог отправить новое.
func (g *telegramGateway) Edit(ctx context.Context, chatID int64, messageID int, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	runes := []rune(text)
	if len(runes) > telegramSafeLimit {
		// Редактирование не поддерживает разбиение, отдаем наверх.
		return 0, models.ErrMessageNotEditable
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	sent, err := g.bot.Send(edit)
	if err != nil {
		errText := err.Error()
		switch {
		case strings.Contains(errText, "message is not modified"):
			return messageID, nil
		case strings.Contains(errText, "message to edit not found"),
			strings.Contains(errText, "message can't be edited"):
			return 0, models.ErrMessageNotEditable
		case strings.Contains(errText, "can't parse entities"):
			edit.ParseMode = ""
			sent, err = g.bot.Send(edit)
			if err == nil {
				return sent.MessageID, nil
			}
		}
		g.logger.Warn("Failed to edit telegram message", zap.Error(err), zap.Int64("chatID", chatID), zap.Int("messageID", messageID))
		return 0, fmt.Errorf("failed to edit telegram message: %w", err)
	}
	return sent.MessageID, nil
}

// Delete удаляет сообщение. Ошибка удаления не критична для вызывающего.
func (g *telegramGateway) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil {
		g.logger.Debug("Failed to delete telegram message", zap.Error(err), zap.Int64("chatID", chatID), zap.Int("messageID", messageID))
		return fmt.Errorf("failed to delete telegram message: %w", err)
	}
	return nil
}

// SendCardMedia отправляет изображения выпавших карт одной медиагруппой.
// Если файлы изображений недоступны, возвращает ошибку — вызывающий
// отправит текстовое описание карт.
func (g *telegramGateway) SendCardMedia(ctx context.Context, chatID int64, title string, cards []models.DrawnCard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(cards) == 0 {
		return fmt.Errorf("нет карт для отправки")
	}

	media := make([]interface{}, 0, len(cards))
	for i, card := range cards {
		if _, err := os.Stat(card.ImagePath); err != nil {
			return fmt.Errorf("изображение карты недоступно: %w", err)
		}
		photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(card.ImagePath))
		caption := fmt.Sprintf("%s (%s)", card.Name, card.Orientation.Label())
		if card.Position != "" {
			caption = fmt.Sprintf("%s: %s", card.Position, caption)
		}
		if i == 0 && title != "" {
			caption = title + "\n" + caption
		}
		photo.Caption = caption
		media = append(media, photo)
	}

	if len(media) == 1 {
		photo := media[0].(tgbotapi.InputMediaPhoto)
		msg := tgbotapi.NewPhoto(chatID, photo.Media)
		msg.Caption = photo.Caption
		if _, err := g.bot.Send(msg); err != nil {
			g.logger.Warn("Failed to send card photo", zap.Error(err), zap.Int64("chatID", chatID))
			return fmt.Errorf("failed to send card photo: %w", err)
		}
		return nil
	}

	group := tgbotapi.NewMediaGroup(chatID, media)
	if _, err := g.bot.SendMediaGroup(group); err != nil {
		g.logger.Warn("Failed to send card media group", zap.Error(err), zap.Int64("chatID", chatID))
		return fmt.Errorf("failed to send card media group: %w", err)
	}
	return nil
}
