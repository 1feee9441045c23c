package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// editOrSend пытается отредактировать отслеживаемое сообщение; если
// платформа сообщает, что сообщение не найдено или не редактируется,
// отправляет новое и возвращает его идентификатор. Сырая ошибка
// «message not found» никогда не доходит до пользователя.
func (c *Coordinator) editOrSend(ctx context.Context, chatID int64, messageID int, text string) (int, error) {
	if messageID != 0 {
		newID, err := c.gateway.Edit(ctx, chatID, messageID, text)
		if err == nil {
			return newID, nil
		}
		if !errors.Is(err, models.ErrMessageNotEditable) {
			c.logger.Warn("Не удалось отредактировать сообщение, отправляем новое",
				zap.Int64("chatID", chatID), zap.Int("messageID", messageID), zap.Error(err))
		}
	}
	return c.gateway.Send(ctx, chatID, text)
}

// deleteQuietly удаляет сообщение, игнорируя ошибки: очистка интерфейса
// не должна ломать основной поток.
func (c *Coordinator) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := c.gateway.Delete(ctx, chatID, messageID); err != nil {
		c.logger.Debug("Не удалось удалить сообщение",
			zap.Int64("chatID", chatID), zap.Int("messageID", messageID), zap.Error(err))
	}
}
