package interfaces

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// DBTX абстрагирует pgxpool.Pool и pgx.Tx для репозиториев.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SpreadStore — контракт хранилища раскладов и вопросов.
type SpreadStore interface {
	CreateSpread(ctx context.Context, userID int64, kind models.SpreadKind, topic string, cards []models.DrawnCard) (int64, error)
	AttachInterpretation(ctx context.Context, spreadID int64, text string) error
	GetSpread(ctx context.Context, spreadID int64) (*models.SpreadRecord, error)
	ListHistory(ctx context.Context, userID int64, limit int) ([]models.SpreadRecord, error)
	CreateQuestion(ctx context.Context, spreadID int64, text string) (int64, error)
	AttachAnswer(ctx context.Context, questionID int64, text string) error
}

// MessagingGateway — узкий контракт чат-платформы.
// Edit обязан возвращать models.ErrMessageNotEditable, когда сообщение
// не найдено или не подлежит редактированию.
type MessagingGateway interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
	SendCardMedia(ctx context.Context, chatID int64, title string, cards []models.DrawnCard) error
}

// Deck вытягивает n различных карт с ориентацией.
type Deck interface {
	Draw(ctx context.Context, n int, topic string) ([]models.DrawnCard, error)
}

// ModelBackend — один вызываемый LLM-эндпоинт.
// Ошибка должна быть классифицируемой через *models.BackendError.
type ModelBackend interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string, timeout time.Duration) (any, error)
}

// PreferredModelCache — кэш предпочтительной модели пользователя.
type PreferredModelCache interface {
	Get(ctx context.Context, userID int64) (string, bool)
	Set(ctx context.Context, userID int64, model string)
	Delete(ctx context.Context, userID int64)
}

// Generator — контракт роутера моделей для координатора сессий.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult
	GenerateAnswer(ctx context.Context, req models.GenerationRequest, record *models.SpreadRecord) models.GenerationResult
}

// CompletedRegistry — TTL-реестр завершенных сессий, независимая
// защита от повторного завершения уже вытесненной сессии.
type CompletedRegistry interface {
	Add(ctx context.Context, sessionID string)
	IsCompleted(ctx context.Context, sessionID string) bool
	Cleanup(ctx context.Context) int
}
