// Package database содержит адаптеры хранилищ: PostgreSQL для раскладов
// и Redis для кэшей.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// Compile-time check to ensure pgSpreadStore implements SpreadStore
var _ interfaces.SpreadStore = (*pgSpreadStore)(nil)

type pgSpreadStore struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgSpreadStore creates a new PostgreSQL-backed SpreadStore.
func NewPgSpreadStore(db interfaces.DBTX, logger *zap.Logger) interfaces.SpreadStore {
	return &pgSpreadStore{
		db:     db,
		logger: logger.Named("PgSpreadStore"),
	}
}

// spreadRow — строка таблицы spreads для pgxscan.
type spreadRow struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	SpreadType     string    `db:"spread_type"`
	Topic          string    `db:"topic"`
	Cards          []byte    `db:"cards"`
	Interpretation string    `db:"interpretation"`
	CreatedAt      time.Time `db:"created_at"`
}

func (row *spreadRow) toRecord() (*models.SpreadRecord, error) {
	kind, err := models.ParseSpreadKind(row.SpreadType)
	if err != nil {
		return nil, err
	}
	var cards []models.DrawnCard
	if len(row.Cards) > 0 {
		if err := json.Unmarshal(row.Cards, &cards); err != nil {
			return nil, fmt.Errorf("поврежденные данные карт расклада %d: %w", row.ID, err)
		}
	}
	return &models.SpreadRecord{
		ID:             row.ID,
		UserID:         row.UserID,
		Kind:           kind,
		Topic:          row.Topic,
		Cards:          cards,
		Interpretation: row.Interpretation,
		CreatedAt:      row.CreatedAt,
	}, nil
}

// CreateSpread сохраняет расклад и возвращает его идентификатор.
func (s *pgSpreadStore) CreateSpread(ctx context.Context, userID int64, kind models.SpreadKind, topic string, cards []models.DrawnCard) (int64, error) {
	cardsJSON, err := json.Marshal(cards)
	if err != nil {
		return 0, fmt.Errorf("не удалось сериализовать карты: %w", err)
	}

	query := `INSERT INTO spreads (user_id, spread_type, topic, cards) VALUES ($1, $2, $3, $4) RETURNING id`
	s.logger.Debug("Executing query", zap.String("query", query), zap.Int64("userID", userID), zap.String("kind", string(kind)))

	var id int64
	err = s.db.QueryRow(ctx, query, userID, string(kind), topic, cardsJSON).Scan(&id)
	if err != nil {
		s.logger.Error("Failed to create spread in postgres", zap.Error(err), zap.Int64("userID", userID))
		return 0, fmt.Errorf("failed to create spread in postgres: %w", err)
	}
	s.logger.Info("Spread created", zap.Int64("spreadID", id), zap.Int64("userID", userID))
	return id, nil
}

// AttachInterpretation прикрепляет текст интерпретации к раскладу.
func (s *pgSpreadStore) AttachInterpretation(ctx context.Context, spreadID int64, text string) error {
	query := `UPDATE spreads SET interpretation = $2 WHERE id = $1`
	s.logger.Debug("Executing query", zap.String("query", query), zap.Int64("spreadID", spreadID))

	tag, err := s.db.Exec(ctx, query, spreadID, text)
	if err != nil {
		s.logger.Error("Failed to attach interpretation", zap.Error(err), zap.Int64("spreadID", spreadID))
		return fmt.Errorf("failed to attach interpretation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSpreadNotFound
	}
	return nil
}

// GetSpread возвращает сохраненный расклад.
func (s *pgSpreadStore) GetSpread(ctx context.Context, spreadID int64) (*models.SpreadRecord, error) {
	query := `SELECT id, user_id, spread_type, topic, cards, COALESCE(interpretation, '') AS interpretation, created_at
	          FROM spreads WHERE id = $1`
	s.logger.Debug("Executing query", zap.String("query", query), zap.Int64("spreadID", spreadID))

	var row spreadRow
	err := pgxscan.Get(ctx, s.db, &row, query, spreadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("Spread not found", zap.Int64("spreadID", spreadID))
			return nil, models.ErrSpreadNotFound
		}
		s.logger.Error("Failed to get spread from postgres", zap.Error(err), zap.Int64("spreadID", spreadID))
		return nil, fmt.Errorf("failed to get spread from postgres: %w", err)
	}
	return row.toRecord()
}

// ListHistory возвращает последние расклады пользователя.
func (s *pgSpreadStore) ListHistory(ctx context.Context, userID int64, limit int) ([]models.SpreadRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT id, user_id, spread_type, topic, cards, COALESCE(interpretation, '') AS interpretation, created_at
	          FROM spreads WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	s.logger.Debug("Executing query", zap.String("query", query), zap.Int64("userID", userID), zap.Int("limit", limit))

	var rows []*spreadRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, userID, limit); err != nil {
		s.logger.Error("Failed to list spread history", zap.Error(err), zap.Int64("userID", userID))
		return nil, fmt.Errorf("failed to list spread history: %w", err)
	}

	records := make([]models.SpreadRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			s.logger.Warn("Пропускаем поврежденную запись истории", zap.Int64("spreadID", row.ID), zap.Error(err))
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// CreateQuestion сохраняет вопрос пользователя по раскладу.
func (s *pgSpreadStore) CreateQuestion(ctx context.Context, spreadID int64, text string) (int64, error) {
	query := `INSERT INTO spread_questions (spread_id, question) VALUES ($1, $2) RETURNING id`
	s.logger.Debug("Executing query", zap.String("query", query), zap.Int64("spreadID", spreadID))

	var id int64
	err := s.db.QueryRow(ctx, query, spreadID, text).Scan(&id)
	if err != nil {
		s.logger.Error("Failed to create question", zap.Error(err), zap.Int64("spreadID", spreadID))
		return 0, fmt.Errorf("failed to create question: %w", err)
	}
	return id, nil
}

// AttachAnswer прикрепляет ответ к сохраненному вопросу.
func (s *pgSpreadStore) AttachAnswer(ctx context.Context, questionID int64, text string) error {
	query := `UPDATE spread_questions SET answer = $2, answered_at = NOW() WHERE id = $1`
	s.logger.Debug("Executing query", zap.String("query", query), zap.Int64("questionID", questionID))

	tag, err := s.db.Exec(ctx, query, questionID, text)
	if err != nil {
		s.logger.Error("Failed to attach answer", zap.Error(err), zap.Int64("questionID", questionID))
		return fmt.Errorf("failed to attach answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrQuestionNotFound
	}
	return nil
}
