package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionNotFound   = errors.New("сессия не найдена")
	ErrSessionCompleted  = errors.New("сессия уже завершена")
	ErrWrongPosition     = errors.New("неверная позиция карты")
	ErrNoCardsSelected   = errors.New("в сессии нет выбранных карт")
	ErrUnknownSpreadKind = errors.New("неизвестный тип расклада")
	ErrSpreadNotFound    = errors.New("расклад не найден")
	ErrQuestionNotFound  = errors.New("вопрос не найден")
	ErrModelInCooldown   = errors.New("модель временно недоступна")
	ErrAllModelsFailed   = errors.New("все модели недоступны")
	ErrEmptyDeck         = errors.New("в колоде недостаточно карт")
	// ErrMessageNotEditable возвращается шлюзом, когда сообщение
	// не найдено или не может быть отредактировано.
	ErrMessageNotEditable = errors.New("сообщение нельзя отредактировать")
)

// ErrorClass классифицирует ошибки обращения к LLM-бэкенду.
type ErrorClass string

const (
	ErrClassTimeout      ErrorClass = "timeout"
	ErrClassRateLimit    ErrorClass = "rate_limit_429"
	ErrClassNotFound     ErrorClass = "model_not_found_404"
	ErrClassUnauthorized ErrorClass = "auth_error"
	ErrClassUnavailable  ErrorClass = "service_unavailable"
	ErrClassAPI          ErrorClass = "api_error"
	ErrClassValidation   ErrorClass = "validation_failed"
	ErrClassUnknown      ErrorClass = "unknown_error"
)

// Permanent сообщает, исключает ли ошибка модель до конца работы процесса.
func (c ErrorClass) Permanent() bool {
	return c == ErrClassNotFound || c == ErrClassUnauthorized
}

// BackendError — классифицированная ошибка вызова модели.
type BackendError struct {
	Class      ErrorClass
	Model      string
	RetryAfter time.Duration // подсказка сервера при 429, 0 если отсутствует
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("модель %s: %s: %v", e.Model, e.Class, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
