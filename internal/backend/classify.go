package backend

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// classifyError приводит ошибку вызова бэкенда к классифицированной
// *models.BackendError для таксономии роутера.
func classifyError(model string, err error) *models.BackendError {
	berr := &models.BackendError{Class: models.ErrClassUnknown, Model: model, Err: err}

	if errors.Is(err, context.DeadlineExceeded) {
		berr.Class = models.ErrClassTimeout
		return berr
	}

	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusNotFound:
			berr.Class = models.ErrClassNotFound
		case http.StatusTooManyRequests:
			berr.Class = models.ErrClassRateLimit
		case http.StatusUnauthorized:
			berr.Class = models.ErrClassUnauthorized
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			berr.Class = models.ErrClassUnavailable
		default:
			berr.Class = models.ErrClassAPI
		}
		return berr
	}

	// Фолбэк: классификация по тексту ошибки.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		berr.Class = models.ErrClassNotFound
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit"):
		berr.Class = models.ErrClassRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded"):
		berr.Class = models.ErrClassTimeout
	case strings.Contains(msg, "503") || strings.Contains(msg, "502") || strings.Contains(msg, "service unavailable"):
		berr.Class = models.ErrClassUnavailable
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		berr.Class = models.ErrClassUnauthorized
	case strings.Contains(msg, "api") || strings.Contains(msg, "openrouter"):
		berr.Class = models.ErrClassAPI
	}
	return berr
}

// ParseRetryAfter переводит заголовок Retry-After в задержку.
// Нечисловые и отрицательные значения игнорируются.
func ParseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
