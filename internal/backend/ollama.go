package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// Compile-time check to ensure ollamaBackend implements ModelBackend
var _ interfaces.ModelBackend = (*ollamaBackend)(nil)

// ollamaBackend вызывает локальную Ollama через нативный API.
type ollamaBackend struct {
	client *api.Client
	logger *zap.Logger
}

func newOllamaBackend(cfg Config, logger *zap.Logger) (interfaces.ModelBackend, error) {
	// api.NewClient требует URL без суффикса /v1.
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL %q: %w", baseURL, err)
	}

	logger.Info("Ollama клиент создан", zap.String("baseURL", baseURL))
	return &ollamaBackend{
		client: api.NewClient(parsedURL, &http.Client{}),
		logger: logger.Named("OllamaBackend"),
	}, nil
}

// Complete выполняет один запрос к локальной модели.
func (b *ollamaBackend) Complete(ctx context.Context, model, systemPrompt, userPrompt string, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.7,
			"top_p":       0.95,
		},
	}

	start := time.Now()
	var resp api.ChatResponse
	err := b.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		b.logger.Warn("Ошибка от Ollama API",
			zap.String("model", model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classifyError(model, err)
	}

	if resp.Message.Content == "" {
		return nil, classifyError(model, fmt.Errorf("пустой ответ от Ollama"))
	}

	b.logger.Debug("Ответ от Ollama получен",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(resp.Message.Content)))
	return resp.Message.Content, nil
}
