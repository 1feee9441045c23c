// Package backend содержит реализации LLM-бэкендов за общим интерфейсом.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// Config содержит конфигурацию фабрики бэкендов.
type Config struct {
	ClientType string // openrouter или ollama
	APIKey     string
	BaseURL    string
}

// Compile-time check to ensure openRouterBackend implements ModelBackend
var _ interfaces.ModelBackend = (*openRouterBackend)(nil)

// openRouterBackend вызывает OpenRouter-совместимый chat-completion API.
type openRouterBackend struct {
	client *openaigo.Client
	logger *zap.Logger
}

func newOpenRouterBackend(cfg Config, logger *zap.Logger) (interfaces.ModelBackend, error) {
	if cfg.APIKey == "" {
		logger.Warn("OPENROUTER_KEY не установлен, доступны только бесплатные модели с лимитами")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}

	clientConfig := openaigo.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	// Собственного таймаута нет: каждый вызов получает контекст
	// с индивидуальным для модели дедлайном.
	clientConfig.HTTPClient = &http.Client{}

	logger.Info("OpenRouter клиент создан", zap.String("baseURL", baseURL))
	return &openRouterBackend{
		client: openaigo.NewClientWithConfig(clientConfig),
		logger: logger.Named("OpenRouterBackend"),
	}, nil
}

// Complete выполняет один запрос к модели и возвращает сырой текстовый ответ.
func (b *openRouterBackend) Complete(ctx context.Context, model, systemPrompt, userPrompt string, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openaigo.ChatCompletionRequest{
		Model: model,
		Messages: []openaigo.ChatCompletionMessage{
			{
				Role:    openaigo.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openaigo.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.7,
		MaxTokens:   1500,
		TopP:        0.95,
	}

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		b.logger.Warn("Ошибка от OpenRouter API",
			zap.String("model", model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classifyError(model, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, classifyError(model, fmt.Errorf("пустой ответ от API: не получены варианты"))
	}

	content := resp.Choices[0].Message.Content
	b.logger.Debug("Ответ от OpenRouter получен",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(content)))
	return content, nil
}

// NewModelBackend создает бэкенд в зависимости от конфигурации.
func NewModelBackend(cfg Config, logger *zap.Logger) (interfaces.ModelBackend, error) {
	switch strings.ToLower(cfg.ClientType) {
	case "", "openrouter", "openai":
		return newOpenRouterBackend(cfg, logger)
	case "ollama":
		return newOllamaBackend(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: %q", cfg.ClientType)
	}
}
