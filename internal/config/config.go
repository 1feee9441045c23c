package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию сервиса таро-интерпретаций
type Config struct {
	// Общие настройки
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9091"`

	// Настройки Telegram
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// Настройки AI-клиента
	AIClientType      string   `envconfig:"AI_CLIENT_TYPE" default:"openrouter"`
	OpenRouterKey     string   `envconfig:"OPENROUTER_KEY"`
	OpenRouterBaseURL string   `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	OllamaBaseURL     string   `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	PrimaryModels     []string `envconfig:"PRIMARY_MODELS" default:"deepseek/deepseek-chat-v3-0324:free,meta-llama/llama-3.3-70b-instruct:free,google/gemini-2.0-flash-exp:free"`
	FallbackModels    []string `envconfig:"FALLBACK_MODELS" default:"mistralai/mistral-7b-instruct:free,microsoft/wizardlm-2-8x22b:free,qwen/qwen-2.5-72b-instruct:free"`
	HeavyModels       []string `envconfig:"HEAVY_MODELS" default:"meta-llama/llama-3.3-70b-instruct,microsoft/wizardlm-2-8x22b:free"`
	NeverPromote      string   `envconfig:"NEVER_PROMOTE_MODEL" default:"deepseek/deepseek-r1:free"`

	// Настройки ретраев и таймаутов генерации
	MaxRetries        int           `envconfig:"AI_MAX_RETRIES" default:"2"`
	BaseBackoff       time.Duration `envconfig:"AI_BASE_BACKOFF" default:"1500ms"`
	BackoffMultiplier float64       `envconfig:"AI_BACKOFF_MULTIPLIER" default:"1.5"`
	MaxBackoff        time.Duration `envconfig:"AI_MAX_BACKOFF" default:"3s"`
	BaseTimeout       time.Duration `envconfig:"AI_BASE_TIMEOUT" default:"60s"`
	HeavyTimeout      time.Duration `envconfig:"AI_HEAVY_TIMEOUT" default:"90s"`
	ModelCooldown     time.Duration `envconfig:"AI_MODEL_COOLDOWN" default:"5m"`
	PreferredTTL      time.Duration `envconfig:"AI_PREFERRED_TTL" default:"30m"`

	// Настройки сессий
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"1h"`
	CleanupCron  string        `envconfig:"CLEANUP_CRON" default:"@every 10m"`
	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"memory"`

	// Настройки PostgreSQL
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"luna"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"luna_tarot"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`

	// Настройки Redis (используется при CACHE_BACKEND=redis)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if cfg.AIClientType == "openrouter" && cfg.OpenRouterKey == "" {
		log.Printf("ВНИМАНИЕ: OPENROUTER_KEY не задан, запросы к OpenRouter будут отклонены")
	}

	log.Printf("Конфигурация загружена:")
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  AI Client Type: %s", cfg.AIClientType)
	log.Printf("  Primary Models: %s", strings.Join(cfg.PrimaryModels, ", "))
	log.Printf("  Fallback Models: %s", strings.Join(cfg.FallbackModels, ", "))
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Cache Backend: %s", cfg.CacheBackend)
	log.Printf("  Session TTL: %v", cfg.SessionTTL)
	log.Printf("  Cleanup Cron: %s", cfg.CleanupCron)
	log.Printf("  Metrics Port: %s", cfg.MetricsPort)

	return &cfg, nil
}
