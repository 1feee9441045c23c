package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/backend"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/bot"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/config"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/database"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/deck"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/gateway"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/router"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/session"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/shared/logger"
)

func main() {
	// .env удобен при локальном запуске, в проде переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Service: "luna-tarot",
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Ошибка разбора DSN PostgreSQL", zap.Error(err))
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		appLogger.Fatal("Ошибка подключения к PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := pool.Ping(pingCtx); err != nil {
		pingCancel()
		appLogger.Fatal("PostgreSQL недоступен", zap.Error(err))
	}
	pingCancel()
	appLogger.Info("Подключение к PostgreSQL установлено")

	if err := database.ApplyMigrations(pool); err != nil {
		appLogger.Fatal("Ошибка применения миграций", zap.Error(err))
	}

	// Redis опционален: кэши умеют работать в памяти
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Redis недоступен", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		appLogger.Info("Подключение к Redis установлено", zap.String("addr", cfg.RedisAddr))
	}

	// AI-бэкенд и маршрутизатор моделей
	modelBackend, err := backend.NewModelBackend(backend.Config{
		ClientType: cfg.AIClientType,
		APIKey:     cfg.OpenRouterKey,
		BaseURL:    backendBaseURL(cfg),
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Ошибка создания AI-бэкенда", zap.Error(err))
	}

	registry := router.NewRegistry(cfg.PrimaryModels, cfg.FallbackModels, cfg.ModelCooldown)

	var preferred interfaces.PreferredModelCache
	var completed interfaces.CompletedRegistry
	if redisClient != nil {
		preferred = database.NewRedisPreferredCache(redisClient, registry, cfg.PreferredTTL, cfg.NeverPromote, appLogger)
		completed = database.NewRedisCompletedRegistry(redisClient, cfg.SessionTTL, appLogger)
	} else {
		preferred = router.NewMemoryPreferredCache(registry, cfg.PreferredTTL, cfg.NeverPromote)
		completed = session.NewMemoryCompletedRegistry(cfg.SessionTTL)
	}

	generator := router.New(modelBackend, registry, preferred, router.Config{
		MaxRetries:        cfg.MaxRetries,
		BaseBackoff:       cfg.BaseBackoff,
		BackoffMultiplier: cfg.BackoffMultiplier,
		MaxBackoff:        cfg.MaxBackoff,
		BaseTimeout:       cfg.BaseTimeout,
		HeavyTimeout:      cfg.HeavyTimeout,
		HeavyModels:       cfg.HeavyModels,
		NeverPromote:      cfg.NeverPromote,
	})

	// Telegram
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		appLogger.Fatal("Ошибка подключения к Telegram", zap.Error(err))
	}
	appLogger.Info("Telegram-бот авторизован", zap.String("username", api.Self.UserName))

	store := database.NewPgSpreadStore(pool, appLogger)
	messaging := gateway.NewTelegramGateway(api, appLogger)
	tarotDeck := deck.New(nil)

	coordinator := session.NewCoordinator(tarotDeck, store, messaging, generator, completed, session.Config{
		SessionTTL: cfg.SessionTTL,
	}, appLogger)

	handler := bot.New(api, coordinator, store, appLogger)

	// Периодическая чистка истекших сессий
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.CleanupCron, func() {
		sessions, registered := coordinator.CleanupExpired(ctx)
		if sessions > 0 || registered > 0 {
			appLogger.Info("Очистка истекших сессий",
				zap.Int("sessions", sessions),
				zap.Int("registryEntries", registered))
		}
	})
	if err != nil {
		appLogger.Fatal("Некорректное cron-выражение", zap.String("cron", cfg.CleanupCron), zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Метрики Prometheus
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info("Сервер метрик запущен", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Сервер метрик остановлен с ошибкой", zap.Error(err))
		}
	}()

	// Цикл обновлений Telegram
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := api.GetUpdatesChan(updateCfg)

	go func() {
		for update := range updates {
			go handler.HandleUpdate(ctx, update)
		}
	}()
	appLogger.Info("Сервис запущен, ожидаем обновления Telegram")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Получен сигнал завершения, останавливаемся...")

	api.StopReceivingUpdates()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Ошибка остановки сервера метрик", zap.Error(err))
	}

	appLogger.Info("Сервис остановлен")
}

func backendBaseURL(cfg *config.Config) string {
	if cfg.AIClientType == "ollama" {
		return cfg.OllamaBaseURL
	}
	return cfg.OpenRouterBaseURL
}
