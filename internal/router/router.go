// Package router реализует перебор LLM-бэкендов с circuit-breaker,
// backoff, валидацией ответов и выбором лучшего fallback-кандидата.
package router

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/prompts"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_ai_requests_total",
			Help: "Total number of requests to LLM backends.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luna_ai_request_duration_seconds",
			Help:    "Histogram of LLM request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiFallbackAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_ai_fallback_accepted_total",
			Help: "Total number of degraded fallback-accepted responses.",
		},
		[]string{"model"},
	)
)

// Config содержит настройки перебора моделей.
type Config struct {
	MaxRetries        int
	BaseBackoff       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	BaseTimeout       time.Duration
	HeavyTimeout      time.Duration
	HeavyModels       []string
	// NeverPromote — модель, которую нельзя продвигать в начало списка
	// и кэшировать как предпочтительную.
	NeverPromote string
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 1500 * time.Millisecond
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 1.5
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 3 * time.Second
	}
	if c.BaseTimeout <= 0 {
		c.BaseTimeout = 60 * time.Second
	}
	if c.HeavyTimeout <= 0 {
		c.HeavyTimeout = 90 * time.Second
	}
}

// Router перебирает модели строго последовательно: одна модель за раз,
// учет circuit-breaker остается детерминированным.
type Router struct {
	backend   interfaces.ModelBackend
	registry  *Registry
	preferred interfaces.PreferredModelCache
	cfg       Config
	heavy     map[string]struct{}

	sleep func(ctx context.Context, d time.Duration) error
}

// New создает роутер моделей.
func New(backend interfaces.ModelBackend, registry *Registry, preferred interfaces.PreferredModelCache, cfg Config) *Router {
	cfg.applyDefaults()
	heavy := make(map[string]struct{}, len(cfg.HeavyModels))
	for _, m := range cfg.HeavyModels {
		heavy[m] = struct{}{}
	}
	return &Router{
		backend:   backend,
		registry:  registry,
		preferred: preferred,
		cfg:       cfg,
		heavy:     heavy,
		sleep:     sleepCtx,
	}
}

// Generate строит промпт интерпретации расклада и перебирает модели.
func (r *Router) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	return r.run(ctx, req.UserID, req.Model, prompts.SystemPrompt, prompts.SpreadPrompt(req))
}

// GenerateAnswer отвечает на дополнительный вопрос по сохраненному раскладу.
func (r *Router) GenerateAnswer(ctx context.Context, req models.GenerationRequest, record *models.SpreadRecord) models.GenerationResult {
	userPrompt := prompts.QuestionPrompt(record, req.Question, req.Profile)
	return r.run(ctx, req.UserID, req.Model, prompts.SystemPrompt, userPrompt)
}

type fallbackCandidate struct {
	text   string
	model  string
	reason string
	score  float64
}

func (r *Router) run(ctx context.Context, userID int64, explicitModel, systemPrompt, userPrompt string) models.GenerationResult {
	candidates := r.resolveCandidates(ctx, userID, explicitModel)
	if len(candidates) == 0 {
		log.Error().Msg("Все модели временно заблокированы circuit-breaker/backoff")
		return models.GenerationResult{
			Kind:     models.ResultFailed,
			Failures: map[string]string{"*": "all_models_circuit_broken"},
			Err:      models.ErrModelInCooldown,
		}
	}

	var best *fallbackCandidate
	failures := make(map[string]string)

	for _, model := range candidates {
		if r.registry.InCooldown(model) {
			// Модель могла попасть в cooldown уже после формирования списка.
			continue
		}

		text, berr := r.callModel(ctx, model, systemPrompt, userPrompt)
		if berr != nil {
			failures[model] = string(berr.Class)
			r.registry.HandleError(model, berr.Class)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len([]rune(text)) < fallbackAcceptMin {
			failures[model] = "empty_or_tiny_response"
			r.registry.RecordFailure(model, models.ErrClassUnknown)
			continue
		}

		valid, reason := Validate(text)
		if !valid {
			// Невалидный ответ — неудача модели, даже если текст
			// остается кандидатом на деградацию.
			r.registry.RecordFailure(model, models.ErrClassValidation)
			score := CandidateScore(text, reason)
			log.Debug().Str("model", model).Str("reason", reason).Float64("score", score).
				Msg("Модель добавлена в fallback-кандидаты")
			if best == nil || score > best.score {
				best = &fallbackCandidate{text: text, model: model, reason: reason, score: score}
			}
			failures[model] = reason
			continue
		}

		r.registry.RecordSuccess(model)
		if model != r.cfg.NeverPromote {
			r.preferred.Set(ctx, userID, model)
		}
		log.Info().Str("model", model).Int("length", len([]rune(text))).Msg("Получен валидный ответ")
		return models.GenerationResult{
			Kind:  models.ResultValidated,
			Text:  CleanResponse(text),
			Model: model,
		}
	}

	if best != nil {
		// Деградация: принимаем лучший из невалидных кандидатов.
		// Модель считается успешной, но предпочтительной не кэшируется.
		r.registry.RecordSuccess(best.model)
		aiFallbackAccepted.With(prometheus.Labels{"model": best.model}).Inc()
		log.Warn().Str("model", best.model).Str("reason", best.reason).Float64("score", best.score).
			Msg("Выбран fallback-кандидат")
		return models.GenerationResult{
			Kind:  models.ResultFallbackAccepted,
			Text:  CleanResponse(best.text),
			Model: best.model,
		}
	}

	log.Error().Interface("failures", failures).Msg("Ни одна модель не дала пригодного ответа")
	return models.GenerationResult{
		Kind:     models.ResultFailed,
		Failures: failures,
		Err:      models.ErrAllModelsFailed,
	}
}

// resolveCandidates формирует порядок моделей: явное переопределение
// обходит фильтрацию доступности (кроме cooldown), иначе primary+fallback
// с продвижением предпочтительной модели пользователя в начало.
func (r *Router) resolveCandidates(ctx context.Context, userID int64, explicitModel string) []string {
	if explicitModel != "" {
		if r.registry.InCooldown(explicitModel) {
			return nil
		}
		return []string{explicitModel}
	}

	candidates := r.registry.Available()
	preferred, ok := r.preferred.Get(ctx, userID)
	if !ok || preferred == r.cfg.NeverPromote {
		return candidates
	}
	for i, model := range candidates {
		if model == preferred {
			if i > 0 {
				candidates = append(candidates[:i], candidates[i+1:]...)
				candidates = append([]string{preferred}, candidates...)
				log.Debug().Str("model", preferred).Msg("Начинаем с предпочтительной модели")
			}
			break
		}
	}
	return candidates
}

// callModel делает до MaxRetries попыток вызова одной модели с backoff
// между попытками. Реестр не мутирует — это забота вызывающего цикла.
func (r *Router) callModel(ctx context.Context, model, systemPrompt, userPrompt string) (string, *models.BackendError) {
	timeout := r.timeoutFor(model)
	var lastErr *models.BackendError

	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		start := time.Now()
		payload, err := r.backend.Complete(ctx, model, systemPrompt, userPrompt, timeout)
		duration := time.Since(start)

		if err == nil {
			aiRequestsTotal.With(prometheus.Labels{"model": model, "status": "success"}).Inc()
			aiRequestDuration.With(prometheus.Labels{"model": model}).Observe(duration.Seconds())
			return ExtractText(payload), nil
		}

		berr := asBackendError(model, err)
		lastErr = berr
		aiRequestsTotal.With(prometheus.Labels{"model": model, "status": string(berr.Class)}).Inc()
		log.Warn().Str("model", model).Int("attempt", attempt+1).Str("class", string(berr.Class)).
			Err(err).Msg("Ошибка вызова модели")

		switch berr.Class {
		case models.ErrClassTimeout:
			if attempt == r.cfg.MaxRetries-1 {
				return "", berr
			}
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				return "", berr
			}
		case models.ErrClassRateLimit:
			if attempt == r.cfg.MaxRetries-1 {
				return "", berr
			}
			wait := r.backoff(attempt)
			if berr.RetryAfter > 0 {
				wait = berr.RetryAfter
				if wait > r.cfg.MaxBackoff {
					wait = r.cfg.MaxBackoff
				}
			}
			if err := r.sleep(ctx, wait); err != nil {
				return "", berr
			}
		default:
			// 404/401 и прочие классы: дальнейшие попытки бессмысленны.
			return "", berr
		}
	}
	return "", lastErr
}

// backoff возвращает задержку перед повтором, ограниченную MaxBackoff.
func (r *Router) backoff(attempt int) time.Duration {
	backoff := float64(r.cfg.BaseBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= r.cfg.BackoffMultiplier
	}
	if d := time.Duration(backoff); d < r.cfg.MaxBackoff {
		return d
	}
	return r.cfg.MaxBackoff
}

func (r *Router) timeoutFor(model string) time.Duration {
	if _, ok := r.heavy[model]; ok {
		return r.cfg.HeavyTimeout
	}
	return r.cfg.BaseTimeout
}

func asBackendError(model string, err error) *models.BackendError {
	var berr *models.BackendError
	if errors.As(err, &berr) {
		return berr
	}
	return &models.BackendError{Class: models.ErrClassUnknown, Model: model, Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
