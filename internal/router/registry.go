package router

import (
	"sync"
	"time"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// modelState — учет неудач и блокировок одной модели.
type modelState struct {
	failures     int
	lastFailure  time.Time
	failureTypes []models.ErrorClass
	backoffUntil time.Time // временный backoff после 429
	permanent    bool      // 404/401: модель исключена до конца процесса
	successes    int
	lastUsed     time.Time
}

// Registry ведет учет состояния моделей для circuit-breaker и backoff.
// Инжектируется в роутер, никогда не является синглтоном процесса.
type Registry struct {
	mu sync.Mutex

	primary  []string
	fallback []string
	states   map[string]*modelState

	maxConsecutiveFailures int
	cooldown               time.Duration

	now func() time.Time
}

// NewRegistry создает реестр моделей: primary пробуются первыми, fallback — запас.
func NewRegistry(primary, fallback []string, cooldown time.Duration) *Registry {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &Registry{
		primary:                primary,
		fallback:               fallback,
		states:                 make(map[string]*modelState),
		maxConsecutiveFailures: 3,
		cooldown:               cooldown,
		now:                    time.Now,
	}
}

// Available возвращает модели в порядке primary, затем fallback, отфильтровав
// исключенные навсегда, находящиеся в temp backoff и под circuit-breaker.
// Истекшие backoff снимаются лениво при обращении.
func (r *Registry) Available() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	base := make([]string, 0, len(r.primary)+len(r.fallback))
	base = append(base, r.primary...)
	base = append(base, r.fallback...)

	available := make([]string, 0, len(base))
	for _, model := range base {
		st, ok := r.states[model]
		if !ok {
			available = append(available, model)
			continue
		}
		if st.permanent {
			continue
		}
		if !st.backoffUntil.IsZero() {
			if now.Before(st.backoffUntil) {
				continue
			}
			st.backoffUntil = time.Time{}
		}
		if st.failures >= r.maxConsecutiveFailures && now.Sub(st.lastFailure) < r.cooldown {
			continue
		}
		available = append(available, model)
	}
	return available
}

// InCooldown сообщает, заблокирована ли модель сейчас (permanent, backoff
// или circuit-breaker). Используется для явного переопределения модели и
// при продвижении предпочтительной модели.
func (r *Registry) InCooldown(model string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[model]
	if !ok {
		return false
	}
	now := r.now()
	if st.permanent {
		return true
	}
	if !st.backoffUntil.IsZero() && now.Before(st.backoffUntil) {
		return true
	}
	return st.failures >= r.maxConsecutiveFailures && now.Sub(st.lastFailure) < r.cooldown
}

// RecordSuccess сбрасывает счетчик неудач и временный backoff модели.
func (r *Registry) RecordSuccess(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state(model)
	st.successes++
	st.failures = 0
	st.failureTypes = nil
	st.backoffUntil = time.Time{}
	st.lastUsed = r.now()
}

// RecordFailure увеличивает счетчик последовательных неудач модели.
func (r *Registry) RecordFailure(model string, class models.ErrorClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordFailureLocked(model, class)
}

func (r *Registry) recordFailureLocked(model string, class models.ErrorClass) {
	st := r.state(model)
	st.failures++
	st.lastFailure = r.now()
	st.failureTypes = append(st.failureTypes, class)
	if len(st.failureTypes) > 10 {
		st.failureTypes = st.failureTypes[len(st.failureTypes)-5:]
	}
}

// HandleError применяет таксономию ошибок: 404/401 исключают модель навсегда,
// 429 парковка с экспоненциальным backoff, остальное — обычная неудача.
func (r *Registry) HandleError(model string, class models.ErrorClass) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case class.Permanent():
		r.state(model).permanent = true
	case class == models.ErrClassRateLimit:
		r.recordFailureLocked(model, class)
		st := r.state(model)
		backoff := 60 * time.Second
		if st.failures > 1 {
			// Сдвиг ограничен: дальше все равно действует потолок в час,
			// а больший сдвиг переполняет int64.
			shift := st.failures - 1
			if shift > 6 {
				shift = 6
			}
			backoff = backoff << shift
		}
		if backoff > time.Hour {
			backoff = time.Hour
		}
		st.backoffUntil = r.now().Add(backoff)
	default:
		r.recordFailureLocked(model, class)
	}
}

// Excluded сообщает, исключена ли модель навсегда.
func (r *Registry) Excluded(model string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[model]
	return ok && st.permanent
}

// Failures возвращает текущее число последовательных неудач модели.
func (r *Registry) Failures(model string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[model]; ok {
		return st.failures
	}
	return 0
}

func (r *Registry) state(model string) *modelState {
	st, ok := r.states[model]
	if !ok {
		st = &modelState{}
		r.states[model] = st
	}
	return st
}
