package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

func newTestRegistry(primary, fallback []string) (*Registry, *time.Time) {
	r := NewRegistry(primary, fallback, 5*time.Minute)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }
	return r, &current
}

func TestRegistry_AvailableOrder(t *testing.T) {
	r, _ := newTestRegistry([]string{"m1", "m2"}, []string{"f1"})

	assert.Equal(t, []string{"m1", "m2", "f1"}, r.Available())
}

func TestRegistry_CircuitBreakerOpensAfterThreeFailures(t *testing.T) {
	r, current := newTestRegistry([]string{"m1", "m2"}, nil)

	r.RecordFailure("m1", models.ErrClassAPI)
	r.RecordFailure("m1", models.ErrClassAPI)
	assert.Equal(t, []string{"m1", "m2"}, r.Available(), "две неудачи еще не открывают breaker")

	r.RecordFailure("m1", models.ErrClassAPI)
	assert.Equal(t, []string{"m2"}, r.Available())
	assert.True(t, r.InCooldown("m1"))

	// После окончания cooldown модель возвращается.
	*current = current.Add(5*time.Minute + time.Second)
	assert.Equal(t, []string{"m1", "m2"}, r.Available())
	assert.False(t, r.InCooldown("m1"))
}

func TestRegistry_SuccessResetsFailures(t *testing.T) {
	r, _ := newTestRegistry([]string{"m1"}, nil)

	r.RecordFailure("m1", models.ErrClassTimeout)
	r.RecordFailure("m1", models.ErrClassTimeout)
	r.RecordSuccess("m1")

	assert.Equal(t, 0, r.Failures("m1"))
	r.RecordFailure("m1", models.ErrClassTimeout)
	r.RecordFailure("m1", models.ErrClassTimeout)
	assert.False(t, r.InCooldown("m1"), "счетчик должен был сброситься после успеха")
}

func TestRegistry_PermanentExclusion(t *testing.T) {
	r, current := newTestRegistry([]string{"m1", "m2"}, nil)

	r.HandleError("m1", models.ErrClassNotFound)

	assert.True(t, r.Excluded("m1"))
	assert.Equal(t, []string{"m2"}, r.Available())

	// Исключение не истекает со временем.
	*current = current.Add(24 * time.Hour)
	assert.Equal(t, []string{"m2"}, r.Available())
}

func TestRegistry_UnauthorizedIsPermanent(t *testing.T) {
	r, _ := newTestRegistry([]string{"m1"}, nil)

	r.HandleError("m1", models.ErrClassUnauthorized)
	assert.True(t, r.Excluded("m1"))
}

func TestRegistry_RateLimitBackoff(t *testing.T) {
	r, current := newTestRegistry([]string{"m1", "m2"}, nil)

	r.HandleError("m1", models.ErrClassRateLimit)
	assert.Equal(t, []string{"m2"}, r.Available(), "первая 429 паркует модель на 60 секунд")
	assert.True(t, r.InCooldown("m1"))

	*current = current.Add(61 * time.Second)
	require.Equal(t, []string{"m1", "m2"}, r.Available(), "истекший backoff снимается лениво")

	// Вторая 429 удваивает парковку.
	r.HandleError("m1", models.ErrClassRateLimit)
	*current = current.Add(61 * time.Second)
	assert.Equal(t, []string{"m2"}, r.Available())
	*current = current.Add(60 * time.Second)
	assert.Equal(t, []string{"m1", "m2"}, r.Available())
}

func TestRegistry_RateLimitBackoffCapped(t *testing.T) {
	r, current := newTestRegistry([]string{"m1"}, nil)

	for i := 0; i < 12; i++ {
		r.HandleError("m1", models.ErrClassRateLimit)
	}

	// Даже после дюжины 429 парковка не превышает часа.
	*current = current.Add(time.Hour + time.Second)
	assert.False(t, r.InCooldown("m1"))
}

func TestRegistry_RateLimitLongStreakStaysParked(t *testing.T) {
	r, current := newTestRegistry([]string{"m1"}, nil)

	// Длинная серия 429 не должна обнулять парковку переполнением сдвига.
	for i := 0; i < 40; i++ {
		r.HandleError("m1", models.ErrClassRateLimit)
	}

	// Окно circuit-breaker уже истекло, но часовая парковка еще действует.
	*current = current.Add(6 * time.Minute)
	assert.True(t, r.InCooldown("m1"))

	*current = current.Add(55 * time.Minute)
	assert.False(t, r.InCooldown("m1"))
}

func TestRegistry_SuccessClearsBackoff(t *testing.T) {
	r, _ := newTestRegistry([]string{"m1"}, nil)

	r.HandleError("m1", models.ErrClassRateLimit)
	require.True(t, r.InCooldown("m1"))

	r.RecordSuccess("m1")
	assert.False(t, r.InCooldown("m1"))
}

func TestRegistry_UnknownModelNotInCooldown(t *testing.T) {
	r, _ := newTestRegistry([]string{"m1"}, nil)
	assert.False(t, r.InCooldown("never-seen"))
}
