package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1), "четвёртый запрос в окне должен быть отбит")

	// Другой пользователь — своё окно
	assert.True(t, rl.Allow(2))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	defer rl.Close()

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow(1))
}
