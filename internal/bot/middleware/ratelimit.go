// Package middleware — ratelimit.go защищает бота от спама кнопками
// и командами: скользящее окно на каждого покупателя.
package middleware

import (
	"sync"
	"time"
)

// gcInterval — как часто чистим записи неактивных пользователей.
const gcInterval = 5 * time.Minute

// RateLimiter считает обращения пользователя в скользящем окне
// и отбивает всё сверх лимита.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[int64][]time.Time
	limit  int
	window time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter создаёт лимитер: не больше limit обращений за window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:   make(map[int64][]time.Time),
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
	}
	go rl.gc()
	return rl
}

// Close останавливает фоновую очистку. Вызывается на shutdown.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow сообщает, пускать ли очередное обращение пользователя.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := pruneBefore(rl.hits[userID], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.hits[userID] = recent
		return false
	}

	rl.hits[userID] = append(recent, now)
	return true
}

// pruneBefore выбрасывает отметки старше cutoff, переиспользуя слайс.
func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// gc периодически выкидывает пользователей без свежих обращений,
// чтобы карта не росла от разовых посетителей магазина.
func (rl *RateLimiter) gc() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for userID, times := range rl.hits {
				recent := pruneBefore(times, cutoff)
				if len(recent) == 0 {
					delete(rl.hits, userID)
					continue
				}
				rl.hits[userID] = recent
			}
			rl.mu.Unlock()
		}
	}
}
