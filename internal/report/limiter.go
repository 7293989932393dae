package report

import (
	"sync"

	"golang.org/x/time/rate"
)

// ChatLimiter throttles reports per chat. A nil *ChatLimiter allows everything.
type ChatLimiter struct {
	limiters map[int64]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewChatLimiter returns nil when perMinute <= 0, which disables throttling.
func NewChatLimiter(perMinute float64, burst int) *ChatLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &ChatLimiter{
		limiters: make(map[int64]*rate.Limiter),
		rate:     rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

// Allow consumes one token from the chat's bucket.
func (l *ChatLimiter) Allow(chatID int64) bool {
	if l == nil {
		return true
	}
	return l.get(chatID).Allow()
}

func (l *ChatLimiter) get(chatID int64) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[chatID]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// re-check under the write lock
	if limiter, ok = l.limiters[chatID]; !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[chatID] = limiter
	}
	return limiter
}
