package http

import (
	"sync"
	"time"
)

const (
	maxRequestsPerMinute = 60
	rateLimitWindow      = time.Minute
)

// rateLimiter tracks request counts per client IP for mutating endpoints.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	cleanup      *time.Ticker
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	requests  int
	lastReset time.Time
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		cleanup:     time.NewTicker(5 * time.Minute),
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *rateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanup.C:
			rl.cleanupStaleClients()
		case <-rl.stopCleanup:
			rl.cleanup.Stop()
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleClients() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, info := range rl.clients {
		if info.lastReset.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	info, exists := rl.clients[clientIP]

	if !exists || now.Sub(info.lastReset) >= rateLimitWindow {
		rl.clients[clientIP] = &clientInfo{requests: 1, lastReset: now}
		return true
	}

	if info.requests >= maxRequestsPerMinute {
		metrics.recordRateLimitHit()
		return false
	}

	info.requests++
	return true
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
