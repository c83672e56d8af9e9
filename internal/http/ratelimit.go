package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	rateLimitPerWindow = 60
	rateLimitWindow    = time.Minute
)

// rateLimiter tracks per-client request counts over a fixed window.
// Only mutating endpoints consult it; the tracker is single user so a
// burst past the limit almost always means a misbehaving client.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientWindow struct {
	lastSeen time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientWindow),
		stopCleanup: make(chan struct{}),
	}
	go rl.reapLoop()
	return rl
}

func (rl *rateLimiter) reapLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.reapIdleClients()
		case <-rl.stopCleanup:
			return
		}
	}
}

// reapIdleClients drops clients that have been quiet for several
// windows, bounding the map between cleanup ticks.
func (rl *rateLimiter) reapIdleClients() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * rateLimitWindow)
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop ends the reaper goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

// allow reports whether clientIP may make another request this window,
// counting refusals in metrics when provided.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists || now.Sub(client.lastSeen) > rateLimitWindow {
		rl.clients[clientIP] = &clientWindow{lastSeen: now, requests: 1}
		return true
	}

	client.requests++
	client.lastSeen = now

	if client.requests > rateLimitPerWindow {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}

	return true
}
