// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New allows burst requests per key, refilled at one token every per/burst.
// Buckets unused for idle are dropped by a background sweep until Stop.
func New(burst int, per time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(per / time.Duration(burst)),
		burst:   burst,
		idle:    per * 2,
		stop:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether a request for key may proceed and consumes a token.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Stop ends the sweep goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.lim
}

func (l *Limiter) sweep() {
	t := time.NewTicker(l.idle)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-t.C:
			l.mu.Lock()
			for k, b := range l.buckets {
				if now.Sub(b.lastSeen) > l.idle {
					delete(l.buckets, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the host part of the socket peer address. Forwarding
// headers are not read here; behind a trusted proxy mount chi's
// middleware.RealIP first so RemoteAddr already holds the client.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Middleware rejects requests whose client IP is over the limit by
// calling reject instead of next.
func Middleware(l *Limiter, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r)) {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginLimiter limits login attempts per IP and per account.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows ipBurst attempts per minute per IP and
// emailBurst attempts per five minutes per email.
func NewLoginLimiter(ipBurst, emailBurst int) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(ipBurst, time.Minute),
		email: New(emailBurst, 5*time.Minute),
	}
}

// Check reports whether a login attempt may proceed and, if not, why.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !ll.email.Allow(key) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the per-account limit after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.email.Reset(key)
	}
}

// Stop ends both sweeps.
func (ll *LoginLimiter) Stop() {
	ll.ip.Stop()
	ll.email.Stop()
}
