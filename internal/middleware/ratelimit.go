package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxClients caps the number of tracked buckets so an address scan
// cannot grow the map without bound.
const maxClients = 100000

// debateCost is the token price of starting a debate. A debate fans out
// to the whole review team and holds the connection across LLM
// round-trips, so it is charged more than a plain query.
const debateCost = 5

// Limiter applies a token-bucket limit per client. Callers presenting
// an API key are tracked by that key, everything else by remote
// address, so several dashboards behind one NAT do not starve each
// other.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket

	refill float64 // tokens per second
	burst  float64
}

type tokenBucket struct {
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// NewLimiter creates a limiter with the given sustained rate (tokens
// per second) and burst size.
func NewLimiter(refill float64, burst int) *Limiter {
	return &Limiter{
		clients: make(map[string]*tokenBucket),
		refill:  refill,
		burst:   float64(burst),
	}
}

// Handler enforces the limit. Responses carry X-RateLimit-* headers;
// a drained bucket answers 429 with Retry-After.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := l.take(clientKey(r), requestCost(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take withdraws cost tokens from the client's bucket. It returns the
// whole tokens left, the seconds until the withdrawal would succeed,
// and whether it succeeded now.
func (l *Limiter) take(key string, cost float64) (remaining int, wait float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, tracked := l.clients[key]
	if !tracked {
		if len(l.clients) >= maxClients {
			return 0, cost / l.refill, false
		}
		b = &tokenBucket{tokens: l.burst, refilled: now}
		l.clients[key] = b
	} else {
		b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.refilled).Seconds()*l.refill)
		b.refilled = now
	}
	b.seen = now

	if b.tokens < cost {
		return int(b.tokens), (cost - b.tokens) / l.refill, false
	}
	b.tokens -= cost
	return int(b.tokens), 0, true
}

// requestCost prices a request. Debate starts are the expensive calls;
// everything else costs one token.
func requestCost(r *http.Request) float64 {
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/debates") {
		return debateCost
	}
	return 1
}

// clientKey identifies the caller. The API key wins when one is
// presented; anonymous callers are keyed by remote address.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Reap drops buckets idle longer than maxIdle, once per interval, until
// the returned stop function is called.
func (l *Limiter) Reap(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.reapOnce(maxIdle)
			}
		}
	}()
	return cancel
}

func (l *Limiter) reapOnce(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for key, b := range l.clients {
		if b.seen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Tracked reports how many client buckets are live.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
