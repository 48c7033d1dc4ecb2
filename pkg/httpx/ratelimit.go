package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/idbridge/pkg/slogx"
	"golang.org/x/time/rate"
)

// Limit is a token bucket profile: Requests per Window with Burst headroom.
type Limit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Rate limit profiles. Overridable through RATELIMIT_{STRICT,MODERATE}_* env vars.
var (
	// StrictLimit guards the unauthenticated code exchange, where each call
	// costs a provider round trip. 10 requests per minute per IP.
	StrictLimit = LimitFromEnv("STRICT", Limit{Requests: 10, Window: time.Minute, Burst: 10})

	// ModerateLimit guards authenticated calls per subject. 60 per minute.
	ModerateLimit = LimitFromEnv("MODERATE", Limit{Requests: 60, Window: time.Minute, Burst: 20})
)

// LimitFromEnv reads RATELIMIT_{name}_REQUESTS, _WINDOW_SEC and _BURST over
// def. Missing, invalid or non-positive values keep the default.
func LimitFromEnv(name string, def Limit) Limit {
	read := func(suffix string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_" + suffix))
		return n, err == nil && n > 0
	}

	if n, ok := read("REQUESTS"); ok {
		def.Requests = n
	}
	if n, ok := read("WINDOW_SEC"); ok {
		def.Window = time.Duration(n) * time.Second
	}
	if n, ok := read("BURST"); ok {
		def.Burst = n
	}
	return def
}

// ClientIP is the caller's address, honouring X-Forwarded-For then X-Real-IP
// when the bridge runs behind a proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimitByIP limits per client address.
func RateLimitByIP(limit Limit) Middleware {
	return rateLimit(limit, func(r *http.Request) string {
		return "ip:" + ClientIP(r)
	})
}

// RateLimitBySubject limits per authenticated subject, so it has to sit
// behind the gate. Requests without a subject share their IP's bucket.
func RateLimitBySubject(limit Limit) Middleware {
	return rateLimit(limit, func(r *http.Request) string {
		if s := SubjectFromContext(r.Context()); s != "" {
			return "sub:" + s
		}
		return "ip:" + ClientIP(r)
	})
}

func rateLimit(limit Limit, key func(*http.Request) string) Middleware {
	b := newBuckets(limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait, ok := b.take(key(r), time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(wait.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Window", limit.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteError(w, http.StatusTooManyRequests, "too many requests, try again later")
		})
	}
}

// idleAfter is how long a bucket may go unused before it is dropped.
const idleAfter = 10 * time.Minute

type bucket struct {
	*rate.Limiter
	seen time.Time
}

// buckets holds one limiter per key.
type buckets struct {
	every rate.Limit
	burst int

	mu    sync.Mutex
	byKey map[string]*bucket
	swept time.Time
}

func newBuckets(limit Limit) *buckets {
	return &buckets{
		every: rate.Limit(float64(limit.Requests) / limit.Window.Seconds()),
		burst: limit.Burst,
		byKey: make(map[string]*bucket),
		swept: time.Now(),
	}
}

// take spends one token for key. When none is left it reports how long until
// the next one lands, without consuming it.
func (b *buckets) take(key string, now time.Time) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.swept) >= time.Minute {
		for k, bk := range b.byKey {
			if now.Sub(bk.seen) > idleAfter {
				delete(b.byKey, k)
			}
		}
		b.swept = now
	}

	bk, ok := b.byKey[key]
	if !ok {
		bk = &bucket{Limiter: rate.NewLimiter(b.every, b.burst)}
		b.byKey[key] = bk
	}
	bk.seen = now

	if bk.AllowN(now, 1) {
		return 0, true
	}

	res := bk.ReserveN(now, 1)
	wait := res.DelayFrom(now)
	res.CancelAt(now)
	return wait, false
}
