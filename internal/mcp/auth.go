package mcp

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultMCPMaxBodyBytes int64 = 1 << 20 // 1MiB

type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

// transportGuard fronts the MCP streamable handler with bearer auth, a
// per-caller rate limit and a request body cap. Portfolio documents and
// advisor prompts are small, so the cap stays tight.
type transportGuard struct {
	next    http.Handler
	token   string
	limiter *httpRateLimiter
	bodyCap int64
}

func wrapHTTPHandler(base http.Handler, cfg HTTPHandlerConfig) http.Handler {
	bodyCap := cfg.MaxBodyBytes
	if bodyCap <= 0 {
		bodyCap = defaultMCPMaxBodyBytes
	}
	return &transportGuard{
		next:    base,
		token:   cfg.AuthToken,
		limiter: newHTTPRateLimiter(cfg.RateLimitPerMin),
		bodyCap: bodyCap,
	}
}

func (g *transportGuard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if status, msg := g.checkAuth(r); status != 0 {
		writeJSONError(w, status, msg)
		return
	}
	if !g.limiter.Allow(callerKey(r)) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, g.bodyCap)
	}
	g.next.ServeHTTP(w, r)
}

func (g *transportGuard) checkAuth(r *http.Request) (int, string) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(authz, "Bearer ") {
		return http.StatusUnauthorized, "missing bearer token"
	}
	provided := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	if g.token == "" || provided == "" || provided != g.token {
		return http.StatusForbidden, "invalid bearer token"
	}
	return 0, ""
}

// callerKey buckets requests by token and remote host so one noisy client
// cannot starve the rest.
func callerKey(r *http.Request) string {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		host = "unknown"
	}
	if token == "" {
		return host
	}
	return token + "|" + host
}

// httpRateLimiter is a fixed-window counter per caller key. Windows are one
// minute wide; stale entries are reset in place on the next hit.
type httpRateLimiter struct {
	mu      sync.Mutex
	perMin  int
	windows map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

func newHTTPRateLimiter(perMin int) *httpRateLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &httpRateLimiter{perMin: perMin, windows: make(map[string]*rateWindow)}
}

func (l *httpRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key == "" {
		key = "default"
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= l.perMin {
		return false
	}
	w.count++
	return true
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
