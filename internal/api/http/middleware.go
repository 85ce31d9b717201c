package apihttp

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"moviesvault/catalog/internal/metrics"
	"moviesvault/catalog/internal/session"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

type middleware func(http.Handler) http.Handler

// chain wraps h so that the first middleware sees the request first.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// infraPaths bypass the rate limiter and tracing and log at debug level.
var infraPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func record(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	n, err := s.ResponseWriter.Write(p)
	s.written += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func validRequestID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, " \t\r\n")
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withSession puts the caller's upstream token on the request context. An
// Authorization header wins over the session cookie; a failed store lookup
// leaves the request anonymous.
func withSession(store SessionStore, cookieName string, logger *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := resolveToken(r, store, cookieName, logger); token != "" {
				r = r.WithContext(session.WithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveToken(r *http.Request, store SessionStore, cookieName string, logger *slog.Logger) string {
	if token := session.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if store == nil {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return ""
	}
	token, found, err := store.Lookup(r.Context(), cookie.Value)
	if err != nil {
		logger.Warn("session lookup failed",
			slog.String("requestId", requestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		return ""
	}
	if !found {
		return ""
	}
	return token
}

func withAccessLog(logger *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("requestId", requestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.written),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("remote", remoteAddr(r)),
			}
			if q := r.URL.RawQuery; q != "" {
				attrs = append(attrs, slog.String("query", truncate(q, 200)))
			}
			logger.LogAttrs(r.Context(), accessLogLevel(r.URL.Path, rec.status), "request served", attrs...)
		})
	}
}

func accessLogLevel(path string, status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	if status >= http.StatusBadRequest {
		return slog.LevelWarn
	}
	if infraPaths[path] {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func withRecovery(logger *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				logger.Error("handler panic",
					slog.Any("panic", recovered),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		rec := record(w)
		next.ServeHTTP(rec, r)
		label := routeLabel(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, label, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(started).Seconds())
	})
}

var exactRoutes = map[string]bool{
	"/health": true, "/health/upstream": true, "/metrics": true, "/watchlist": true,
	"/movies/search": true, "/movies/trending": true, "/movies/popular": true,
	"/movies/top-rated": true, "/movies/now-playing": true, "/movies/upcoming": true,
	"/movies/genres": true,
}

// routeLabel maps a request path to a bounded metric label.
func routeLabel(path string) string {
	if exactRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/watchlist/"); ok {
		if strings.HasSuffix(rest, "/watched") {
			return "/watchlist/:id/watched"
		}
		return "/watchlist/:id"
	}
	if strings.HasPrefix(path, "/movies/") {
		return "/movies/:id"
	}
	if strings.HasPrefix(path, "/images/") {
		return "/images"
	}
	return "/other"
}

// withRateLimit shares one token bucket across all callers. Rejected
// requests get 429 with a Retry-After hint.
func withRateLimit(rps float64, burst int) middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	retryAfter := "1"
	if rps > 0 && rps < 1 {
		retryAfter = strconv.Itoa(int(1/rps + 0.5))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !infraPaths[r.URL.Path] && !limiter.Allow() {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteAddr prefers the first X-Forwarded-For hop over the socket peer.
func remoteAddr(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// truncate shortens value to at most limit bytes without splitting a rune.
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 0 {
		return ""
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "…"
}
