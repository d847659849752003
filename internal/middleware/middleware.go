package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"taskManager/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestId)

		ctx := context.WithValue(r.Context(), RequestIdKey, requestId)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.status = code
		lw.wroteHeader = true
		lw.ResponseWriter.WriteHeader(code)
	}
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}

	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

// traceFields достаёт trace_id и span_id текущего спана, если он есть.
func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// routePattern возвращает шаблон маршрута chi (например /tasks/{id}) или путь запроса вне роутера.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestId := GetRequestID(r.Context())
		tracing := traceFields(r.Context())

		logger.Info(
			"HTTP_IN: Начало запроса",
			append([]zap.Field{
				zap.String("request_id", requestId),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("client_ip", r.RemoteAddr),
			}, tracing...)...,
		)

		lw := &loggingWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		next.ServeHTTP(lw, r)

		logLevel := zap.InfoLevel
		if lw.status >= 400 && lw.status < 500 {
			logLevel = zap.WarnLevel
		} else if lw.status >= 500 {
			logLevel = zap.ErrorLevel
		}
		// шаблон маршрута известен только после того, как chi выбрал обработчик
		logger.Log(
			logLevel,
			"HTTP_OUT: Завершение запроса",
			append([]zap.Field{
				zap.String("request_id", requestId),
				zap.String("route", routePattern(r)),
				zap.Int("status", lw.status),
				zap.Int("bytes_written", lw.size),
				zap.Duration("ms", time.Since(start)),
			}, tracing...)...,
		)
	})
}

// Recover превращает панику обработчика в ответ 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error("HTTP: Паника в обработчике", fmt.Errorf("%v", rec),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"error":      "internal_error",
				"request_id": GetRequestID(r.Context()),
			})
		}()

		next.ServeHTTP(w, r)
	})
}

// limiter считает запросы адреса в окне фиксированной длины.
// Истёкшие окна вычищаются не чаще раза за окно.
type limiter struct {
	rpm       int
	window    time.Duration
	mtx       sync.Mutex
	clients   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

func newLimiter(rpm int, length time.Duration) *limiter {
	return &limiter{
		rpm:     rpm,
		window:  length,
		clients: make(map[string]*bucket),
	}
}

// allow засчитывает запрос и сообщает остаток и момент сброса окна.
func (l *limiter) allow(ip string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if now.After(l.nextSweep) {
		for addr, b := range l.clients {
			if now.After(b.resetAt) {
				delete(l.clients, addr)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	win, exists := l.clients[ip]
	if !exists || now.After(win.resetAt) {
		win = &bucket{resetAt: now.Add(l.window)}
		l.clients[ip] = win
	}
	if win.count >= l.rpm {
		return 0, win.resetAt, false
	}
	win.count++
	return l.rpm - win.count, win.resetAt, true
}

func (l *limiter) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

// RateLimit ограничивает число запросов с одного адреса в минуту; rpm <= 0 отключает ограничение.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rpm <= 0 {
			return next
		}
		lim := newLimiter(rpm, time.Minute)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getIp(r)
			now := time.Now()

			remaining, resetAt, ok := lim.allow(ip, now)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(resetAt.Sub(now).Seconds())
			logger.Warn("HTTP: Превышен лимит запросов",
				zap.String("client_ip", ip),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("limit", rpm),
				zap.Int("tracked_clients", lim.size()))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)

			json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Слишком много запросов. Попробуйте позже.",
				"retry_after": retryAfter,
				"request_id":  GetRequestID(r.Context()),
			})
		})
	}
}

func getIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
