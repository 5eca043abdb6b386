package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/diagnosis/bistro-api/pkg/logger"
	"github.com/diagnosis/bistro-api/pkg/metrics"
)

// RequestID adds a unique request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging logs HTTP requests with structured logging
func Logging(next http.Handler) http.Handler {
	return middleware.RequestLogger(&StructuredLogger{})(next)
}

type StructuredLogger struct{}

func (l *StructuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &StructuredLogEntry{request: r}
}

type StructuredLogEntry struct {
	request *http.Request
}

func (l *StructuredLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	logger.InfoContext(l.request.Context(), "HTTP request completed",
		"method", l.request.Method,
		"path", l.request.URL.Path,
		"status", status,
		"bytes", bytes,
		"elapsed_ms", elapsed.Milliseconds(),
		"user_agent", l.request.UserAgent(),
		"remote_addr", l.request.RemoteAddr,
	)
}

func (l *StructuredLogEntry) Panic(v interface{}, stack []byte) {
	logger.ErrorContext(l.request.Context(), "HTTP request panic",
		"panic", v,
		"stack", string(stack),
		"method", l.request.Method,
		"path", l.request.URL.Path,
	)
}

// CORS allows the listed browser origins. Idempotency-Key is allowed for POST /payments.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// ServiceName adds service name to context for logging
func ServiceName(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), logger.ServiceKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Metrics counts responses by status code.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.RecordHTTPStatus(status)
		})
	}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers /healthz, reporting 503 when the database does not respond.
func Health(db Pinger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			status, code := "ok", http.StatusOK
			if db != nil {
				if err := db.Ping(ctx); err != nil {
					logger.WarnContext(ctx, "health check failed", "error", err)
					status, code = "degraded", http.StatusServiceUnavailable
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":    status,
				"timestamp": time.Now().Format(time.RFC3339),
			})
		})
	}
}

// IdempotencyStore holds reservations and cached response bodies keyed by
// hashed Idempotency-Key.
type IdempotencyStore interface {
	// Reserve stores value only if key is absent and reports whether it did.
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const (
	idempotencyPending = "pending"
	idempotencyDone    = "done"

	// bounds how long a crashed request can hold its key
	idempotencyReserveTTL = 2 * time.Minute
	maxFingerprintBody    = 1 << 20
)

// IdempotencyMiddleware runs the handler at most once per Idempotency-Key.
// The key is reserved before the handler runs. A concurrent duplicate gets
// 409, a key reused with a different body gets 422, and a completed 2xx
// response is replayed. Failed responses release the key for a retry.
func IdempotencyMiddleware(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			fingerprint, err := bodyFingerprint(r)
			if err != nil {
				writeIdempotencyError(w, http.StatusBadRequest, "unreadable request body", "INVALID_INPUT")
				return
			}

			// scope by path so one key cannot collide across routes
			hashedKey := fmt.Sprintf("idempotency:%x", sha256.Sum256([]byte(r.URL.Path+"\x00"+key)))

			reserved, err := store.Reserve(r.Context(), hashedKey, idempotencyPending+":"+fingerprint, idempotencyReserveTTL)
			if err != nil {
				logger.WarnContext(r.Context(), "idempotency reservation failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				replayOrReject(w, r, store, hashedKey, fingerprint)
				return
			}

			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Release(context.WithoutCancel(r.Context()), hashedKey); err != nil {
					logger.WarnContext(r.Context(), "idempotency release failed", "error", err)
				}
			}()

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode < 200 || recorder.statusCode >= 300 {
				return
			}
			value := idempotencyDone + ":" + fingerprint + ":" + string(recorder.body)
			if err := store.Set(r.Context(), hashedKey, value, ttl); err != nil {
				logger.WarnContext(r.Context(), "idempotency store failed", "error", err)
				return
			}
			completed = true
		})
	}
}

func replayOrReject(w http.ResponseWriter, r *http.Request, store IdempotencyStore, key, fingerprint string) {
	existing, err := store.Get(r.Context(), key)
	if err != nil {
		logger.WarnContext(r.Context(), "idempotency lookup failed", "error", err)
		writeIdempotencyError(w, http.StatusServiceUnavailable, "idempotency store unavailable", "INTERNAL_ERROR")
		return
	}

	state, rest, _ := strings.Cut(existing, ":")
	storedFingerprint, body, _ := strings.Cut(rest, ":")
	switch {
	case existing == "" || state == idempotencyPending && storedFingerprint == fingerprint:
		writeIdempotencyError(w, http.StatusConflict, "a request with this Idempotency-Key is in progress", "IDEMPOTENCY_IN_PROGRESS")
	case storedFingerprint != fingerprint:
		writeIdempotencyError(w, http.StatusUnprocessableEntity, "Idempotency-Key reused with a different request body", "IDEMPOTENCY_KEY_REUSED")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

// bodyFingerprint hashes the request body and leaves it readable for the handler.
func bodyFingerprint(r *http.Request) (string, error) {
	if r.Body == nil {
		return fmt.Sprintf("%x", sha256.Sum256(nil)), nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxFingerprintBody))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), r.Body))
	return fmt.Sprintf("%x", sha256.Sum256(b)), nil
}

func writeIdempotencyError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message, "code": code})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}
