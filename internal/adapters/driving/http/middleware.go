package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/logger"
)

// Context keys
type contextKey string

const authContextKey contextKey = "auth_context"

// Headers
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderWorkerSecret  = "X-Worker-Secret"
	headerAuthorization = "Authorization"
)

// AuthMiddleware resolves the caller through an AuthSource
type AuthMiddleware struct {
	source AuthSource
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(source AuthSource) *AuthMiddleware {
	return &AuthMiddleware{
		source: source,
	}
}

// Authenticate identifies the caller and adds the auth context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.source == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		authCtx, err := m.source.Authenticate(r)
		if err != nil || authCtx == nil || authCtx.OwnerID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext retrieves the auth context from request context
func GetAuthContext(ctx context.Context) *domain.AuthContext {
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.Value(authContextKey).(*domain.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// ownerID returns the authenticated owner, or "" outside AuthMiddleware.
func ownerID(r *http.Request) string {
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		return authCtx.OwnerID
	}
	return ""
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get(headerAuthorization)
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Worker trigger middleware

// TriggerMiddleware guards the worker trigger with a shared secret.
// Without a configured secret every call is rejected unless allowUnauthenticated is set.
type TriggerMiddleware struct {
	secret               []byte
	allowUnauthenticated bool
}

// NewTriggerMiddleware creates a new TriggerMiddleware
func NewTriggerMiddleware(secret string, allowUnauthenticated bool) *TriggerMiddleware {
	return &TriggerMiddleware{
		secret:               []byte(secret),
		allowUnauthenticated: allowUnauthenticated,
	}
}

// Handler wraps the trigger endpoint with the secret check
func (m *TriggerMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(r) {
			writeError(w, http.StatusUnauthorized, "invalid worker secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *TriggerMiddleware) authorized(r *http.Request) bool {
	if len(m.secret) == 0 {
		return m.allowUnauthenticated
	}
	provided := r.Header.Get(HeaderWorkerSecret)
	if provided == "" {
		provided = extractBearerToken(r)
	}
	return subtle.ConstantTimeCompare([]byte(provided), m.secret) == 1
}

// Logging middleware

// LoggingMiddleware stamps a request ID and logs each request
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware(base *slog.Logger) *LoggingMiddleware {
	if base == nil {
		base = slog.Default()
	}
	return &LoggingMiddleware{logger: base}
}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r.WithContext(ctx))

		logger.FromContext(ctx, m.logger).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct {
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware(base *slog.Logger) *RecoveryMiddleware {
	if base == nil {
		base = slog.Default()
	}
	return &RecoveryMiddleware{logger: base}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(r.Context(), m.logger).Error("panic recovered", "panic", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS middleware

// CORSMiddleware handles CORS
type CORSMiddleware struct {
	allowedOrigins []string
}

// NewCORSMiddleware creates a new CORSMiddleware
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
	}
}

// Handler wraps an http.Handler with CORS headers
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, o := range m.allowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
