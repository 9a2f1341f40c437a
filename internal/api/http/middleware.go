package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/security"
)

type contextKey struct{}

var claimsKey = contextKey{}

const (
	requestIDHeader     = "X-Request-ID"
	webhookSecretHeader = "X-Webhook-Secret"
)

func claimsFromContext(ctx context.Context) (*security.UserClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*security.UserClaims)
	return c, ok && c != nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestContext tags the request with an id, attaches a request-scoped
// logger, applies the per-request timeout and turns panics into 500s.
func requestContext(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := logger.NewContext(r.Context(), "request_id", requestID, "method", r.Method, "path", r.URL.Path)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			defer func() {
				if p := recover(); p != nil {
					logger.ErrorContext(ctx, "Panic while handling request", "panic", p, "stack", string(debug.Stack()))
					writeStatus(rec, http.StatusInternalServerError, "INTERNAL", "internal error")
				}
				logger.InfoContext(ctx, "Request handled", "status", rec.status, "duration", time.Since(start))
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authenticator struct {
	tokens security.TokenManager
}

func (a *authenticator) required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeStatus(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization token is not provided")
			return
		}

		claims, err := a.tokens.ValidateToken(token)
		if err != nil {
			writeStatus(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = logger.NewContext(ctx, "user_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || !claims.IsAdmin() {
			writeStatus(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sharedSecret guards the gateway callback. An empty secret disables the
// endpoint rather than leaving it open.
func sharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(webhookSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeStatus(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid webhook secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
