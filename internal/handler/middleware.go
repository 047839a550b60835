package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/infra/observability"
	"github.com/boddenberg/interest-ledger-go/internal/port"
	"github.com/boddenberg/interest-ledger-go/internal/service"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const operatorKey contextKey = "operator"

// IdempotencyHeader carries the client-chosen UUID of a write request.
const IdempotencyHeader = "Idempotency-Key"

// OperatorAuthMiddleware validates Bearer operator tokens and injects the
// operator subject into context.
func OperatorAuthMiddleware(auth *service.OperatorAuth, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := auth.ValidateToken(parts[1])
			if err != nil {
				logger.Warn("auth: token rejected",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), operatorKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorFromContext returns the authenticated operator subject, if any.
func OperatorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey).(string)
	return v
}

// IdempotencyMiddleware replays the stored response of a write request whose
// Idempotency-Key was seen before. Requests without the header pass through.
// The key is reserved while the first request runs, so a concurrent retry
// gets 409 instead of executing twice. 5xx responses release the key so
// the client may retry them.
func IdempotencyMiddleware(store port.Cache[port.StoredResponse], metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	var mu sync.Mutex

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := uuid.Parse(key); err != nil {
				writeError(w, http.StatusBadRequest, IdempotencyHeader+" must be a UUID")
				return
			}

			route := r.Method + " " + r.URL.Path

			mu.Lock()
			stored, seen := store.Get(key)
			if !seen {
				store.Set(key, port.StoredResponse{Route: route, Pending: true})
			}
			mu.Unlock()

			if seen {
				if stored.Route != route || stored.Pending {
					handleServiceError(w, &domain.ErrDuplicate{Key: key}, logger)
					return
				}
				metrics.IncrIdempotentReplay()
				logger.Info("idempotent replay",
					zap.String("idempotency_key", key),
					zap.String("route", route),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				w.Write(stored.Body)
				return
			}

			completed := false
			defer func() {
				if !completed {
					store.Delete(key)
				}
			}()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			if status := ww.Status(); status != 0 && status < http.StatusInternalServerError {
				store.Set(key, port.StoredResponse{Route: route, Status: status, Body: body.Bytes()})
				completed = true
			}
		})
	}
}
