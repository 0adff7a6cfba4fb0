package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// WithRequestScope wraps a handler so it runs with one pooled connection in
// its context. A request that already carries a scope keeps it. When the pool
// cannot hand out a connection the client gets 503 with the same error body
// the API handlers use.
func WithRequestScope(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	acquire := NewScopeFunc(db)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetScope(r.Context()); ok {
				next(w, r)
				return
			}

			ctx, release, err := acquire(r.Context())
			if err != nil {
				logger.Error("Failed to acquire database connection",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(struct {
					Error   string `json:"error"`
					Message string `json:"message"`
				}{"database_unavailable", "Database is unavailable, try again shortly"})
				return
			}
			defer release()

			next(w, r.WithContext(ctx))
		}
	}
}
