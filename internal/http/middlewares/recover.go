package middlewares

import (
	"net/http"

	httperrors "github.com/taskcal/taskcal/internal/http/errors"
	"github.com/taskcal/taskcal/internal/observability/logger"
)

// WithRecover catches panics and answers 500 instead of crashing.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic recovered",
					logger.Op("recover"),
					logger.Any("panic", rec),
				)
				httperrors.WriteError(w, r, httperrors.ErrInternal.WithDetail("panic recovered"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
