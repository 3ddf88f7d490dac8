package middlewares

import (
	"net/http"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	httperrors "github.com/taskcal/taskcal/internal/http/errors"
	"github.com/taskcal/taskcal/internal/observability/logger"
)

// RequireAuth validates the bearer token issued by the upstream identity
// provider and injects its subject as the current user id. This service
// does not manage users itself; it only consumes the identity.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithDetail("missing bearer token"))
				return
			}

			tok, err := jwtv5.Parse(raw, keyfunc, jwtv5.WithValidMethods([]string{"HS256"}))
			if err != nil || !tok.Valid {
				logger.From(r.Context()).Warn("invalid bearer token", logger.Err(err))
				httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithDetail("invalid token"))
				return
			}

			sub, err := tok.Claims.GetSubject()
			if err != nil || sub == "" {
				httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithDetail("token missing subject"))
				return
			}

			ctx := WithUserID(r.Context(), sub)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(sub)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
