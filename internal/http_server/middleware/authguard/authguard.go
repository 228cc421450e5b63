// Package authguard gates protected routes behind a validated bearer token.
package authguard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	resp "user_service/internal/lib/api/response"
	"user_service/internal/lib/jwt"
	sl "user_service/internal/lib/logger"
	"user_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey struct{}

// IdentityResolver loads the account referenced by a token subject.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, subject string) (models.User, error)
}

// Identity returns the account attached by the guard for the current request.
func Identity(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok
}

// New extracts and validates the bearer token, resolves the account behind
// its subject and attaches it to the request context. Every failure mode is
// answered with the same 401 so clients cannot probe which step rejected.
func New(log *slog.Logger, resolver IdentityResolver, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authguard.New"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			header := r.Header.Get("Authorization")
			if header == "" {
				log.Warn("missing authorization header")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Unauthorized("Token Not Found"))

				return
			}

			token := stripBearer(header)

			claims, err := jwt.ParseToken(token, jwtSecret)
			if err != nil {
				log.Warn("invalid token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Unauthorized("Token Not Found"))

				return
			}

			resolveCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			user, err := resolver.ResolveIdentity(resolveCtx, claims.Subject)
			if err != nil {
				// NotFound and storage failures are deliberately collapsed
				// into the same rejection to hide account existence.
				log.Warn("failed to resolve identity", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Unauthorized("UNAUTHORIZED"))

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

// stripBearer removes an exact "Bearer " or "bearer " prefix if present.
func stripBearer(header string) string {
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	if token, ok := strings.CutPrefix(header, "bearer "); ok {
		return token
	}
	return header
}
