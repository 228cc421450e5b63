package listusers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"user_service/internal/auth"
	resp "user_service/internal/lib/api/response"
	sl "user_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// UserSummary is the outward account representation. The stored credential
// hash is never part of it.
type UserSummary struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	UUID      uuid.UUID `json:"uuid"`
	CreatedAt time.Time `json:"created_at"`
}

func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listusers.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		users, err := authService.ListUsers(ctx)
		if err != nil {
			log.Error("failed to list users", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		log.Info("Retrieved users", slog.Int("count", len(users)))

		summaries := make([]UserSummary, 0, len(users))
		for _, u := range users {
			summaries = append(summaries, UserSummary{
				Name:      u.Name,
				Email:     u.Email,
				UUID:      u.PublicID,
				CreatedAt: u.CreatedAt,
			})
		}

		render.JSON(w, r, summaries)
	}
}
