package deleteuser

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"user_service/internal/auth"
	resp "user_service/internal/lib/api/response"
	sl "user_service/internal/lib/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Response struct {
	Message string `json:"message"`
}

func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.deleteuser.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		publicID, err := uuid.Parse(chi.URLParam(r, "uuid"))
		if err != nil {
			log.Warn("invalid uuid in path", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(http.StatusBadRequest, "Invalid uuid"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := authService.DeleteUser(ctx, publicID); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error(http.StatusNotFound, "User not found"))

				return
			}

			log.Error("failed to delete user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		log.Info("User deleted", slog.String("uuid", publicID.String()))

		render.JSON(w, r, Response{Message: "User deleted"})
	}
}
