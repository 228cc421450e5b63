package createpost

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"user_service/internal/auth"
	"user_service/internal/http_server/middleware/authguard"
	resp "user_service/internal/lib/api/response"
	sl "user_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Title string `json:"title" validate:"required"`
	Text  string `json:"text" validate:"required"`
	Image string `json:"image"`
}

type Response struct {
	PostID int64 `json:"post_id"`
}

func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.createpost.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authguard.Identity(r.Context())
		if !ok {
			// only reachable if the route is wired without the guard
			log.Error("no identity in request context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Unauthorized("UNAUTHORIZED"))

			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(http.StatusBadRequest, "Failed to decode request"))

			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		postID, err := authService.CreatePost(ctx, user, req.Title, req.Text, req.Image)
		if err != nil {
			log.Error("failed to create post", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Failed to insert Post"))

			return
		}

		log.Info("Post created", slog.Int64("post_id", postID))

		render.JSON(w, r, Response{PostID: postID})
	}
}
