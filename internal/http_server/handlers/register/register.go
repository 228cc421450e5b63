package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"user_service/internal/auth"
	resp "user_service/internal/lib/api/response"
	sl "user_service/internal/lib/logger"
	"user_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required"`
}

type Response struct {
	UUID    uuid.UUID `json:"uuid"`
	Message string    `json:"message"`
}

// Publisher sends a best-effort notification about a registered account.
type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
	msgSender Publisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(http.StatusBadRequest, "Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		publicID, err := authService.RegisterNewUser(ctx, req.Name, req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error(http.StatusConflict, "Email already in use"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		log.Info("User registered", slog.String("uuid", publicID.String()))

		if msgSender != nil {
			msg := models.Message{
				Email:   req.Email,
				UserID:  publicID.String(),
				Purpose: "user_registered",
			}

			if err := msgSender.SendMessage(ctx, msg); err != nil {
				log.Error("Failed to publish registration event", sl.Err(err))
			}
		}

		ResponseOK(w, r, publicID)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, publicID uuid.UUID) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		UUID:    publicID,
		Message: "User created with UUID: " + publicID.String(),
	})
}
