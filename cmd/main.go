package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user_service/internal/auth"
	"user_service/internal/config"
	"user_service/internal/http_server/handlers/createpost"
	"user_service/internal/http_server/handlers/deleteuser"
	"user_service/internal/http_server/handlers/listusers"
	"user_service/internal/http_server/handlers/login"
	"user_service/internal/http_server/handlers/register"
	"user_service/internal/http_server/handlers/updateuser"
	"user_service/internal/http_server/middleware/authguard"
	"user_service/internal/migrate"
	"user_service/internal/rabbitmq"
	"user_service/internal/storage/postgres"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting user service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := migrate.Up(ctx, postgres.DSN(cfg)); err != nil {
		log.Error("failed to apply migrations", slog.String("err", err.Error()))
		os.Exit(1)
	}

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	var msgSender register.Publisher

	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer msgBroker.Close()

		msgSender = msgBroker
	} else {
		log.Warn("rabbitmq url is empty, registration events disabled")
	}

	authService := auth.New(
		log,
		storage,
		storage,
		storage,
		storage,
		cfg.Tokens.JWTSecret,
		cfg.Tokens.AccessTokenTTL,
	)

	router := setupRouter(log, authService, msgSender, cfg.Tokens.JWTSecret)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	msgSender register.Publisher,
	jwtSecret string,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	r.Post("/create-user",
		register.New(log, validate, authService, msgSender),
	)
	r.Post("/get-user",
		login.New(log, authService),
	)
	r.Get("/users",
		listusers.New(log, authService),
	)

	r.Group(func(r chi.Router) {
		r.Use(authguard.New(log, authService, jwtSecret))

		r.Put("/users/{uuid}",
			updateuser.New(log, authService),
		)
		r.Delete("/users/{uuid}",
			deleteuser.New(log, authService),
		)
		r.Post("/user/post",
			createpost.New(log, authService),
		)
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
