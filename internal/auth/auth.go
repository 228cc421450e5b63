package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"user_service/internal/lib/jwt"
	sl "user_service/internal/lib/logger"
	"user_service/internal/models"
	"user_service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	usrMutator  UserMutator
	postSaver   PostSaver
	jwtSecret   string
	tokenTTL    time.Duration
}

type UserSaver interface {
	SaveUser(ctx context.Context, publicID uuid.UUID, name, email string, passHash []byte) (int64, error)
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	Users(ctx context.Context) ([]models.User, error)
}

type UserMutator interface {
	UpdateUserName(ctx context.Context, publicID uuid.UUID, name string) error
	DeleteUser(ctx context.Context, publicID uuid.UUID) error
}

type PostSaver interface {
	SavePost(ctx context.Context, title, text, image string, userID int64) (int64, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	userMutator UserMutator,
	postSaver PostSaver,
	jwtSecret string,
	tokenTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		usrMutator:  userMutator,
		postSaver:   postSaver,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

// RegisterNewUser hashes the password and stores a new account.
// Email uniqueness is enforced by the storage constraint, so a concurrent
// duplicate registration loses with ErrUserExists.
func (a *Auth) RegisterNewUser(
	ctx context.Context,
	name, email, pass string,
) (uuid.UUID, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("Registering new user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	publicID := uuid.New()

	_, err = a.usrSaver.SaveUser(ctx, publicID, name, strings.ToLower(email), passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")

			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("Failed to save user", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("User registered", slog.String("uuid", publicID.String()))

	return publicID, nil
}

// Login verifies credentials and returns a signed access token carrying the
// email as subject. "No such user" and "wrong password" are both reported as
// ErrInvalidCredentials so responses do not reveal account existence.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return "", ErrInvalidCredentials
	}

	token, err := jwt.NewToken(user.Email, a.jwtSecret, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return token, nil
}

// ResolveIdentity loads the account referenced by a validated token subject.
func (a *Auth) ResolveIdentity(ctx context.Context, subject string) (models.User, error) {
	const op = "auth.ResolveIdentity"

	user, err := a.usrProvider.UserByEmail(ctx, strings.ToLower(subject))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (a *Auth) UpdateUserName(ctx context.Context, publicID uuid.UUID, name string) error {
	const op = "auth.UpdateUserName"

	log := a.log.With(slog.String("op", op))

	if err := a.usrMutator.UpdateUserName(ctx, publicID, name); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", slog.String("uuid", publicID.String()))
			return ErrUserNotFound
		}

		log.Error("failed to update user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Auth) DeleteUser(ctx context.Context, publicID uuid.UUID) error {
	const op = "auth.DeleteUser"

	log := a.log.With(slog.String("op", op))

	if err := a.usrMutator.DeleteUser(ctx, publicID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", slog.String("uuid", publicID.String()))
			return ErrUserNotFound
		}

		log.Error("failed to delete user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Auth) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "auth.ListUsers"

	users, err := a.usrProvider.Users(ctx)
	if err != nil {
		a.log.With(slog.String("op", op)).Error("failed to list users", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// CreatePost stores a post owned by the resolved identity.
func (a *Auth) CreatePost(ctx context.Context, user models.User, title, text, image string) (int64, error) {
	const op = "auth.CreatePost"

	log := a.log.With(slog.String("op", op))

	id, err := a.postSaver.SavePost(ctx, title, text, image, user.ID)
	if err != nil {
		log.Error("failed to save post", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("post created", slog.Int64("post_id", id), slog.Int64("uid", user.ID))

	return id, nil
}
