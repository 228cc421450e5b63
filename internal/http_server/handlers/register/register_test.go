package register_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_service/internal/auth"
	"user_service/internal/http_server/handlers/register"
	"user_service/internal/models"
	"user_service/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubStorage struct {
	saveErr    error
	savedEmail string
}

func (s *stubStorage) SaveUser(_ context.Context, _ uuid.UUID, _, email string, _ []byte) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.savedEmail = email
	return 1, nil
}

func (s *stubStorage) UserByEmail(context.Context, string) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}
func (s *stubStorage) Users(context.Context) ([]models.User, error) { return nil, nil }

func (s *stubStorage) UpdateUserName(context.Context, uuid.UUID, string) error { return nil }

func (s *stubStorage) DeleteUser(context.Context, uuid.UUID) error { return nil }

func (s *stubStorage) SavePost(context.Context, string, string, string, int64) (int64, error) {
	return 0, nil
}

type capturedPublisher struct {
	msgs []models.Message
}

func (p *capturedPublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func newHandler(s *stubStorage, pub register.Publisher) http.HandlerFunc {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := auth.New(log, s, s, s, s, "test-secret", time.Hour)

	return register.New(log, validator.New(), a, pub)
}

func TestRegister_Created(t *testing.T) {
	t.Parallel()

	s := &stubStorage{}
	pub := &capturedPublisher{}
	h := newHandler(s, pub)

	body := bytes.NewBufferString(`{"name":"Ann","email":"Ann@X.com","password":"p1"}`)
	req := httptest.NewRequest(http.MethodPost, "/create-user", body)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp register.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEqual(t, uuid.Nil, resp.UUID)
	require.Contains(t, resp.Message, resp.UUID.String())

	require.Equal(t, "ann@x.com", s.savedEmail)

	require.Len(t, pub.msgs, 1)
	require.Equal(t, "user_registered", pub.msgs[0].Purpose)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	s := &stubStorage{saveErr: storage.ErrUserExists}
	h := newHandler(s, nil)

	body := bytes.NewBufferString(`{"name":"Ann","email":"ann@x.com","password":"p1"}`)
	req := httptest.NewRequest(http.MethodPost, "/create-user", body)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "Email already in use")
}

func TestRegister_BadBody(t *testing.T) {
	t.Parallel()

	h := newHandler(&stubStorage{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/create-user", bytes.NewBufferString(`{`))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	h := newHandler(&stubStorage{}, nil)

	body := bytes.NewBufferString(`{"name":"Ann","password":"p1"}`)
	req := httptest.NewRequest(http.MethodPost, "/create-user", body)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Email")
}
