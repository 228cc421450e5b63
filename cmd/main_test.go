package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"user_service/internal/auth"
	"user_service/internal/models"
	"user_service/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memStorage struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	posts   []models.Post
	nextID  int64
}

func newMemStorage() *memStorage {
	return &memStorage{byEmail: map[string]*models.User{}}
}

func (m *memStorage) SaveUser(_ context.Context, publicID uuid.UUID, name, email string, passHash []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[email]; exists {
		return 0, storage.ErrUserExists
	}
	m.nextID++
	m.byEmail[email] = &models.User{
		ID:        m.nextID,
		PublicID:  publicID,
		Name:      name,
		Email:     email,
		PassHash:  passHash,
		CreatedAt: time.Now(),
	}
	return m.nextID, nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return *u, nil
}

func (m *memStorage) Users(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, u := range m.byEmail {
		users = append(users, *u)
	}
	return users, nil
}

func (m *memStorage) UpdateUserName(_ context.Context, publicID uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.PublicID == publicID {
			u.Name = name
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func (m *memStorage) DeleteUser(_ context.Context, publicID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.byEmail {
		if u.PublicID == publicID {
			delete(m.byEmail, email)
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func (m *memStorage) SavePost(_ context.Context, title, text, image string, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, models.Post{
		ID:     int64(len(m.posts) + 1),
		Title:  title,
		Text:   text,
		Image:  image,
		UserID: userID,
	})
	return int64(len(m.posts)), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memStorage) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := newMemStorage()
	authService := auth.New(log, s, s, s, s, testSecret, time.Hour)

	srv := httptest.NewServer(setupRouter(log, authService, nil, testSecret))
	t.Cleanup(srv.Close)

	return srv, s
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestRegisterLoginUpdateFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	// register
	resp, data := doJSON(t, http.MethodPost, srv.URL+"/create-user", "",
		`{"name":"Ann","email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		UUID uuid.UUID `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(data, &created))
	require.NotEqual(t, uuid.Nil, created.UUID)

	// duplicate email is rejected
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/create-user", "",
		`{"name":"Ann","email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// login
	resp, data = doJSON(t, http.MethodPost, srv.URL+"/get-user", "",
		`{"email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logged struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &logged))
	require.NotEmpty(t, logged.Token)

	// rename with the bearer token
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/users/"+created.UUID.String(), logged.Token,
		`{"name":"Annie"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the new name is visible in the listing, the password is not
	resp, data = doJSON(t, http.MethodGet, srv.URL+"/users", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 1)
	require.Equal(t, "Annie", users[0]["name"])
	require.NotContains(t, users[0], "password")
	require.NotContains(t, users[0], "pass_hash")
}

func TestGuardedRoutes_RequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := doJSON(t, http.MethodPut, srv.URL+"/users/"+uuid.NewString(), "",
		`{"name":"x"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(data), "Token Not Found")

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/users/"+uuid.NewString(), "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/user/post", "",
		`{"title":"t","text":"x","image":"i"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreatePost_OwnedByIdentity(t *testing.T) {
	srv, s := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/create-user", "",
		`{"name":"Ann","email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/get-user", "",
		`{"email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logged struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &logged))

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/user/post", logged.Token,
		`{"title":"hello","text":"world","image":"pic.png"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, s.posts, 1)
	require.Equal(t, s.byEmail["ann@x.com"].ID, s.posts[0].UserID)
}

func TestDeleteUser_WithToken(t *testing.T) {
	srv, s := newTestServer(t)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/create-user", "",
		`{"name":"Ann","email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		UUID uuid.UUID `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(data, &created))

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/get-user", "",
		`{"email":"ann@x.com","password":"p1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logged struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &logged))

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/users/"+created.UUID.String(), logged.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, s.byEmail)
}
