package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"userapi/internal/auth"
	"userapi/internal/config"
	apperrors "userapi/internal/errors"
	"userapi/internal/handler"
	"userapi/internal/model"
	"userapi/internal/router"
	"userapi/internal/service"
)

// stubAccountService implements service.AccountService with swappable
// behavior per test.
type stubAccountService struct {
	registerFn      func(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error)
	authenticateFn  func(ctx context.Context, username, password string) (string, error)
	getProfileFn    func(ctx context.Context, userID string) (*service.Profile, error)
	updateProfileFn func(ctx context.Context, userID string, patch map[string]any) error
	deleteFn        func(ctx context.Context, userID, password string) error
	listUsersFn     func(ctx context.Context) ([]service.PublicUser, error)
}

func (s *stubAccountService) Register(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error) {
	return s.registerFn(ctx, username, password, name, profile)
}

func (s *stubAccountService) Authenticate(ctx context.Context, username, password string) (string, error) {
	return s.authenticateFn(ctx, username, password)
}

func (s *stubAccountService) GetProfile(ctx context.Context, userID string) (*service.Profile, error) {
	return s.getProfileFn(ctx, userID)
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, userID string, patch map[string]any) error {
	return s.updateProfileFn(ctx, userID, patch)
}

func (s *stubAccountService) Delete(ctx context.Context, userID, password string) error {
	return s.deleteFn(ctx, userID, password)
}

func (s *stubAccountService) ListUsers(ctx context.Context) ([]service.PublicUser, error) {
	return s.listUsersFn(ctx)
}

func newTestServer(svc service.AccountService) (*echo.Echo, *auth.TokenService) {
	tokens := auth.NewTokenService("test-secret", time.Minute)
	gate := auth.NewRequestGate(tokens)

	e := echo.New()
	router.Register(e, config.Load(), gate, handler.NewAuthHandler(svc), handler.NewUserHandler(svc))
	return e, tokens
}

func doJSON(e *echo.Echo, method, path, body, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &stubAccountService{
			registerFn: func(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error) {
				assert.Equal(t, "alice", username)
				assert.Equal(t, "Berlin", profile["location"])
				return &model.User{Username: username, Name: name}, nil
			},
		}
		e, _ := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/api/users",
			`{"username":"alice","password":"password123","name":"Alice","location":"Berlin"}`, "")

		assert.Equal(t, http.StatusCreated, rec.Code)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "alice", body["username"])
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "passwordHash")
	})

	t.Run("short password and absent name are accepted", func(t *testing.T) {
		reached := false
		svc := &stubAccountService{
			registerFn: func(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error) {
				reached = true
				assert.Equal(t, "a", username)
				assert.Equal(t, "x", password)
				assert.Empty(t, name)
				return &model.User{Username: username, Name: name}, nil
			},
		}
		e, _ := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/api/users", `{"username":"a","password":"x"}`, "")
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, reached)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := &stubAccountService{
			registerFn: func(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error) {
				return nil, apperrors.ErrUsernameTaken
			},
		}
		e, _ := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/api/users",
			`{"username":"alice","password":"password123","name":"Alice"}`, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("store failure answers 404", func(t *testing.T) {
		svc := &stubAccountService{
			registerFn: func(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error) {
				return nil, apperrors.ErrStoreUnavailable
			},
		}
		e, _ := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/api/users",
			`{"username":"alice","password":"password123","name":"Alice"}`, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		e, _ := newTestServer(&stubAccountService{})
		rec := doJSON(e, http.MethodPost, "/api/users", `{"username":"alice"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
	})

	t.Run("malformed body", func(t *testing.T) {
		e, _ := newTestServer(&stubAccountService{})
		rec := doJSON(e, http.MethodPost, "/api/users", `{"username":`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("token issued", func(t *testing.T) {
		svc := &stubAccountService{
			authenticateFn: func(ctx context.Context, username, password string) (string, error) {
				return "signed-token", nil
			},
		}
		e, _ := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/api/users/auth",
			`{"username":"alice","password":"password123"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "signed-token", body["token"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := &stubAccountService{
			authenticateFn: func(ctx context.Context, username, password string) (string, error) {
				return "", apperrors.ErrInvalidCredentials
			},
		}
		e, _ := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/api/users/auth",
			`{"username":"alice","password":"wrong"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetProfileEndpoint(t *testing.T) {
	t.Run("missing bearer answers 400", func(t *testing.T) {
		e, _ := newTestServer(&stubAccountService{})
		rec := doJSON(e, http.MethodGet, "/api/users", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("any auth scheme is accepted", func(t *testing.T) {
		svc := &stubAccountService{
			getProfileFn: func(ctx context.Context, userID string) (*service.Profile, error) {
				assert.Equal(t, "user-123", userID)
				return &service.Profile{Name: "Alice", Username: "alice"}, nil
			},
		}
		e, tokens := newTestServer(svc)
		token, err := tokens.Issue("user-123")
		assert.NoError(t, err)

		rec := doJSON(e, http.MethodGet, "/api/users", "", "Token "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"name":"Alice","username":"alice"}`, rec.Body.String())
	})

	t.Run("deleted identity answers 400", func(t *testing.T) {
		svc := &stubAccountService{
			getProfileFn: func(ctx context.Context, userID string) (*service.Profile, error) {
				return nil, apperrors.ErrUserNotFound
			},
		}
		e, tokens := newTestServer(svc)
		token, _ := tokens.Issue("user-123")

		rec := doJSON(e, http.MethodGet, "/api/users", "", "Bearer "+token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateProfileEndpoint(t *testing.T) {
	t.Run("no content on success", func(t *testing.T) {
		svc := &stubAccountService{
			updateProfileFn: func(ctx context.Context, userID string, patch map[string]any) error {
				assert.Equal(t, "Lisbon", patch["location"])
				return nil
			},
		}
		e, tokens := newTestServer(svc)
		token, _ := tokens.Issue("user-123")

		rec := doJSON(e, http.MethodPatch, "/api/users", `{"location":"Lisbon"}`, "Bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("wrong old password answers 401", func(t *testing.T) {
		svc := &stubAccountService{
			updateProfileFn: func(ctx context.Context, userID string, patch map[string]any) error {
				return apperrors.ErrInvalidCredentials
			},
		}
		e, tokens := newTestServer(svc)
		token, _ := tokens.Issue("user-123")

		rec := doJSON(e, http.MethodPatch, "/api/users",
			`{"oldPassword":"guess","password":"new"}`, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token answers 400", func(t *testing.T) {
		e, _ := newTestServer(&stubAccountService{})
		expired := auth.NewTokenService("test-secret", -time.Minute)
		token, _ := expired.Issue("user-123")

		rec := doJSON(e, http.MethodPatch, "/api/users", `{"location":"Lisbon"}`, "Bearer "+token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteEndpoint(t *testing.T) {
	t.Run("no content on success", func(t *testing.T) {
		svc := &stubAccountService{
			deleteFn: func(ctx context.Context, userID, password string) error {
				assert.Equal(t, "password123", password)
				return nil
			},
		}
		e, tokens := newTestServer(svc)
		token, _ := tokens.Issue("user-123")

		rec := doJSON(e, http.MethodDelete, "/api/users", `{"password":"password123"}`, "Bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wrong password answers 401", func(t *testing.T) {
		svc := &stubAccountService{
			deleteFn: func(ctx context.Context, userID, password string) error {
				return apperrors.ErrInvalidCredentials
			},
		}
		e, tokens := newTestServer(svc)
		token, _ := tokens.Issue("user-123")

		rec := doJSON(e, http.MethodDelete, "/api/users", `{"password":"wrong"}`, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token answers 404", func(t *testing.T) {
		e, _ := newTestServer(&stubAccountService{})
		rec := doJSON(e, http.MethodDelete, "/api/users", `{"password":"password123"}`, "Bearer garbage")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListUsersEndpoint(t *testing.T) {
	svc := &stubAccountService{
		listUsersFn: func(ctx context.Context) ([]service.PublicUser, error) {
			return []service.PublicUser{
				{ID: "id-1", Name: "Alice", Username: "alice", Profile: map[string]any{"location": "Berlin"}},
			}, nil
		},
	}
	e, _ := newTestServer(svc)

	rec := doJSON(e, http.MethodGet, "/api/users/all", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
	assert.NotContains(t, rec.Body.String(), "password_hash")

	var body []map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 1)
	assert.Equal(t, "alice", body[0]["username"])
}
