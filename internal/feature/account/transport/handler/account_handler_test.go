package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
	jwtmw "account_backend/internal/platform/jwt"
)

// mockAccountUsecase is a mock implementation of the AccountUsecase interface.
type mockAccountUsecase struct {
	RegisterFunc       func(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error)
	LoginFunc          func(ctx context.Context, nickname, password string) (*usecase.LoginResult, error)
	GetProfileFunc     func(ctx context.Context, accountID string) (*usecase.ProfileResult, error)
	UpdateProfileFunc  func(ctx context.Context, in usecase.UpdateProfileInput) (*usecase.ProfileResult, error)
	ChangePasswordFunc func(ctx context.Context, in usecase.ChangePasswordInput) (*usecase.ProfileResult, error)
	DeleteAccountFunc  func(ctx context.Context, requester usecase.Requester, targetID string) error
	InspectAccountFunc func(ctx context.Context, requester usecase.Requester, targetID string) (*entity.AdminView, error)
}

func (m *mockAccountUsecase) Register(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return entity.PublicProfile{ID: "id-1", Nickname: in.Nickname}, nil
}

func (m *mockAccountUsecase) Login(ctx context.Context, nickname, password string) (*usecase.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, nickname, password)
	}
	return nil, usecase.ErrInvalidCredentials
}

func (m *mockAccountUsecase) GetProfile(ctx context.Context, accountID string) (*usecase.ProfileResult, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, accountID)
	}
	return nil, usecase.ErrAccountNotFound
}

func (m *mockAccountUsecase) UpdateProfile(ctx context.Context, in usecase.UpdateProfileInput) (*usecase.ProfileResult, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, in)
	}
	return nil, usecase.ErrAccountNotFound
}

func (m *mockAccountUsecase) ChangePassword(ctx context.Context, in usecase.ChangePasswordInput) (*usecase.ProfileResult, error) {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, in)
	}
	return nil, usecase.ErrAccountNotFound
}

func (m *mockAccountUsecase) DeleteAccount(ctx context.Context, requester usecase.Requester, targetID string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, requester, targetID)
	}
	return nil
}

func (m *mockAccountUsecase) InspectAccount(ctx context.Context, requester usecase.Requester, targetID string) (*entity.AdminView, error) {
	if m.InspectAccountFunc != nil {
		return m.InspectAccountFunc(ctx, requester, targetID)
	}
	return nil, usecase.ErrAccountNotFound
}

var (
	testModified = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	staleToken   = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
)

func testProfileResult() *usecase.ProfileResult {
	return &usecase.ProfileResult{
		Profile: entity.PublicProfile{
			ID:        "id-1",
			Nickname:  "alice",
			FirstName: "Alice",
			Role:      entity.RoleUser,
			CreatedAt: testModified,
			UpdatedAt: testModified.Add(250 * time.Millisecond),
		},
		LastModified: testModified,
	}
}

// withPrincipal stands in for jwtmw.AuthRequired.
func withPrincipal(id string, role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(jwtmw.ContextAccountID, id)
		c.Set(jwtmw.ContextRole, role)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) gin.H {
	t.Helper()
	var body gin.H
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAccountHandler_Register(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    gin.H
		registerFunc   func(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error)
		expectedStatus int
		expectedBody   gin.H
	}{
		{
			name:        "success: account registration",
			requestBody: gin.H{"nickname": "alice", "firstName": "Alice", "password": "s3cret"},
			registerFunc: func(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error) {
				if in.Nickname != "alice" || in.FirstName != "Alice" || in.Password != "s3cret" {
					return entity.PublicProfile{}, errors.New("unexpected input")
				}
				return entity.PublicProfile{ID: "id-1", Nickname: "alice"}, nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   gin.H{"message": "User created"},
		},
		{
			name:           "failure: missing nickname",
			requestBody:    gin.H{"password": "s3cret"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "invalid request"},
		},
		{
			name:        "failure: duplicate nickname",
			requestBody: gin.H{"nickname": "alice", "password": "s3cret"},
			registerFunc: func(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error) {
				return entity.PublicProfile{}, usecase.ErrNicknameTaken
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "nickname already exists"},
		},
		{
			name:        "failure: weak password",
			requestBody: gin.H{"nickname": "alice", "password": "123"},
			registerFunc: func(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error) {
				return entity.PublicProfile{}, fmtValidation("password must be at least 6 characters long")
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "validation failed: password must be at least 6 characters long"},
		},
		{
			name:        "failure: database error is hidden",
			requestBody: gin.H{"nickname": "alice", "password": "s3cret"},
			registerFunc: func(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error) {
				return entity.PublicProfile{}, errors.New("dial tcp 10.0.0.1:3306: connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   gin.H{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccountHandler(&mockAccountUsecase{RegisterFunc: tt.registerFunc})
			router := gin.New()
			router.POST("/api/register", h.Register)

			w := doRequest(router, http.MethodPost, "/api/register", tt.requestBody, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decodeBody(t, w))
		})
	}
}

func fmtValidation(detail string) error {
	return fmt.Errorf("%w: %s", usecase.ErrValidation, detail)
}

func TestAccountHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	expires := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    gin.H
		loginFunc      func(ctx context.Context, nickname, password string) (*usecase.LoginResult, error)
		expectedStatus int
		expectedBody   gin.H
	}{
		{
			name:        "success: login",
			requestBody: gin.H{"nickname": "alice", "password": "s3cret"},
			loginFunc: func(ctx context.Context, nickname, password string) (*usecase.LoginResult, error) {
				return &usecase.LoginResult{Token: "dummy-jwt-token", Role: entity.RoleUser, ExpiresAt: expires}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   gin.H{"token": "dummy-jwt-token", "role": "user", "expiresAt": "2026-10-18T09:00:00Z"},
		},
		{
			name:           "failure: missing password",
			requestBody:    gin.H{"nickname": "alice"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "invalid request"},
		},
		{
			name:        "failure: invalid credentials",
			requestBody: gin.H{"nickname": "alice", "password": "wrong-password"},
			loginFunc: func(ctx context.Context, nickname, password string) (*usecase.LoginResult, error) {
				return nil, usecase.ErrInvalidCredentials
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   gin.H{"error": "invalid credentials"},
		},
		{
			name:        "failure: signing error is hidden",
			requestBody: gin.H{"nickname": "alice", "password": "s3cret"},
			loginFunc: func(ctx context.Context, nickname, password string) (*usecase.LoginResult, error) {
				return nil, errors.New("failed to generate token: key is invalid")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   gin.H{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccountHandler(&mockAccountUsecase{LoginFunc: tt.loginFunc})
			router := gin.New()
			router.POST("/api/login", h.Login)

			w := doRequest(router, http.MethodPost, "/api/login", tt.requestBody, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decodeBody(t, w))
		})
	}
}

func TestAccountHandler_GetMe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success: profile with Last-Modified", func(t *testing.T) {
		var gotID string
		h := NewAccountHandler(&mockAccountUsecase{
			GetProfileFunc: func(ctx context.Context, accountID string) (*usecase.ProfileResult, error) {
				gotID = accountID
				return testProfileResult(), nil
			},
		})
		router := gin.New()
		router.GET("/api/me", withPrincipal("id-1", entity.RoleUser), h.GetMe)

		w := doRequest(router, http.MethodGet, "/api/me", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "id-1", gotID)
		assert.Equal(t, "Sat, 17 Oct 2026 09:30:00 GMT", w.Header().Get("Last-Modified"))

		body := decodeBody(t, w)
		assert.Equal(t, "alice", body["nickname"])
		assert.Equal(t, "user", body["role"])
		assert.NotContains(t, body, "passwordHash")
		assert.NotContains(t, body, "salt")
	})

	t.Run("failure: deleted account", func(t *testing.T) {
		h := NewAccountHandler(&mockAccountUsecase{})
		router := gin.New()
		router.GET("/api/me", withPrincipal("id-1", entity.RoleUser), h.GetMe)

		w := doRequest(router, http.MethodGet, "/api/me", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, gin.H{"error": "user not found"}, decodeBody(t, w))
	})

	t.Run("failure: no principal", func(t *testing.T) {
		h := NewAccountHandler(&mockAccountUsecase{})
		router := gin.New()
		router.GET("/api/me", h.GetMe)

		w := doRequest(router, http.MethodGet, "/api/me", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAccountHandler_UpdateMe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name             string
		body             any
		headers          map[string]string
		updateErr        error
		expectedStatus   int
		wantCalled       bool
		wantPrecondition *time.Time
		wantFirstName    *string
	}{
		{
			name:           "success: unconditional empty update",
			expectedStatus: http.StatusOK,
			wantCalled:     true,
		},
		{
			name:             "success: conditional partial update",
			body:             gin.H{"firstName": "A"},
			headers:          map[string]string{"If-Unmodified-Since": "Sat, 17 Oct 2026 09:30:00 GMT"},
			expectedStatus:   http.StatusOK,
			wantCalled:       true,
			wantPrecondition: &testModified,
			wantFirstName:    strPtr("A"),
		},
		{
			name:           "failure: unparsable precondition",
			headers:        map[string]string{"If-Unmodified-Since": "yesterday"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:             "failure: stale precondition",
			headers:          map[string]string{"If-Unmodified-Since": "Sat, 17 Oct 2026 09:00:00 GMT"},
			updateErr:        usecase.ErrPreconditionFailed,
			expectedStatus:   http.StatusPreconditionFailed,
			wantCalled:       true,
			wantPrecondition: &staleToken,
		},
		{
			name:           "failure: concurrent writers exhausted retries",
			updateErr:      usecase.ErrConcurrentUpdate,
			expectedStatus: http.StatusConflict,
			wantCalled:     true,
		},
		{
			name:           "failure: malformed body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var got usecase.UpdateProfileInput
			h := NewAccountHandler(&mockAccountUsecase{
				UpdateProfileFunc: func(ctx context.Context, in usecase.UpdateProfileInput) (*usecase.ProfileResult, error) {
					called = true
					got = in
					if tt.updateErr != nil {
						return nil, tt.updateErr
					}
					return testProfileResult(), nil
				},
			})
			router := gin.New()
			router.PUT("/api/me", withPrincipal("id-1", entity.RoleUser), h.UpdateMe)

			w := doRequest(router, http.MethodPut, "/api/me", tt.body, tt.headers)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			if !tt.wantCalled {
				return
			}
			assert.Equal(t, "id-1", got.AccountID)
			if tt.wantPrecondition == nil {
				assert.Nil(t, got.Precondition)
			} else {
				require.NotNil(t, got.Precondition)
				assert.True(t, tt.wantPrecondition.Equal(*got.Precondition))
			}
			assert.Equal(t, tt.wantFirstName, got.Patch.FirstName)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "Sat, 17 Oct 2026 09:30:00 GMT", w.Header().Get("Last-Modified"))
			} else {
				assert.Empty(t, w.Header().Get("Last-Modified"))
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestAccountHandler_ChangePassword(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		body           gin.H
		changeErr      error
		expectedStatus int
	}{
		{"success", gin.H{"oldPassword": "s3cret", "newPassword": "n3w-secret"}, nil, http.StatusOK},
		{"failure: wrong old password", gin.H{"oldPassword": "guess!", "newPassword": "n3w-secret"}, usecase.ErrInvalidCredentials, http.StatusUnauthorized},
		{"failure: missing new password", gin.H{"oldPassword": "s3cret"}, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccountHandler(&mockAccountUsecase{
				ChangePasswordFunc: func(ctx context.Context, in usecase.ChangePasswordInput) (*usecase.ProfileResult, error) {
					if tt.changeErr != nil {
						return nil, tt.changeErr
					}
					return testProfileResult(), nil
				},
			})
			router := gin.New()
			router.PUT("/api/me/password", withPrincipal("id-1", entity.RoleUser), h.ChangePassword)

			w := doRequest(router, http.MethodPut, "/api/me/password", tt.body, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, gin.H{"message": "Password changed"}, decodeBody(t, w))
				assert.NotEmpty(t, w.Header().Get("Last-Modified"))
			}
		})
	}
}

func TestAccountHandler_DeleteUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		role           entity.Role
		deleteErr      error
		expectedStatus int
		expectedBody   gin.H
	}{
		{"success", entity.RoleAdmin, nil, http.StatusOK, gin.H{"message": "User soft-deleted"}},
		{"failure: forbidden", entity.RoleUser, usecase.ErrForbidden, http.StatusForbidden, gin.H{"error": "access denied"}},
		{"failure: unknown target", entity.RoleAdmin, usecase.ErrAccountNotFound, http.StatusNotFound, gin.H{"error": "user not found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRequester usecase.Requester
			var gotTarget string
			h := NewAccountHandler(&mockAccountUsecase{
				DeleteAccountFunc: func(ctx context.Context, requester usecase.Requester, targetID string) error {
					gotRequester, gotTarget = requester, targetID
					return tt.deleteErr
				},
			})
			router := gin.New()
			router.DELETE("/api/users/:id", withPrincipal("id-1", tt.role), h.DeleteUser)

			w := doRequest(router, http.MethodDelete, "/api/users/id-2", nil, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decodeBody(t, w))
			assert.Equal(t, usecase.Requester{AccountID: "id-1", Role: tt.role}, gotRequester)
			assert.Equal(t, "id-2", gotTarget)
		})
	}
}

func TestAccountHandler_GetUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	deletedAt := testModified.Add(time.Hour)
	h := NewAccountHandler(&mockAccountUsecase{
		InspectAccountFunc: func(ctx context.Context, requester usecase.Requester, targetID string) (*entity.AdminView, error) {
			if requester.Role != entity.RoleAdmin {
				return nil, usecase.ErrForbidden
			}
			return &entity.AdminView{PublicProfile: testProfileResult().Profile, DeletedAt: &deletedAt}, nil
		},
	})

	t.Run("admin sees deleted account", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/users/:id", withPrincipal("admin", entity.RoleAdmin), h.GetUser)

		w := doRequest(router, http.MethodGet, "/api/users/id-1", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "alice", body["nickname"])
		assert.Equal(t, "2026-10-17T10:30:00Z", body["deletedAt"])
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/users/:id", withPrincipal("id-2", entity.RoleUser), h.GetUser)

		w := doRequest(router, http.MethodGet, "/api/users/id-1", nil, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
