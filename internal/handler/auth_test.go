package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/linkhub/internal/auth"
	"github.com/linkhub/linkhub/internal/model"
	"github.com/linkhub/linkhub/internal/service"
)

type fakeAuthAPI struct {
	registerErr error
	loginErr    error
	profileErr  error
	gotRegister service.RegisterInput
}

func (f *fakeAuthAPI) Register(_ context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	f.gotRegister = in
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &service.RegisterResult{
		User:  model.PublicUser{ID: "01HZUSER", Username: in.Username, Email: in.Email},
		Token: &auth.AccessToken{Token: "signed.jwt.token", SubjectID: "01HZUSER", ExpiresAt: time.Now().Add(time.Hour)},
	}, nil
}

func (f *fakeAuthAPI) Login(context.Context, service.LoginInput) (*auth.AccessToken, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &auth.AccessToken{Token: "signed.jwt.token", SubjectID: "01HZUSER", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuthAPI) CurrentUser(_ context.Context, userID string) (*model.PublicUser, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &model.PublicUser{ID: userID, Username: "testuser", Email: "test@example.com"}, nil
}

const validRegisterBody = `{"username":"testuser","email":"test@example.com","password":"password123"}`

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	api := &fakeAuthAPI{}
	h := NewAuthHandler(api, discardLogger())

	rec := postJSON(h.Register, validRegisterBody)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp model.RegisterResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "signed.jwt.token", resp.Token)
	assert.Equal(t, "testuser", resp.User.Username)
	assert.Equal(t, "password123", api.gotRegister.Password)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthHandler_RegisterErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantMessage string
		wantField   string
	}{
		{
			name:       "malformed body",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"username":"testuser","email":"test@example.com","password":"password123","role":"admin"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "validation",
			body:        validRegisterBody,
			err:         &service.ValidationError{Fields: []model.FieldError{{Field: "password", Message: "too short"}}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
			wantField:   "password",
		},
		{
			name:        "duplicate email",
			body:        validRegisterBody,
			err:         &service.DuplicateUserError{Field: "email"},
			wantStatus:  http.StatusConflict,
			wantMessage: "User already exists",
			wantField:   "email",
		},
		{
			name:        "internal",
			body:        validRegisterBody,
			err:         fmt.Errorf("%w: pool exhausted at 10.0.0.5", service.ErrInternal),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewAuthHandler(&fakeAuthAPI{registerErr: tt.err}, discardLogger())
			rec := postJSON(h.Register, tt.body)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")

			resp := decodeError(t, rec)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Message)
			}
			if tt.wantField != "" {
				require.Len(t, resp.Errors, 1)
				assert.Equal(t, tt.wantField, resp.Errors[0].Field)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"success", nil, http.StatusOK, ""},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"internal", errors.Join(service.ErrInternal, errors.New("boom")), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewAuthHandler(&fakeAuthAPI{loginErr: tt.err}, discardLogger())
			rec := postJSON(h.Login, `{"email":"test@example.com","password":"password123"}`)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				var resp model.LoginResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.Success)
				assert.Equal(t, "signed.jwt.token", resp.Token)
				assert.False(t, resp.ExpiresAt.IsZero())
				return
			}
			assert.Equal(t, tt.wantMessage, decodeError(t, rec).Message)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	t.Parallel()

	t.Run("authenticated", func(t *testing.T) {
		t.Parallel()

		h := NewAuthHandler(&fakeAuthAPI{}, discardLogger())
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(auth.ContextWithSubject(req.Context(), "01HZUSER"))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp model.MeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "01HZUSER", resp.User.ID)
	})

	t.Run("no subject", func(t *testing.T) {
		t.Parallel()

		h := NewAuthHandler(&fakeAuthAPI{}, discardLogger())
		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		t.Parallel()

		h := NewAuthHandler(&fakeAuthAPI{profileErr: service.ErrUserNotFound}, discardLogger())
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(auth.ContextWithSubject(req.Context(), "01HZGONE"))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
