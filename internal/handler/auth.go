package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linkhub/linkhub/internal/auth"
	"github.com/linkhub/linkhub/internal/model"
	"github.com/linkhub/linkhub/internal/service"
)

// AuthAPI is the service behind the auth endpoints. *service.AuthService implements it.
type AuthAPI interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, input service.LoginInput) (*auth.AccessToken, error)
	CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error)
}

// AuthHandler handles registration, login and profile requests.
type AuthHandler struct {
	service AuthAPI
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthAPI, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  logger,
	}
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.RegisterResponse{
		Success:   true,
		Token:     result.Token.Token,
		ExpiresAt: result.Token.ExpiresAt,
		User:      result.User,
	})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{
		Success:   true,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// Me handles GET /api/me. It must run behind middleware.Auth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MeResponse{Success: true, User: *user})
}

func (h *AuthHandler) writeDecodeError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, reqErr.status, reqErr.message)
		return
	}
	writeError(w, http.StatusBadRequest, "Malformed JSON body")
}

// handleError maps service errors to HTTP responses. Internal causes are
// logged and never returned to the client.
func (h *AuthHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *service.ValidationError
		duplicateErr  *service.DuplicateUserError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  validationErr.Fields,
		})
	case errors.As(err, &duplicateErr):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Success: false,
			Message: "User already exists",
			Errors:  []model.FieldError{{Field: duplicateErr.Field, Message: duplicateErr.Field + " is already registered"}},
		})
	case errors.Is(err, service.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrUserNotFound):
		// The token is valid but its user is gone.
		writeError(w, http.StatusUnauthorized, "Invalid or missing token")
	default:
		h.logger.ErrorContext(r.Context(), "request_failed",
			slog.String("error", err.Error()),
			slog.String("code", service.ErrorCode(err)),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
