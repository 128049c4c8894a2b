package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linkhub/linkhub/internal/auth"
)

// Authenticator verifies a bearer token and returns its subject user ID.
// *service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
}

// Auth returns a middleware that requires a valid bearer access token.
// The token's subject is stored in the request context for
// auth.SubjectFromContext. Failures get 401 with the uniform error body.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w, "Invalid or missing token")
				return
			}

			subject, err := cfg.Authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					logAuthFailure(cfg.Logger, r, "expired_token")
					writeAuthError(w, "Token expired")
					return
				}
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeAuthError(w, "Invalid or missing token")
				return
			}

			noteSubject(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithSubject(r.Context(), subject)))
		})
	}
}

// extractBearerToken reads "Authorization: Bearer <token>". The scheme is case-insensitive.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.WarnContext(r.Context(), "authentication_failed",
		slog.String("reason", reason),
		slog.String("ip", clientIP(r)),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 with a Bearer challenge.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="linkhub"`)
	writeError(w, http.StatusUnauthorized, message)
}
