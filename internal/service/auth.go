// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/linkhub/linkhub/internal/auth"
	"github.com/linkhub/linkhub/internal/metrics"
	"github.com/linkhub/linkhub/internal/model"
	"github.com/linkhub/linkhub/internal/repository"
)

// TokenService issues and verifies access tokens. *auth.TokenIssuer implements it.
type TokenService interface {
	Issue(subjectID string) (*auth.AccessToken, error)
	Verify(token string) (string, error)
}

// ProfileCache caches public user profiles. *cache.Cache implements it.
// A nil profile with a nil error is a miss.
type ProfileCache interface {
	GetUserProfile(ctx context.Context, userID string) (*model.PublicUser, error)
	SetUserProfile(ctx context.Context, profile *model.PublicUser) error
}

// AuthDeps are the collaborators of AuthService. Store, Hasher and Tokens are required.
type AuthDeps struct {
	Store    repository.UserStore
	Hasher   auth.PasswordHasher
	Tokens   TokenService
	Policy   PasswordPolicy
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	Profiles ProfileCache
}

// AuthService handles registration, login and token authentication.
// It holds no per-request state and is safe for concurrent use.
type AuthService struct {
	store    repository.UserStore
	hasher   auth.PasswordHasher
	tokens   TokenService
	policy   PasswordPolicy
	logger   *slog.Logger
	metrics  metrics.Recorder
	profiles ProfileCache

	// dummyHash is verified against when the email is unknown so both
	// login failure paths cost one hash verification.
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(deps AuthDeps) (*AuthService, error) {
	if deps.Store == nil || deps.Hasher == nil || deps.Tokens == nil {
		return nil, errors.New("auth service: store, hasher and tokens are required")
	}
	if deps.Policy.MinLength <= 0 {
		deps.Policy = DefaultPasswordPolicy()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}

	// Produced by the configured hasher so its cost matches real hashes.
	dummy, err := deps.Hasher.Hash("dummy-" + ulid.Make().String())
	if err != nil {
		return nil, fmt.Errorf("auth service: prepare dummy hash: %w", err)
	}

	return &AuthService{
		store:     deps.Store,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		policy:    deps.Policy,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		profiles:  deps.Profiles,
		dummyHash: dummy,
	}, nil
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterResult is a created user and a token for it.
type RegisterResult struct {
	User  model.PublicUser
	Token *auth.AccessToken
}

// Register validates input, stores a new user and issues a token for it.
// No record is stored when any step fails.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = NormalizeEmail(input.Email)

	if fields := ValidateRegistration(input, s.policy); len(fields) > 0 {
		s.metrics.IncRegistration(metrics.OutcomeValidation)
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		s.metrics.IncRegistration(metrics.OutcomeError)
		return nil, internalError(codeRegisterFailed, "hash password", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	// Issue before inserting so a signing failure leaves nothing behind.
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.IncRegistration(metrics.OutcomeError)
		return nil, internalError(codeRegisterFailed, "issue token", err)
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			s.metrics.IncRegistration(metrics.OutcomeDuplicate)
			return nil, &DuplicateUserError{Field: "username"}
		case errors.Is(err, repository.ErrEmailTaken):
			s.metrics.IncRegistration(metrics.OutcomeDuplicate)
			return nil, &DuplicateUserError{Field: "email"}
		default:
			s.metrics.IncRegistration(metrics.OutcomeError)
			return nil, internalError(codeRegisterFailed, "create user", err)
		}
	}

	s.metrics.IncRegistration(metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "user_registered", "user_id", user.ID)

	return &RegisterResult{User: user.ToPublic(), Token: token}, nil
}

// LoginInput defines input for login.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a token. An unknown email, a wrong
// password and an over-long password all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*auth.AccessToken, error) {
	// No stored password can be longer than the policy allows; skip the hash.
	if s.policy.MaxLength > 0 && utf8.RuneCountInString(input.Password) > s.policy.MaxLength {
		s.metrics.IncLogin(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.metrics.IncLogin(metrics.OutcomeError)
		return nil, internalError(codeLoginFailed, "get user by email", err)
	}

	target := s.dummyHash
	if user != nil {
		target = user.PasswordHash
	}

	// Always verify, even for unknown users.
	valid := s.hasher.Verify(input.Password, target)
	if user == nil || !valid {
		s.metrics.IncLogin(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.IncLogin(metrics.OutcomeError)
		return nil, internalError(codeLoginFailed, "issue token", err)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, input.Password)
	}

	s.metrics.IncLogin(metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "user_logged_in", "user_id", user.ID)

	return token, nil
}

// rehash upgrades a stored hash to current parameters. Failures are logged
// and never fail the login.
func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	hash, err := s.hashPassword(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password_rehash_failed", "user_id", userID, "error", err)
		return
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.logger.WarnContext(ctx, "password_rehash_failed", "user_id", userID, "error", err)
		return
	}
	s.metrics.IncPasswordRehash()
}

// Authenticate verifies an access token and returns its subject user ID.
// Errors are ErrInvalidToken or ErrExpiredToken.
func (s *AuthService) Authenticate(_ context.Context, token string) (string, error) {
	subject, err := s.tokens.Verify(token)
	switch {
	case err == nil:
		s.metrics.IncTokenVerification(metrics.TokenValid)
		return subject, nil
	case errors.Is(err, ErrExpiredToken):
		s.metrics.IncTokenVerification(metrics.TokenExpired)
		return "", ErrExpiredToken
	default:
		s.metrics.IncTokenVerification(metrics.TokenInvalid)
		return "", ErrInvalidToken
	}
}

// CurrentUser returns the public profile of userID, using the profile cache when configured.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	if s.profiles != nil {
		cached, err := s.profiles.GetUserProfile(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "profile_cache_error", "error", err)
		} else if cached != nil {
			s.metrics.IncProfileCacheHit()
			return cached, nil
		}
		s.metrics.IncProfileCacheMiss()
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(codeProfileFailed, "get user by id", err)
	}

	profile := user.ToPublic()
	if s.profiles != nil {
		if err := s.profiles.SetUserProfile(ctx, &profile); err != nil {
			s.logger.WarnContext(ctx, "profile_cache_error", "error", err)
		}
	}

	return &profile, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(password)
	s.metrics.ObservePasswordHashDuration(time.Since(start))
	return hash, err
}
