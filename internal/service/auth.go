// Authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt), TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Registration: validate → hash → insert → issue token
//   - Login: look up → verify → issue token, with one indistinguishable
//     failure for "no such email" and "wrong password"

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/auth"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
)

// emailPattern is intentionally loose: something@something.something with
// no whitespace. Deliverability is not our problem.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// RegisterInput is what a client submits to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is what a client submits to sign in.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by Register and Login. It never carries the
// password hash.
type AuthResult struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an account and signs the new user in.
//
// VALIDATION ORDER:
// username → email → password. The first failing rule is reported, so a
// client always gets one error naming one field.
//
// UNIQUENESS:
// We never ask the store "does this email exist?" before inserting. The
// store's unique constraint is the authority and CreateUser reports a
// collision as apperror.Duplicate, even when two requests race.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	if err := validateRegistration(username, email, in.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			s.logger.Info("registration rejected: duplicate", slog.String("username", username))
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login verifies credentials and returns a fresh token.
//
// USER ENUMERATION:
// An unknown email and a wrong password both yield apperror.InvalidCredentials
// with the same message. For an unknown email we still run one bcrypt
// comparison against a throwaway hash so the response time doesn't give the
// difference away either.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	if email == "" {
		return nil, apperror.ValidationFailed("email", "please provide email and password")
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "please provide email and password")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.burnComparison(in.Password)
			s.logger.Warn("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.InvalidCredentials()
		}
		s.logger.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("logging in: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("login failed",
				slog.String("reason", "wrong password"),
				slog.String("user_id", user.ID),
			)
			return nil, apperror.InvalidCredentials()
		}
		s.logger.Error("stored password hash is unusable",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Store("verifying password", err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

// CurrentUser returns the public profile of an already authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	return &AuthResult{User: user.Public(), Token: token}, nil
}

// burnComparison spends one bcrypt comparison's worth of CPU.
func (s *AuthService) burnComparison(password string) {
	s.dummyOnce.Do(func() {
		salt := make([]byte, 16)
		_, _ = rand.Read(salt)
		h, err := s.passwords.Hash(hex.EncodeToString(salt))
		if err != nil {
			s.logger.Error("failed to prepare dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		_ = s.passwords.Verify(s.dummyHash, password)
	}
}

func validateRegistration(username, email, password string) error {
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	if !emailPattern.MatchString(email) {
		return apperror.ValidationFailed("email", "invalid email")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// normalizeEmail makes lookups case-insensitive: emails are stored lower-cased.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
