package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/models"
	"taskhub/internal/storage/sqlite"
)

// Errors surfaced to the HTTP layer.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

// MinPasswordLength is enforced both here and by the client-side flow.
const MinPasswordLength = 6

// Service owns credentials: login sessions and single-use password reset
// tokens. Session tokens are opaque; validity lives server-side so a token
// can be revoked immediately.
type Service struct {
	store      *sqlite.Store
	logger     *slog.Logger
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// New constructs the credential service.
func New(store *sqlite.Store, logger *slog.Logger, sessionTTL, resetTTL time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if resetTTL <= 0 {
		resetTTL = 48 * time.Hour
	}
	return &Service{store: store, logger: logger, sessionTTL: sessionTTL, resetTTL: resetTTL}
}

// newToken returns a 32-byte random token in hex.
func newToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// HashPassword derives the stored bcrypt hash for a password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the credentials and issues a fresh session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}
	if user.PasswordHash == "" {
		// Account was provisioned but the reset link was never used.
		return "", models.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	token := newToken()
	if err := s.store.CreateSession(ctx, token, user.ID, time.Now().Add(s.sessionTTL)); err != nil {
		return "", models.User{}, err
	}
	s.logger.Info("session issued", slog.String("user", user.ID), slog.String("role", user.Role))
	return token, user, nil
}

// Authenticate resolves a bearer token to its account. Any failure collapses
// into ErrInvalidToken; the server never explains why a token was rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}
	user, err := s.store.GetSessionUser(ctx, token)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return user, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// IssueResetToken creates a single-use password reset token for a user.
// Delivery of the link is out of scope; the token is returned to the caller.
func (s *Service) IssueResetToken(ctx context.Context, userID string) (string, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return "", err
	}
	token := newToken()
	if err := s.store.CreateResetToken(ctx, token, userID, time.Now().Add(s.resetTTL)); err != nil {
		return "", err
	}
	s.logger.Info("reset token issued", slog.String("user", userID))
	return token, nil
}

// ValidateResetToken checks a reset token without consuming it and returns
// the owning account for display.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (models.User, error) {
	user, err := s.store.GetResetTokenUser(ctx, token)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) ||
			errors.Is(err, sqlite.ErrTokenConsumed) ||
			errors.Is(err, sqlite.ErrTokenExpired) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return user, nil
}

// ResetPassword consumes the token and sets the new password. Consumption
// happens first and is atomic, so the token is never accepted twice even if
// two calls race.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.ConsumeResetToken(ctx, token, time.Now()); err != nil {
		if errors.Is(err, sqlite.ErrTokenConsumed) || errors.Is(err, sqlite.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := s.store.SetUserPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password set", slog.String("user", user.ID))
	return nil
}
