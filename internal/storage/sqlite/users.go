package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"taskhub/internal/models"
)

// CreateUser persists a new account. The email is normalized to lower case.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if strings.TrimSpace(u.Name) == "" {
		return models.User{}, fmt.Errorf("user name must not be empty")
	}
	if strings.TrimSpace(u.Email) == "" {
		return models.User{}, fmt.Errorf("user email must not be empty")
	}
	if _, ok := models.ValidRoles[u.Role]; !ok {
		u.Role = models.RoleDeveloper
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	email := strings.ToLower(strings.TrimSpace(u.Email))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, name, email, password_hash, role) VALUES(?, ?, ?, ?, ?)`,
		u.ID, strings.TrimSpace(u.Name), email, u.PasswordHash, u.Role)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

// GetUser fetches a single account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail fetches an account by its normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// SetUserPassword replaces the stored password hash.
func (s *Store) SetUserPassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// ListUsersByRole returns all accounts holding the given role, ordered by name.
func (s *Store) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE role = ? ORDER BY name ASC`, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateSession stores an opaque bearer token for a user.
func (s *Store) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(token, user_id, expires_at) VALUES(?, ?, ?)`, token, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionUser resolves a bearer token to its account. Unknown and expired
// tokens both report ErrNotFound; the server does not tell the two apart.
func (s *Store) GetSessionUser(ctx context.Context, token string) (models.User, error) {
	var userID string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get session: %w", err)
	}
	if time.Now().After(expiresAt) {
		return models.User{}, fmt.Errorf("session: %w", ErrNotFound)
	}
	return s.GetUser(ctx, userID)
}

// DeleteSession revokes a bearer token. Revoking an unknown token is a no-op.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// CreateResetToken stores a single-use password reset token.
func (s *Store) CreateResetToken(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reset_tokens(token, user_id, expires_at) VALUES(?, ?, ?)`, token, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

// GetResetTokenUser validates a reset token and returns its owner. The token
// stays valid; consumption happens in ConsumeResetToken.
func (s *Store) GetResetTokenUser(ctx context.Context, token string) (models.User, error) {
	var userID string
	var expiresAt time.Time
	var consumedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, consumed_at FROM reset_tokens WHERE token = ?`, token).
		Scan(&userID, &expiresAt, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("reset token: %w", ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get reset token: %w", err)
	}
	if consumedAt.Valid {
		return models.User{}, ErrTokenConsumed
	}
	if time.Now().After(expiresAt) {
		return models.User{}, ErrTokenExpired
	}
	return s.GetUser(ctx, userID)
}

// ConsumeResetToken marks a token used. The guard on consumed_at makes the
// operation atomic: a token is consumed at most once even under racing calls.
func (s *Store) ConsumeResetToken(ctx context.Context, token string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reset_tokens SET consumed_at = ? WHERE token = ? AND consumed_at IS NULL AND expires_at > ?`,
		now.UTC(), token, now.UTC())
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a used token from an unknown or expired one.
		var consumedAt sql.NullTime
		row := s.db.QueryRowContext(ctx, `SELECT consumed_at FROM reset_tokens WHERE token = ?`, token)
		if scanErr := row.Scan(&consumedAt); scanErr == nil && consumedAt.Valid {
			return ErrTokenConsumed
		}
		return fmt.Errorf("reset token: %w", ErrNotFound)
	}
	return nil
}

// PurgeExpiredResetTokens removes reset tokens past their expiry, consumed
// or not.
func (s *Store) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reset_tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	return res.RowsAffected()
}
