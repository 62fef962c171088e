package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const UserStatusActive = "active"

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type User struct {
	ID           string
	Email        string
	Role         string
	DriverID     string
	PasswordHash string
	MFAEnabled   bool
	// MFASecret is the sealed TOTP secret, empty until setup starts.
	MFASecret []byte
}

const userColumns = `id, email, role, COALESCE(driver_id::text, ''), password_hash, mfa_enabled, mfa_secret_enc`

func scanUser(row pgx.Row) (User, error) {
	var out User
	err := row.Scan(&out.ID, &out.Email, &out.Role, &out.DriverID, &out.PasswordHash, &out.MFAEnabled, &out.MFASecret)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return out, err
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM users
    WHERE lower(email) = lower($1) AND status = $2
  `, email, UserStatusActive))
}

func (s *Store) FindActiveUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM users
    WHERE id = $1 AND status = $2
  `, userID, UserStatusActive))
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

// UpdateMFASecret stores a fresh sealed secret and turns MFA off until the
// user confirms a code.
func (s *Store) UpdateMFASecret(ctx context.Context, userID string, sealed []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $2, mfa_enabled = false WHERE id = $1", userID, sealed)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	if enabled {
		_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = true WHERE id = $1", userID)
		return err
	}
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = false, mfa_secret_enc = NULL WHERE id = $1", userID)
	return err
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, token_hash, expires_at)
    VALUES ($1,$2,$3)
  `, userID, tokenHash, expires)
	return err
}

// RotateSession swaps the hash of a live session. It reports false when the
// old session is unknown, revoked or expired.
func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET token_hash = $3, expires_at = $4, rotated_at = now()
    WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL AND expires_at > now()
  `, userID, oldHash, newHash, expires)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL", userID, tokenHash)
	return err
}

// EnsureUser inserts the user unless the email is already taken. It reports
// whether a row was created.
func (s *Store) EnsureUser(ctx context.Context, email, passwordHash, role string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO users (email, password_hash, role, status)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (email) DO NOTHING
  `, email, passwordHash, role, UserStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
