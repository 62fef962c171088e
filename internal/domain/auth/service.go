package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"truckbooks/internal/platform/clock"
)

type UserStore interface {
	FindActiveUserByEmail(ctx context.Context, email string) (User, error)
	FindActiveUserByID(ctx context.Context, userID string) (User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdateMFASecret(ctx context.Context, userID string, sealed []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
	CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error
	RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) (bool, error)
	RevokeSession(ctx context.Context, userID, tokenHash string) error
}

// SecretSealer encrypts MFA secrets at rest. *crypto.Sealer satisfies it.
type SecretSealer interface {
	Configured() bool
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

const mfaIssuer = "truckbooks"

type Service struct {
	store  UserStore
	secret string
	ttl    time.Duration
	clock  clock.Clock
	sealer SecretSealer
}

func NewService(store UserStore, secret string, ttl time.Duration, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, secret: secret, ttl: ttl, clock: clk}
}

// WithMFA enables TOTP enrollment. Without a configured sealer every MFA
// call fails with ErrMFAUnavailable.
func (s *Service) WithMFA(sealer SecretSealer) *Service {
	s.sealer = sealer
	return s
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	DriverID  string    `json:"driverId,omitempty"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// Login checks the credentials and issues an access token. Unknown emails
// and wrong passwords fail the same way. Accounts with MFA enabled also need
// a current TOTP code.
func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (Session, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if user.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return Session{}, ErrMFARequired
		}
		if err := s.checkCode(user, mfaCode); err != nil {
			return Session{}, err
		}
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return Session{}, err
	}
	now := s.clock.Now()
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), now.Add(s.ttl)); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	session, err := s.issue(user.ID, user.Role, user.DriverID, sessionID, now)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("last login update failed", "userId", user.ID, "err", err)
	}
	return session, nil
}

// Refresh trades a live session for a new token and rotates the session
// handle so the previous token can no longer be refreshed.
func (s *Service) Refresh(ctx context.Context, userID, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrSessionExpired
	}
	user, err := s.store.FindActiveUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrSessionExpired
	}
	if err != nil {
		return Session{}, err
	}
	next, err := NewSessionID()
	if err != nil {
		return Session{}, err
	}
	now := s.clock.Now()
	rotated, err := s.store.RotateSession(ctx, user.ID, HashToken(sessionID), HashToken(next), now.Add(s.ttl))
	if err != nil {
		return Session{}, fmt.Errorf("rotate session: %w", err)
	}
	if !rotated {
		return Session{}, ErrSessionExpired
	}
	return s.issue(user.ID, user.Role, user.DriverID, next, now)
}

func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, userID, HashToken(sessionID))
}

// SetupMFA generates a new secret for the user. MFA stays off until
// EnableMFA confirms a code from it.
func (s *Service) SetupMFA(ctx context.Context, userID string) (MFASetup, error) {
	if !s.mfaAvailable() {
		return MFASetup{}, ErrMFAUnavailable
	}
	user, err := s.store.FindActiveUserByID(ctx, userID)
	if err != nil {
		return MFASetup{}, err
	}
	if user.Role == RoleDriver {
		return MFASetup{}, ErrMFANotAllowed
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	sealed, err := s.sealer.Seal([]byte(key.Secret()))
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.store.UpdateMFASecret(ctx, user.ID, sealed); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	return s.confirmMFA(ctx, userID, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	return s.confirmMFA(ctx, userID, code, false)
}

func (s *Service) confirmMFA(ctx context.Context, userID, code string, enabled bool) error {
	if !s.mfaAvailable() {
		return ErrMFAUnavailable
	}
	user, err := s.store.FindActiveUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == RoleDriver {
		return ErrMFANotAllowed
	}
	if err := s.checkCode(user, code); err != nil {
		return err
	}
	return s.store.SetMFAEnabled(ctx, user.ID, enabled)
}

func (s *Service) checkCode(user User, code string) error {
	if len(user.MFASecret) == 0 {
		return ErrMFANotSetUp
	}
	if !s.mfaAvailable() {
		return ErrMFAUnavailable
	}
	secret, err := s.sealer.Open(user.MFASecret)
	if err != nil {
		return fmt.Errorf("open mfa secret: %w", err)
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), string(secret), s.clock.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return ErrMFAInvalid
	}
	return nil
}

func (s *Service) mfaAvailable() bool {
	return s.sealer != nil && s.sealer.Configured()
}

func (s *Service) issue(userID, role, driverID, sessionID string, now time.Time) (Session, error) {
	token, err := GenerateToken(s.secret, Claims{UserID: userID, Role: role, DriverID: driverID, SessionID: sessionID}, now, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: now.Add(s.ttl), UserID: userID, Role: role, DriverID: driverID}, nil
}
