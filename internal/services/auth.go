package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursebase/apiserver/internal/auth"
	"github.com/coursebase/apiserver/internal/notify"
	"github.com/coursebase/apiserver/types"
)

const notifyTimeout = 10 * time.Second

var (
	// ErrInvalidRole is returned when registration names a role outside the
	// closed instructor/student set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidCredentials is returned on login when the password does not
	// match. A missing account surfaces separately as store.ErrNotFound,
	// mirroring the original endpoint messages.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidCurrentPassword is returned by ChangePassword when the
	// presented current password does not verify.
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")

	// ErrInvalidOrExpiredResetToken covers reset tokens that never existed,
	// expired, or were already consumed; the three are indistinguishable.
	ErrInvalidOrExpiredResetToken = errors.New("invalid or expired reset token")
)

// UserRepository defines the credential-store operations the auth service
// depends on.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByValidResetToken(ctx context.Context, token string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetResetToken(ctx context.Context, userID int, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	ConsumePasswordReset(ctx context.Context, token string, passwordHash string) error
}

// AuthService orchestrates the credential lifecycle: registration, login,
// password recovery, and authenticated password change.
type AuthService struct {
	users    UserRepository
	hasher   *auth.PasswordHasher
	issuer   *auth.TokenIssuer
	notifier notify.Notifier
	resetTTL time.Duration
	logger   *slog.Logger
}

func NewAuthService(
	users UserRepository,
	hasher *auth.PasswordHasher,
	issuer *auth.TokenIssuer,
	notifier notify.Notifier,
	resetTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		notifier: notifier,
		resetTTL: resetTTL,
		logger:   logger,
	}
}

// Register creates a new account. The welcome notification is enqueued after
// the user row exists and its outcome never affects the returned result.
func (s *AuthService) Register(ctx context.Context, name, email, password string, rawRole string) (types.User, error) {
	role, ok := types.ParseRole(rawRole)
	if !ok {
		return types.User{}, ErrInvalidRole
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hashed,
	})
	if err != nil {
		return types.User{}, err
	}

	switch role {
	case types.RoleInstructor:
		s.notify(user.Email, "Welcome Instructor", "Your instructor account has been created successfully.")
	case types.RoleStudent:
		s.notify(user.Email, "Welcome Student", "Your student account has been created successfully.")
	}

	return user, nil
}

// Login verifies credentials and issues a session token. A missing account
// and a wrong password return distinct errors, matching the original
// endpoint contract.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.issuer.IssueSessionToken(user.ID, user.Role)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

// ForgotPassword opens a reset window and mails the token to the account
// owner. The returned error reflects only the store write; notification
// delivery is out-of-band.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.issuer.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiry := time.Now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return err
	}

	s.notify(user.Email, "Password Reset Request", fmt.Sprintf("Your reset token is %s", token))
	return nil
}

// ResetPassword consumes a reset token and installs the new password. The
// hash write and the token clear happen in one store operation, so the token
// cannot be replayed after success.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.users.GetByValidResetToken(ctx, token)
	if err != nil {
		return ErrInvalidOrExpiredResetToken
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.ConsumePasswordReset(ctx, token, hashed); err != nil {
		// The window closed between lookup and write: expired or raced
		// with another reset.
		return ErrInvalidOrExpiredResetToken
	}

	s.notify(user.Email, "Password Changed Successfully", "Your password has been successfully changed.")
	return nil
}

// ChangePassword updates the password of an authenticated caller. The caller
// id comes from a verified session token, never from the request body.
func (s *AuthService) ChangePassword(ctx context.Context, callerID int, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCurrentPassword
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	s.notify(user.Email, "Password Changed", "Your password has been successfully changed.")
	return nil
}

// notify enqueues a message without tying it to the request lifecycle. A
// failed enqueue is logged and otherwise swallowed.
func (s *AuthService) notify(to, subject, body string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		msg := notify.Message{To: to, Subject: subject, Body: body}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Error("failed to enqueue notification",
				"to", to,
				"subject", subject,
				"error", err,
			)
		}
	}()
}
