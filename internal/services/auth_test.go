package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coursebase/apiserver/internal/auth"
	"github.com/coursebase/apiserver/internal/notify"
	"github.com/coursebase/apiserver/internal/store"
	"github.com/coursebase/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int]types.User)}
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryUserRepo) GetByValidResetToken(ctx context.Context, token string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ResetToken != nil && *user.ResetToken == token &&
			user.ResetTokenExpiry != nil && user.ResetTokenExpiry.After(time.Now()) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) SetResetToken(ctx context.Context, userID int, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	r.users[userID] = user
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[userID] = user
	return nil
}

func (r *memoryUserRepo) ConsumePasswordReset(ctx context.Context, token string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, user := range r.users {
		if user.ResetToken != nil && *user.ResetToken == token &&
			user.ResetTokenExpiry != nil && user.ResetTokenExpiry.After(time.Now()) {
			user.PasswordHash = passwordHash
			user.ResetToken = nil
			user.ResetTokenExpiry = nil
			r.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *memoryUserRepo) expireResetToken(userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[userID]
	past := time.Now().Add(-time.Minute)
	user.ResetTokenExpiry = &past
	r.users[userID] = user
}

type recordingNotifier struct {
	messages chan notify.Message
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(chan notify.Message, 8)}
}

func (n *recordingNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.messages <- msg
	return nil
}

func (n *recordingNotifier) waitForMessage(t *testing.T) notify.Message {
	t.Helper()
	select {
	case msg := <-n.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notify.Message{}
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *memoryUserRepo, *recordingNotifier, *auth.TokenIssuer) {
	t.Helper()
	repo := newMemoryUserRepo()
	notifier := newRecordingNotifier()
	hasher := auth.NewPasswordHasher(4)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAuthService(repo, hasher, issuer, notifier, time.Hour, logger)
	return svc, repo, notifier, issuer
}

// --- tests ---

func TestRegisterThenLogin(t *testing.T) {
	svc, _, notifier, issuer := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "pw1", "instructor")
	require.NoError(t, err)
	assert.Equal(t, types.RoleInstructor, user.Role)
	assert.NotEqual(t, "pw1", user.PasswordHash)

	token, err := svc.Login(ctx, "ann@x.com", "pw1")
	require.NoError(t, err)

	claims, err := issuer.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, types.RoleInstructor, claims.Role)

	msg := notifier.waitForMessage(t)
	assert.Equal(t, "ann@x.com", msg.To)
	assert.Equal(t, "Welcome Instructor", msg.Subject)
}

func TestRegisterStudentWelcome(t *testing.T) {
	svc, _, notifier, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "Bob", "bob@x.com", "pw1", "student")
	require.NoError(t, err)

	msg := notifier.waitForMessage(t)
	assert.Equal(t, "Welcome Student", msg.Subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "pw1", "instructor")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other Ann", "ann@x.com", "pw2", "student")
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
	assert.Len(t, repo.users, 1)
}

func TestRegisterInvalidRole(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "Eve", "eve@x.com", "pw1", "admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Empty(t, repo.users)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "pw1", "instructor")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "nobody@x.com", "pw1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Login(ctx, "ann@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginEmailIsCaseSensitive(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "pw1", "instructor")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "Ann@x.com", "pw1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestForgotResetLoginFlow(t *testing.T) {
	svc, repo, notifier, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "old-pw", "student")
	require.NoError(t, err)
	notifier.waitForMessage(t) // welcome

	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	require.NotNil(t, stored.ResetTokenExpiry)
	token := *stored.ResetToken

	resetMail := notifier.waitForMessage(t)
	assert.Equal(t, "Password Reset Request", resetMail.Subject)
	assert.Contains(t, resetMail.Body, token)

	require.NoError(t, svc.ResetPassword(ctx, token, "new-pw"))

	// Token and expiry cleared together.
	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpiry)

	_, err = svc.Login(ctx, "ann@x.com", "new-pw")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "ann@x.com", "old-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResetTokenSingleUse(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "old-pw", "student")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	token := *stored.ResetToken

	require.NoError(t, svc.ResetPassword(ctx, token, "first-new"))

	err = svc.ResetPassword(ctx, token, "second-new")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredResetToken)

	_, err = svc.Login(ctx, "ann@x.com", "first-new")
	assert.NoError(t, err)
}

func TestResetTokenExpired(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "old-pw", "student")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	token := *stored.ResetToken

	repo.expireResetToken(user.ID)

	err = svc.ResetPassword(ctx, token, "new-pw")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredResetToken)

	_, err = svc.Login(ctx, "ann@x.com", "old-pw")
	assert.NoError(t, err)
}

func TestResetWithUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	err := svc.ResetPassword(context.Background(), "never-issued", "new-pw")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredResetToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	err := svc.ForgotPassword(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "old-pw", "instructor")
	require.NoError(t, err)

	// Wrong current password leaves the stored hash untouched.
	err = svc.ChangePassword(ctx, user.ID, "wrong", "new-pw")
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)
	_, err = svc.Login(ctx, "ann@x.com", "old-pw")
	assert.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "old-pw", "new-pw"))
	_, err = svc.Login(ctx, "ann@x.com", "new-pw")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "ann@x.com", "old-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordKeepsResetWindow(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "old-pw", "student")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	token := *stored.ResetToken

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "old-pw", "mid-pw"))

	// Changing the password does not touch the reset window; the token
	// issued before the change still works.
	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)

	require.NoError(t, svc.ResetPassword(ctx, token, "final-pw"))
	_, err = svc.Login(ctx, "ann@x.com", "final-pw")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "ann@x.com", "mid-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordUserGone(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	err := svc.ChangePassword(context.Background(), 999, "old-pw", "new-pw")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
