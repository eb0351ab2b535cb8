package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coursebase/apiserver/types"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, role, password_hash, reset_token, reset_token_expires, created_at, updated_at`

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail looks a user up by email. Matching is case-sensitive: the
// column has no citext/lower index and login uses the address exactly as
// registered.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByValidResetToken resolves a user by an unexpired reset token. A token
// that is present on a row but already past its expiry does not match, so
// callers cannot distinguish expired from never-issued.
func (r *UserRepository) GetByValidResetToken(ctx context.Context, token string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_token = $1 AND reset_token_expires > $2`
	return scanUser(r.db.QueryRowContext(ctx, query, token, time.Now()))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, email, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

// SetResetToken opens a reset window: token and expiry are written together,
// replacing any previous window.
func (r *UserRepository) SetResetToken(ctx context.Context, userID int, token string, expiry time.Time) error {
	const query = `
		UPDATE users
		SET reset_token = $1,
			reset_token_expires = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, token, expiry, time.Now(), userID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// UpdatePassword writes a new password hash for a user. An open reset window
// is left untouched: only ConsumePasswordReset closes one.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), userID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ConsumePasswordReset atomically writes the new hash and clears the reset
// window, keyed on the token value. Two racing resets with the same token
// cannot both match; the loser sees ErrNotFound, which keeps the token
// single-use.
func (r *UserRepository) ConsumePasswordReset(ctx context.Context, token string, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			reset_token = NULL,
			reset_token_expires = NULL,
			updated_at = $2
		WHERE reset_token = $3 AND reset_token_expires > $4`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), token, time.Now())
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
