package types

import "time"

// Role is the closed set of account roles. Role-based dispatch always
// compares against these constants, never raw request strings.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// ParseRole maps a raw string onto the closed role set.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleInstructor:
		return RoleInstructor, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}

// User represents an account in the system.
// It contains identity, role, and password-recovery state.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's login identifier, unique across all users.
	// Matching is case-sensitive.
	Email string `json:"email" db:"email"`

	// Role indicates whether the account belongs to an instructor
	// or a student. Immutable after creation.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ResetToken is the active password-reset token, present only during
	// an open reset window. Set and cleared together with ResetTokenExpiry.
	ResetToken *string `json:"-" db:"reset_token"`

	// ResetTokenExpiry is the absolute expiry of ResetToken.
	ResetTokenExpiry *time.Time `json:"-" db:"reset_token_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
