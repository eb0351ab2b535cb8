package auth

import (
	"testing"
	"time"

	"github.com/coursebase/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.IssueSessionToken(42, types.RoleInstructor)
	require.NoError(t, err)

	claims, err := issuer.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, types.RoleInstructor, claims.Role)
}

func TestSessionTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("different-secret", time.Hour)

	token, err := issuer.IssueSessionToken(42, types.RoleStudent)
	require.NoError(t, err)

	_, err = other.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.IssueSessionToken(42, types.RoleStudent)
	require.NoError(t, err)

	_, err = issuer.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSessionTokenMalformed(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	_, err := issuer.VerifySessionToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifySessionToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenUnknownRole(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.IssueSessionToken(42, types.Role("admin"))
	require.NoError(t, err)

	_, err = issuer.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewResetToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	first, err := issuer.NewResetToken()
	require.NoError(t, err)
	second, err := issuer.NewResetToken()
	require.NoError(t, err)

	// 20 bytes of entropy, hex-encoded.
	assert.Len(t, first, 40)
	assert.NotEqual(t, first, second)
}
