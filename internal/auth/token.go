package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/coursebase/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
)

const resetTokenBytes = 20

var (
	// ErrInvalidToken covers structurally malformed tokens, bad signatures,
	// and claims that do not resolve to a known user/role.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the signature verifies but the token
	// is past its expiry.
	ErrExpiredToken = errors.New("token expired")
)

// SessionClaims is the verified content of a session token. Role is trusted
// as issued; it is not re-checked against the store, so a role change is
// invisible until the token expires.
type SessionClaims struct {
	UserID int
	Role   types.Role
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenIssuer mints and verifies HS256 session tokens and generates opaque
// reset tokens. The signing key is loaded once at startup.
type TokenIssuer struct {
	secret     []byte
	sessionTTL time.Duration
}

func NewTokenIssuer(secret string, sessionTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// IssueSessionToken signs a token carrying the user's id and role, valid
// from now until now + session TTL.
func (t *TokenIssuer) IssueSessionToken(userID int, role types.Role) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.sessionTTL)),
		},
		Role: string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// VerifySessionToken checks the signature and expiry and returns the claims.
// Expiry is reported as ErrExpiredToken; every other failure collapses to
// ErrInvalidToken.
func (t *TokenIssuer) VerifySessionToken(tokenString string) (SessionClaims, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrExpiredToken
		}
		return SessionClaims{}, ErrInvalidToken
	}
	if !token.Valid {
		return SessionClaims{}, ErrInvalidToken
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return SessionClaims{}, ErrInvalidToken
	}
	role, ok := types.ParseRole(claims.Role)
	if !ok {
		return SessionClaims{}, ErrInvalidToken
	}

	return SessionClaims{UserID: userID, Role: role}, nil
}

// NewResetToken returns a random opaque token. Validity lives entirely in the
// credential store; nothing is encoded in the token itself.
func (t *TokenIssuer) NewResetToken() (string, error) {
	var buf [resetTokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
