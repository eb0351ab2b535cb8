package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coursebase/apiserver/internal/auth"
)

type contextKey string

const contextClaimsKey contextKey = "session"

var errNoSession = errors.New("no session in context")

// claimsFromContext returns the verified session claims attached by the auth
// middleware.
func claimsFromContext(ctx context.Context) (auth.SessionClaims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(auth.SessionClaims)
	if !ok {
		return auth.SessionClaims{}, errNoSession
	}
	return claims, nil
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError reports a failure. Failures carry the same `message` payload
// shape as successes.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// MessageResponse is a simple message payload, used for both success and
// failure bodies.
type MessageResponse struct {
	Message string `json:"message"`
}
