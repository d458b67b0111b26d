// Package provider implements the provider-facing surface: static-secret
// login, the upcoming-bookings listing, and the weak access-code patient
// lookup. Authentication is a capability check with a single static credential
// per provider, isolated behind Authenticator so a real session scheme can
// replace it without touching call sites.
package provider

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Authenticator checks a submitted password and names the provider it grants.
type Authenticator interface {
	Authenticate(password string) (teamMemberID string, ok bool)
}

// StaticSecret authorizes byte-equal password matches against the configured
// per-provider secrets. No hashing, no lockout; the secret is the capability.
type StaticSecret struct {
	secrets map[string]string
}

func NewStaticSecret(secrets map[string]string) StaticSecret {
	return StaticSecret{secrets: secrets}
}

func (s StaticSecret) Authenticate(password string) (string, bool) {
	if password == "" {
		return "", false
	}
	for teamMemberID, secret := range s.secrets {
		if secret == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(password), []byte(secret)) == 1 {
			return teamMemberID, true
		}
	}
	return "", false
}

// NoAuth rejects every login. Used when no provider passwords are configured
// so the portal cannot be opened by accident.
type NoAuth struct{}

func (NoAuth) Authenticate(string) (string, bool) { return "", false }

// NewSessionToken builds the opaque token handed out at login: a base64
// timestamp-plus-random blob. Protected routes check only that a token is
// present; the token carries no integrity and is never re-validated.
func NewSessionToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("provider: session token: %w", err)
	}
	raw := fmt.Sprintf("%d:%s", time.Now().Unix(), hex.EncodeToString(buf))
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// RequireSessionToken gates provider routes on a bearer token being present.
// Presence is the whole check.
func RequireSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if auth == "" || token == "" {
			http.Error(w, "missing authorization token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
