package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const adminUserKey contextKey = "adminUser"

// AdminCredentials configures basic auth for admin endpoints. When
// PasswordHash is set it is a bcrypt hash and takes precedence over Password.
type AdminCredentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (c AdminCredentials) configured() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordHash != "")
}

// Verify checks a username/password pair.
func (c AdminCredentials) Verify(username, password string) bool {
	if !c.configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// AdminBasicAuth enforces HTTP basic auth for admin endpoints.
func AdminBasicAuth(creds AdminCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !creds.configured() {
				http.Error(w, `{"error": "admin auth disabled"}`, http.StatusUnauthorized)
				return
			}
			username, password, ok := r.BasicAuth()
			if !ok || !creds.Verify(strings.TrimSpace(username), password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
				http.Error(w, `{"error": "invalid credentials"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), adminUserKey, creds.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminUserFromContext returns the authenticated admin username if present.
func AdminUserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(adminUserKey).(string)
	return user, ok && user != ""
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
