package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"strings"
)

// AdminAuth guards mutating admin endpoints with a single static bearer
// token. This is a simplification of the teacher's cookie-based
// SessionManager: there is no OAuth identity provider in this domain, so
// there is nothing to authenticate a session against beyond "did the
// caller know the configured token." The HMAC comparison is kept from the
// teacher's scheme so a timing side-channel can't leak the token
// byte-by-byte even though there's no cookie to sign here.
type AdminAuth struct {
	token []byte
}

// NewAdminAuth builds an AdminAuth from the configured admin token. An
// empty token disables admin auth entirely — every request is treated as
// authorized, matching the teacher's "ADMIN_AUTH_ENABLED=false" default.
func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: []byte(token)}
}

// Enabled reports whether admin auth is configured.
func (a *AdminAuth) Enabled() bool {
	return len(a.token) > 0
}

// valid reports whether presented matches the configured token, by HMAC-ing
// both sides under a fixed key rather than comparing bytes directly — this
// is the same trick the teacher's decodeCookie uses to avoid leaking how
// many leading bytes matched through a timing side-channel.
func (a *AdminAuth) valid(presented string) bool {
	want := a.sign(a.token)
	got := a.sign([]byte(presented))
	return hmac.Equal(got, want)
}

func (a *AdminAuth) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, a.token)
	mac.Write(data)
	return mac.Sum(nil)
}

// Middleware returns an HTTP middleware that requires "Authorization:
// Bearer <token>" to match the configured admin token.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !a.valid(token) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "admin bearer token required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
