// Package cronauth guards the scheduler endpoint with a shared secret.
package cronauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HeaderName carries the secret. "Authorization: Bearer <secret>" is also
// accepted.
const HeaderName = "X-Cron-Secret"

var ErrNoSecret = errors.New("cronauth: no secret configured")

// Verifier checks presented secrets. Exactly one of hash or plain is used;
// the bcrypt hash wins when both are set.
type Verifier struct {
	hash  []byte
	plain [sha256.Size]byte
}

// New returns a Verifier for a plaintext secret or a bcrypt hash of it.
func New(secret, bcryptHash string) (*Verifier, error) {
	if bcryptHash != "" {
		if _, err := bcrypt.Cost([]byte(bcryptHash)); err != nil {
			return nil, err
		}
		return &Verifier{hash: []byte(bcryptHash)}, nil
	}
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{plain: sha256.Sum256([]byte(secret))}, nil
}

// Check reports whether presented matches the configured secret.
func (v *Verifier) Check(presented string) bool {
	if presented == "" {
		return false
	}
	if v.hash != nil {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(presented)) == nil
	}
	got := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(got[:], v.plain[:]) == 1
}

// Presented extracts the secret from r.
func Presented(r *http.Request) string {
	if s := r.Header.Get(HeaderName); s != "" {
		return s
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// Require rejects requests without the right secret with 401 before next
// runs. onFail, when non-nil, is called for every rejection.
func (v *Verifier) Require(onFail func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Check(Presented(r)) {
				if onFail != nil {
					onFail(r)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   map[string]string{"kind": "Unauthorized", "message": "invalid cron secret"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
