package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// PINStepPath is where pages send callers whose session has not passed the PIN check
const PINStepPath = AuthPath + "?step=pin"

var errNoSealer = errors.New("PIN sealer not configured")

// Sealer authenticates and encrypts the PIN marker
type Sealer interface {
	Seal(data string) (string, error)
	Open(encoded string) (string, error)
}

// WithPINSealer enables the PIN marker. Without a sealer no session ever
// counts as PIN-verified.
func (r *Resolver) WithPINSealer(s Sealer) *Resolver {
	r.pinSealer = s
	return r
}

// PINCookieName is the name of the cookie carrying the PIN marker
func (r *Resolver) PINCookieName() string {
	return r.cookieName + "-pin"
}

// PINMarker seals a marker bound to accessToken. It cannot be moved to another session.
func (r *Resolver) PINMarker(accessToken string) (string, error) {
	if r.pinSealer == nil {
		return "", errNoSealer
	}
	return r.pinSealer.Seal(fingerprint(accessToken))
}

// SetPINCookie marks the session of id as PIN-verified
func (r *Resolver) SetPINCookie(w http.ResponseWriter, id *Identity, secure bool) error {
	marker, err := r.PINMarker(id.AccessToken)
	if err != nil {
		return err
	}
	maxAge := 0
	if !id.ExpiresAt.IsZero() {
		maxAge = int(time.Until(id.ExpiresAt).Seconds())
	}
	SetCookie(w, r.PINCookieName(), marker, maxAge, secure)
	return nil
}

// PINVerified reports whether req carries a PIN marker for the session of id
func (r *Resolver) PINVerified(req *http.Request, id *Identity) bool {
	if r.pinSealer == nil || id == nil {
		return false
	}
	c, err := req.Cookie(r.PINCookieName())
	if err != nil || c.Value == "" {
		return false
	}
	got, err := r.pinSealer.Open(c.Value)
	if err != nil {
		r.log.WithError(err).Debug("PIN marker rejected")
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(fingerprint(id.AccessToken))) == 1
}

// RequirePIN rejects API requests whose session has not passed the PIN check
// with 403. It must run after RequireAPI.
func (r *Resolver) RequirePIN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.PINVerified(req, FromContext(req.Context())) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "PIN verification required"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
