// Package session resolves the caller's identity from the session cookie.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Identity is the authenticated caller
type Identity struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// UserLookup validates a token against the auth platform
type UserLookup interface {
	GetUser(ctx context.Context, accessToken string) (*gateway.User, error)
}

// Resolver reads sessions. It keeps no cache and never refreshes tokens.
type Resolver struct {
	cookieName string
	jwtSecret  []byte
	users      UserLookup
	pinSealer  Sealer
	log        *logrus.Logger
}

// NewResolver creates a resolver. With a non-empty jwtSecret tokens are verified
// locally; otherwise every resolution asks the auth platform.
func NewResolver(cookieName, jwtSecret string, users UserLookup, log *logrus.Logger) *Resolver {
	r := &Resolver{cookieName: cookieName, users: users, log: log}
	if jwtSecret != "" {
		r.jwtSecret = []byte(jwtSecret)
	}
	return r
}

// CookieName is the name of the session cookie
func (r *Resolver) CookieName() string {
	return r.cookieName
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Resolve returns the caller's identity, or nil when the request carries no valid session
func (r *Resolver) Resolve(req *http.Request) *Identity {
	token := r.token(req)
	if token == "" {
		return nil
	}

	if r.jwtSecret != nil {
		id, err := r.verifyLocal(token)
		if err != nil {
			r.log.WithError(err).Debug("session token rejected")
			return nil
		}
		return id
	}

	if r.users == nil {
		return nil
	}
	user, err := r.users.GetUser(req.Context(), token)
	if err != nil || user == nil || user.ID == "" {
		if err != nil {
			r.log.WithError(err).Debug("session lookup failed")
		}
		return nil
	}
	return &Identity{UserID: user.ID, Email: user.Email, AccessToken: token}
}

func (r *Resolver) token(req *http.Request) string {
	if c, err := req.Cookie(r.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(req.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (r *Resolver) verifyLocal(token string) (*Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid || c.Subject == "" {
		return nil, fmt.Errorf("jwt invalid")
	}

	id := &Identity{UserID: c.Subject, Email: c.Email, AccessToken: token}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id, nil
}

type identityKey struct{}

// NewContext stores id in ctx and forwards its token to gateway calls
func NewContext(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	return gateway.WithAccessToken(ctx, id.AccessToken)
}

// FromContext returns the identity stored by the middleware, or nil
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// SetCookie writes the session cookie
func SetCookie(w http.ResponseWriter, name, token string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func ClearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
