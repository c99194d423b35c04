package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/security"
	"github.com/Dan9191/bank-portal/internal/validation"
	"github.com/sirupsen/logrus"
)

// Next steps reported after sign-in
const (
	NextRegister = "register"
	NextPIN      = "pin"
)

// SignInResult is a fresh session plus where the caller goes next
type SignInResult struct {
	Session *gateway.AuthResponse
	Next    string
}

// SignUp creates an auth identity. The platform may require email
// confirmation, in which case the returned session is empty.
func (s *Service) SignUp(ctx context.Context, emailAddr, password, confirm string) (*gateway.AuthResponse, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if err := validation.ValidateCredentials(emailAddr, password, confirm).Err(); err != nil {
		return nil, err
	}

	resp, err := s.auth.SignUp(ctx, emailAddr, password)
	if err != nil {
		if gateway.IsDuplicateUser(err) {
			return nil, &models.ConflictError{Message: "This email is already registered"}
		}
		s.log.WithError(err).Error("Sign up failed")
		return nil, fmt.Errorf("failed to create user account: %w", err)
	}
	if resp.User == nil {
		return nil, errors.New("failed to create user account: no user data returned")
	}

	s.log.WithField("user_id", resp.User.ID).Info("User signed up")
	return resp, nil
}

// SignIn exchanges credentials for a session and decides whether the caller
// still has to register or can go on to PIN entry.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (*SignInResult, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" || password == "" {
		return nil, models.Invalid("Email and password are required")
	}
	if !validation.ValidEmail(emailAddr) {
		return nil, models.Invalid("Please enter a valid email address")
	}

	resp, err := s.auth.SignIn(ctx, emailAddr, password)
	if err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) && gerr.Status < 500 {
			return nil, &models.AuthError{Message: gateway.Friendly(err, "Invalid email or password")}
		}
		s.log.WithError(err).Error("Sign in failed")
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, errors.New("failed to sign in: no session returned")
	}

	next := NextRegister
	profile, err := s.store.GetProfile(gateway.WithAccessToken(ctx, resp.AccessToken), resp.User.ID)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		s.log.WithError(err).Error("Profile fetch during sign in failed")
		return nil, fmt.Errorf("failed to retrieve user profile: %w", err)
	case profile.Registered():
		next = NextPIN
	}

	s.log.WithFields(logrus.Fields{"user_id": resp.User.ID, "next": next}).Info("User signed in")
	return &SignInResult{Session: resp, Next: next}, nil
}

// SignOut revokes the session upstream. Failures are logged only; the caller's
// cookie is cleared regardless.
func (s *Service) SignOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		s.log.WithError(err).Warn("Upstream sign out failed")
	}
}

type limiterResetter interface {
	Reset(ctx context.Context, key string) error
}

// VerifyPIN checks the secondary credential. Attempts are rate limited per
// user and a success clears the attempt budget.
func (s *Service) VerifyPIN(ctx context.Context, userID, pin string) error {
	if !validation.IsPIN(pin) {
		return models.Invalid("Please enter a 4-digit PIN")
	}

	key := "pin:" + userID
	ok, retry, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// A broken limiter must not lock everyone out.
		s.log.WithError(err).Warn("PIN rate limiter unavailable")
	} else if !ok {
		s.countPIN("limited")
		return &models.RateLimitError{RetryAfter: retry}
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !profile.Registered()) {
		return &models.ConflictError{Message: "No PIN found for this account. Please complete registration."}
	}
	if err != nil {
		return fmt.Errorf("failed to verify PIN: %w", err)
	}

	match, err := security.VerifyPIN(pin, profile.PinHash)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Stored PIN digest is unreadable")
		return fmt.Errorf("failed to verify PIN: %w", err)
	}
	if !match {
		s.countPIN("mismatch")
		s.log.WithField("user_id", userID).Warn("Incorrect PIN")
		return &models.AuthError{Message: "Incorrect PIN"}
	}

	if r, ok := s.limiter.(limiterResetter); ok {
		if err := r.Reset(ctx, key); err != nil {
			s.log.WithError(err).Warn("Failed to reset PIN attempts")
		}
	}
	s.countPIN("ok")
	return nil
}

func (s *Service) countPIN(result string) {
	if s.metrics != nil {
		s.metrics.PINVerifications.WithLabelValues(result).Inc()
	}
}
