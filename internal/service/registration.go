package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/security"
	"github.com/Dan9191/bank-portal/internal/validation"
)

// RegistrationComplete reports whether userID has finished registering
func (s *Service) RegistrationComplete(ctx context.Context, userID string) (bool, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Registered(), nil
}

// ValidateRegistrationStep checks one step of the flow without persisting anything
func (s *Service) ValidateRegistrationStep(step validation.Step, reg validation.Registration) error {
	return reg.ValidateStep(step, s.now()).Err()
}

// CompleteRegistration validates every step, then writes the profile in one
// upsert. Only the PIN digest and the sealed government id are stored.
func (s *Service) CompleteRegistration(ctx context.Context, userID, emailAddr string, reg validation.Registration) (*models.Profile, error) {
	if err := reg.Validate(s.now()).Err(); err != nil {
		return nil, err
	}

	existing, err := s.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	case existing.Registered():
		return nil, &models.ConflictError{Message: "Registration is already complete"}
	case existing.Email != "":
		emailAddr = existing.Email
	}

	pinHash, err := security.HashPIN(reg.PIN, s.pinParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}
	sealedSSN, err := s.sealer.Seal(reg.SSN)
	if err != nil {
		return nil, fmt.Errorf("failed to seal SSN: %w", err)
	}

	rec := &models.ProfileRecord{
		ID:            userID,
		Email:         emailAddr,
		FirstName:     strings.TrimSpace(reg.FirstName),
		LastName:      strings.TrimSpace(reg.LastName),
		Phone:         reg.Phone,
		DateOfBirth:   reg.DateOfBirth,
		SSNLast4:      validation.SSNLast4(reg.SSN),
		SSNEncrypted:  sealedSSN,
		AddressLine1:  reg.Address1,
		AddressLine2:  reg.Address2,
		City:          reg.City,
		State:         reg.State,
		ZipCode:       reg.ZipCode,
		Country:       reg.Country,
		AccountStatus: models.AccountStatusPending,
		IsAdmin:       false,
		PinHash:       pinHash,
	}

	profile, err := s.store.UpsertProfile(ctx, rec)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Profile creation failed")
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	s.log.WithField("user_id", userID).Info("Registration completed")
	redacted := profile.Redacted()
	return &redacted, nil
}
