package service

import (
	"context"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/validation"
)

// GetProfile returns the caller's profile without credential material
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	redacted := p.Redacted()
	return &redacted, nil
}

// UpdateOwnProfile applies the self-service subset of profile fields
func (s *Service) UpdateOwnProfile(ctx context.Context, userID string, fields map[string]any) (*models.Profile, error) {
	update, err := validation.FilterProfileUpdate(fields, validation.SelfServiceProfileFields)
	if err != nil {
		return nil, err
	}
	p, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	redacted := p.Redacted()
	return &redacted, nil
}
