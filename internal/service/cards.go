package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/validation"
	"github.com/sirupsen/logrus"
)

// ListCards returns the caller's cards, newest first
func (s *Service) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	return s.store.ListCards(ctx, userID)
}

// CreateCard validates the request and inserts a pending card. Nothing is
// written when validation fails.
func (s *Service) CreateCard(ctx context.Context, userID string, req validation.CardRequest) (*models.Card, error) {
	if err := validation.ValidateNewCard(req, s.now()); err != nil {
		return nil, err
	}

	card, err := s.store.CreateCard(ctx, req.NewCard(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "card_id": card.ID}).Info("Card created")
	return card, nil
}

// UpdateCard applies the allow-listed subset of fields to an owned card
func (s *Service) UpdateCard(ctx context.Context, userID, cardID string, fields map[string]any) (*models.Card, error) {
	if err := validID(cardID); err != nil {
		return nil, err
	}
	update, err := validation.FilterCardUpdate(fields)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateCard(ctx, userID, cardID, update)
}

// DeleteCard removes an owned card; absent and foreign cards both report ErrNotFound
func (s *Service) DeleteCard(ctx context.Context, userID, cardID string) error {
	if err := validID(cardID); err != nil {
		return err
	}
	if err := s.store.DeleteCard(ctx, userID, cardID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "card_id": cardID}).Info("Card deleted")
	return nil
}

// SetCardLock moves an owned card between active and blocked. A card already in
// the requested status is returned untouched.
func (s *Service) SetCardLock(ctx context.Context, userID, cardID, status string) (*models.Card, error) {
	if err := validation.ValidateLockStatus(status); err != nil {
		return nil, err
	}
	if err := validID(cardID); err != nil {
		return nil, err
	}
	card, err := s.store.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status == models.CardStatus(status) {
		return card, nil
	}
	return s.store.UpdateCard(ctx, userID, cardID, map[string]any{"status": status})
}
