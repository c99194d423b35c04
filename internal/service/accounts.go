package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-portal/internal/integrations/camt"
	"github.com/Dan9191/bank-portal/internal/models"
)

// ListAccounts returns the caller's accounts, oldest first
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// ListTransactions returns postings of an account the caller owns, newest first
func (s *Service) ListTransactions(ctx context.Context, userID, accountID string) ([]models.Transaction, error) {
	if err := validID(accountID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, accountID)
}

// AccountStatement is a rendered statement document
type AccountStatement struct {
	Filename string
	XML      []byte
}

// Statement renders a camt.053 statement for an account the caller owns
func (s *Service) Statement(ctx context.Context, userID, accountID string) (*AccountStatement, error) {
	if err := validID(accountID); err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var holder string
	switch p, err := s.store.GetProfile(ctx, userID); {
	case err == nil:
		holder = p.FullName()
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	now := s.now()
	raw, err := camt.Render(camt.Statement{
		Account:      *account,
		HolderName:   holder,
		Transactions: txs,
		GeneratedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	return &AccountStatement{
		Filename: fmt.Sprintf("statement_%s_%s.xml", account.AccountNumber, now.UTC().Format("20060102")),
		XML:      raw,
	}, nil
}
