// Package repository persists portal data. Two backends implement Store: REST
// goes through the hosted platform's data API with the caller's token, Postgres
// talks to the same schema directly.
package repository

import (
	"context"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
)

// CardStore persists payment cards. Every method is scoped to the owning user.
type CardStore interface {
	ListCards(ctx context.Context, userID string) ([]models.Card, error)
	GetCard(ctx context.Context, userID, cardID string) (*models.Card, error)
	CreateCard(ctx context.Context, card *models.NewCard) (*models.Card, error)
	// UpdateCard applies fields to the owned card and stamps updated_at.
	// It returns models.ErrNotFound when no owned row matched.
	UpdateCard(ctx context.Context, userID, cardID string, fields map[string]any) (*models.Card, error)
	DeleteCard(ctx context.Context, userID, cardID string) error
}

// ProfileStore persists profiles
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	UpsertProfile(ctx context.Context, rec *models.ProfileRecord) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, fields map[string]any) (*models.Profile, error)
}

// AccountStore reads ledger accounts and their postings
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error)
	// GetAccountByID is not owner-scoped; callers must have checked admin rights.
	GetAccountByID(ctx context.Context, accountID string) (*models.Account, error)
	// ListAllAccounts returns every account with its owner, newest first.
	ListAllAccounts(ctx context.Context) ([]models.Account, error)
	ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error)
}

// DeviceStore persists the devices a user has signed in from
type DeviceStore interface {
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
	UpdateDevice(ctx context.Context, userID, deviceID string, fields map[string]any) (*models.Device, error)
	DeleteDevice(ctx context.Context, userID, deviceID string) error
}

// LedgerProcedures invokes the stored procedures that mutate balances
type LedgerProcedures interface {
	AdjustAccountBalance(ctx context.Context, adj models.BalanceAdjustment) (*models.BalanceAdjustmentResult, error)
}

// Maintenance holds jobs that run without a caller identity
type Maintenance interface {
	// ExpireCards marks cards whose expiry month is before now's month as expired
	// and returns how many rows changed.
	ExpireCards(ctx context.Context, now time.Time) (int, error)
}

// Store is everything the services need
type Store interface {
	CardStore
	ProfileStore
	AccountStore
	DeviceStore
	LedgerProcedures
	Maintenance
}

// Column allow-lists for partial updates. Keys outside these sets never reach SQL.
var (
	cardColumns = map[string]struct{}{
		"card_name": {}, "daily_limit": {}, "monthly_limit": {}, "atm_limit": {}, "status": {},
		"is_contactless_enabled": {}, "is_international_enabled": {}, "is_online_enabled": {},
	}
	profileColumns = map[string]struct{}{
		"first_name": {}, "last_name": {}, "email": {}, "phone": {}, "date_of_birth": {},
		"address_line1": {}, "address_line2": {}, "city": {}, "state": {}, "zip_code": {}, "country": {},
		"is_admin": {}, "account_status": {}, "ssn_last4": {}, "ssn_encrypted": {},
		"selfie_url": {}, "is_verified": {}, "verification_date": {},
	}
	deviceColumns = map[string]struct{}{
		"name": {}, "trusted": {},
	}
)

func withUpdatedAt(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updated_at"] = now.UTC()
	return out
}
