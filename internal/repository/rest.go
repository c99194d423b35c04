package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/utils"
)

const (
	tableCards        = "cards"
	tableProfiles     = "profiles"
	tableAccounts     = "accounts"
	tableTransactions = "transactions"
	tableDevices      = "user_devices"

	procAdjustBalance = "admin_update_account_balance"

	accountWithOwner = "*,owner:user_id(first_name,last_name,email)"
)

// REST is a Store backed by the platform's data API. Requests authenticate
// with the token carried by ctx, and every query also filters on the owner.
type REST struct {
	client *gateway.Client
	now    func() time.Time
}

// NewREST creates a REST store
func NewREST(client *gateway.Client) *REST {
	return &REST{client: client, now: time.Now}
}

var _ Store = (*REST)(nil)

func decodeRows[T any](resp *gateway.Response, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	rows := []T{}
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func decodeOne[T any](resp *gateway.Response, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		if gateway.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	var row T
	if err := resp.JSON(&row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return &row, nil
}

// firstRow returns the first row of a representation, or ErrNotFound when the
// mutation matched nothing.
func firstRow[T any](rows []T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.ErrNotFound
	}
	return &rows[0], nil
}

func checkColumns(fields map[string]any, allowed map[string]struct{}) error {
	for k := range fields {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("column %q is not updatable", k)
		}
	}
	return nil
}

func (s *REST) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	cards, err := decodeRows[models.Card](s.client.From(tableCards).
		Select("*").
		Eq("user_id", userID).
		Order("created_at", false).
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (s *REST) GetCard(ctx context.Context, userID, cardID string) (*models.Card, error) {
	c, err := decodeOne[models.Card](s.client.From(tableCards).
		Select("*").
		Eq("id", cardID).
		Eq("user_id", userID).
		Single().
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func (s *REST) CreateCard(ctx context.Context, card *models.NewCard) (*models.Card, error) {
	created, err := firstRow(decodeRows[models.Card](s.client.From(tableCards).
		Select("*").
		ExecuteInsert(ctx, card)))
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return created, nil
}

func (s *REST) UpdateCard(ctx context.Context, userID, cardID string, fields map[string]any) (*models.Card, error) {
	if err := checkColumns(fields, cardColumns); err != nil {
		return nil, err
	}
	card, err := firstRow(decodeRows[models.Card](s.client.From(tableCards).
		Select("*").
		Eq("id", cardID).
		Eq("user_id", userID).
		ExecuteUpdate(ctx, withUpdatedAt(fields, s.now()))))
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

func (s *REST) DeleteCard(ctx context.Context, userID, cardID string) error {
	_, err := firstRow(decodeRows[models.Card](s.client.From(tableCards).
		Eq("id", cardID).
		Eq("user_id", userID).
		ExecuteDelete(ctx)))
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (s *REST) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := decodeOne[models.Profile](s.client.From(tableProfiles).
		Select("*").
		Eq("id", userID).
		Single().
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *REST) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := decodeRows[models.Profile](s.client.From(tableProfiles).
		Select("*").
		Order("created_at", false).
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *REST) UpsertProfile(ctx context.Context, rec *models.ProfileRecord) (*models.Profile, error) {
	p, err := firstRow(decodeRows[models.Profile](s.client.From(tableProfiles).
		Select("*").
		Upsert("id").
		ExecuteInsert(ctx, rec)))
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

func (s *REST) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (*models.Profile, error) {
	if err := checkColumns(fields, profileColumns); err != nil {
		return nil, err
	}
	p, err := firstRow(decodeRows[models.Profile](s.client.From(tableProfiles).
		Select("*").
		Eq("id", userID).
		ExecuteUpdate(ctx, withUpdatedAt(fields, s.now()))))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (s *REST) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	accounts, err := decodeRows[models.Account](s.client.From(tableAccounts).
		Select("*").
		Eq("user_id", userID).
		Order("created_at", true).
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *REST) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	a, err := decodeOne[models.Account](s.client.From(tableAccounts).
		Select("*").
		Eq("id", accountID).
		Eq("user_id", userID).
		Single().
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *REST) GetAccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	a, err := decodeOne[models.Account](s.client.From(tableAccounts).
		Select("*").
		Eq("id", accountID).
		Single().
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *REST) ListAllAccounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := decodeRows[models.Account](s.client.From(tableAccounts).
		Select(accountWithOwner).
		Order("created_at", false).
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("list all accounts: %w", err)
	}
	return accounts, nil
}

func (s *REST) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	txs, err := decodeRows[models.Transaction](s.client.From(tableTransactions).
		Select("id,account_id,type,amount,description,status,created_at").
		Eq("account_id", accountID).
		Order("created_at", false).
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *REST) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := decodeRows[models.Device](s.client.From(tableDevices).
		Select("*").
		Eq("user_id", userID).
		Order("last_active", false).
		Execute(ctx))
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

func (s *REST) UpdateDevice(ctx context.Context, userID, deviceID string, fields map[string]any) (*models.Device, error) {
	if err := checkColumns(fields, deviceColumns); err != nil {
		return nil, err
	}
	d, err := firstRow(decodeRows[models.Device](s.client.From(tableDevices).
		Select("*").
		Eq("id", deviceID).
		Eq("user_id", userID).
		ExecuteUpdate(ctx, fields)))
	if err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}
	return d, nil
}

func (s *REST) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	_, err := firstRow(decodeRows[models.Device](s.client.From(tableDevices).
		Eq("id", deviceID).
		Eq("user_id", userID).
		ExecuteDelete(ctx)))
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// AdjustAccountBalance calls the balance procedure once. Platform errors are
// returned unchanged so the caller can surface their message.
func (s *REST) AdjustAccountBalance(ctx context.Context, adj models.BalanceAdjustment) (*models.BalanceAdjustmentResult, error) {
	resp, err := s.client.RPC(ctx, procAdjustBalance, adj)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", procAdjustBalance, err)
	}
	if err := resp.Err(); err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) {
			return nil, &models.ProcedureError{Message: gerr.Message, Err: err}
		}
		return nil, err
	}
	var res models.BalanceAdjustmentResult
	if err := resp.JSON(&res); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", procAdjustBalance, err)
	}
	return &res, nil
}

func (s *REST) ExpireCards(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	year, month := utils.CurrentPeriod(now)
	expired, err := decodeRows[models.Card](s.client.From(tableCards).
		Select("id").
		Filter("status", "not.in", "(expired,cancelled)").
		Or(fmt.Sprintf("expiry_year.lt.%d,and(expiry_year.eq.%d,expiry_month.lt.%d)", year, year, month)).
		ExecuteUpdate(ctx, map[string]any{
			"status":     models.CardStatusExpired,
			"updated_at": now,
		}))
	if err != nil {
		return 0, fmt.Errorf("expire cards: %w", err)
	}
	return len(expired), nil
}
