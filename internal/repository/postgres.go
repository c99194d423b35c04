package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	cardSelect = `SELECT id, user_id, card_type, card_brand, card_name, card_number_last4,
		expiry_month, expiry_year, cardholder_name, current_balance, available_balance, credit_limit,
		daily_limit, monthly_limit, atm_limit, card_color, card_design, is_primary,
		is_contactless_enabled, is_international_enabled, is_online_enabled, status,
		coalesce(billing_address, 'null'::jsonb) AS billing_address, created_at, updated_at
	FROM cards`

	cardReturning = `RETURNING id, user_id, card_type, card_brand, card_name, card_number_last4,
		expiry_month, expiry_year, cardholder_name, current_balance, available_balance, credit_limit,
		daily_limit, monthly_limit, atm_limit, card_color, card_design, is_primary,
		is_contactless_enabled, is_international_enabled, is_online_enabled, status,
		coalesce(billing_address, 'null'::jsonb) AS billing_address, created_at, updated_at`

	profileColumnList = `id, email, coalesce(first_name, '') AS first_name, coalesce(last_name, '') AS last_name,
		coalesce(phone, '') AS phone, coalesce(to_char(date_of_birth, 'YYYY-MM-DD'), '') AS date_of_birth,
		coalesce(ssn_last4, '') AS ssn_last4, coalesce(ssn_encrypted, '') AS ssn_encrypted,
		coalesce(address_line1, '') AS address_line1, coalesce(address_line2, '') AS address_line2,
		coalesce(city, '') AS city, coalesce(state, '') AS state, coalesce(zip_code, '') AS zip_code,
		coalesce(country, '') AS country, account_status, is_admin, coalesce(pin_hash, '') AS pin_hash,
		coalesce(selfie_url, '') AS selfie_url, is_verified, verification_date, created_at, updated_at`

	accountColumnList = `a.id, a.user_id, a.account_number, a.account_type, a.balance, a.available_balance,
		a.credit_limit, a.is_active, a.created_at`

	deviceColumnList = `id, user_id, name, coalesce(device_type, '') AS device_type, trusted, last_active,
		coalesce(location, '') AS location, coalesce(ip_address, '') AS ip_address,
		coalesce(browser, '') AS browser, coalesce(os, '') AS os`
)

// Postgres is a Store that talks to the schema directly. Ownership is enforced
// by explicit user_id predicates since the connection bypasses row-level security.
type Postgres struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgres creates a Postgres store
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

var _ Store = (*Postgres)(nil)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

// setClause renders "col = $n" pairs in key order so statements are stable
func setClause(fields map[string]any, allowed map[string]struct{}, first int) (string, []any, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, ok := allowed[k]; !ok && k != "updated_at" {
			return "", nil, fmt.Errorf("column %q is not updatable", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = $%d", k, first+i))
		args = append(args, fields[k])
	}
	return strings.Join(parts, ", "), args, nil
}

func (s *Postgres) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	cards := []models.Card{}
	if err := s.db.SelectContext(ctx, &cards, cardSelect+` WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (s *Postgres) GetCard(ctx context.Context, userID, cardID string) (*models.Card, error) {
	var c models.Card
	if err := s.db.GetContext(ctx, &c, cardSelect+` WHERE id = $1 AND user_id = $2`, cardID, userID); err != nil {
		return nil, fmt.Errorf("get card: %w", notFound(err))
	}
	return &c, nil
}

func (s *Postgres) CreateCard(ctx context.Context, c *models.NewCard) (*models.Card, error) {
	var billing any
	if len(c.BillingAddress) > 0 {
		billing = []byte(c.BillingAddress)
	}
	const q = `INSERT INTO cards (user_id, card_type, card_brand, card_name, card_number_last4,
		expiry_month, expiry_year, cardholder_name, current_balance, available_balance, credit_limit,
		daily_limit, monthly_limit, atm_limit, card_color, card_design, is_primary,
		is_contactless_enabled, is_international_enabled, is_online_enabled, status, billing_address)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22) `

	var card models.Card
	err := s.db.GetContext(ctx, &card, q+cardReturning,
		c.UserID, c.CardType, c.CardBrand, c.CardName, c.CardNumberLast4,
		c.ExpiryMonth, c.ExpiryYear, c.CardholderName, c.CurrentBalance, c.AvailableBalance, c.CreditLimit,
		c.DailyLimit, c.MonthlyLimit, c.AtmLimit, c.CardColor, c.CardDesign, c.IsPrimary,
		c.IsContactlessEnabled, c.IsInternationalEnabled, c.IsOnlineEnabled, c.Status, billing)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return &card, nil
}

func (s *Postgres) UpdateCard(ctx context.Context, userID, cardID string, fields map[string]any) (*models.Card, error) {
	set, args, err := setClause(withUpdatedAt(fields, s.now()), cardColumns, 1)
	if err != nil {
		return nil, err
	}
	n := len(args)
	q := fmt.Sprintf(`UPDATE cards SET %s WHERE id = $%d AND user_id = $%d `, set, n+1, n+2) + cardReturning

	var card models.Card
	if err := s.db.GetContext(ctx, &card, q, append(args, cardID, userID)...); err != nil {
		return nil, fmt.Errorf("update card: %w", notFound(err))
	}
	return &card, nil
}

func (s *Postgres) DeleteCard(ctx context.Context, userID, cardID string) error {
	return s.deleteOwned(ctx, "cards", userID, cardID)
}

func (s *Postgres) deleteOwned(ctx context.Context, table, userID, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table), id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("delete from %s: %w", table, models.ErrNotFound)
	}
	return nil
}

func (s *Postgres) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.GetContext(ctx, &p, `SELECT `+profileColumnList+` FROM profiles WHERE id = $1`, userID); err != nil {
		return nil, fmt.Errorf("get profile: %w", notFound(err))
	}
	return &p, nil
}

func (s *Postgres) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles := []models.Profile{}
	if err := s.db.SelectContext(ctx, &profiles, `SELECT `+profileColumnList+` FROM profiles ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *Postgres) UpsertProfile(ctx context.Context, rec *models.ProfileRecord) (*models.Profile, error) {
	const q = `INSERT INTO profiles (id, email, first_name, last_name, phone, date_of_birth, ssn_last4,
		ssn_encrypted, address_line1, address_line2, city, state, zip_code, country, account_status,
		is_admin, pin_hash)
	VALUES (:id, :email, :first_name, :last_name, :phone, NULLIF(:date_of_birth, '')::date, :ssn_last4,
		:ssn_encrypted, :address_line1, :address_line2, :city, :state, :zip_code, :country, :account_status,
		:is_admin, :pin_hash)
	ON CONFLICT (id) DO UPDATE SET
		email = EXCLUDED.email, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		phone = EXCLUDED.phone, date_of_birth = EXCLUDED.date_of_birth, ssn_last4 = EXCLUDED.ssn_last4,
		ssn_encrypted = EXCLUDED.ssn_encrypted, address_line1 = EXCLUDED.address_line1,
		address_line2 = EXCLUDED.address_line2, city = EXCLUDED.city, state = EXCLUDED.state,
		zip_code = EXCLUDED.zip_code, country = EXCLUDED.country, account_status = EXCLUDED.account_status,
		is_admin = EXCLUDED.is_admin, pin_hash = EXCLUDED.pin_hash, updated_at = NOW()
	RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, q, rec)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	var id string
	if rows.Next() {
		err = rows.Scan(&id)
	}
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	if id == "" {
		return nil, errors.New("upsert profile: no id returned")
	}
	return s.GetProfile(ctx, id)
}

func (s *Postgres) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (*models.Profile, error) {
	set, args, err := setClause(withUpdatedAt(fields, s.now()), profileColumns, 1)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d RETURNING `, set, len(args)+1) + profileColumnList

	var p models.Profile
	if err := s.db.GetContext(ctx, &p, q, append(args, userID)...); err != nil {
		return nil, fmt.Errorf("update profile: %w", notFound(err))
	}
	return &p, nil
}

func (s *Postgres) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	accounts := []models.Account{}
	q := `SELECT ` + accountColumnList + ` FROM accounts a WHERE a.user_id = $1 ORDER BY a.created_at ASC`
	if err := s.db.SelectContext(ctx, &accounts, q, userID); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Postgres) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	var a models.Account
	q := `SELECT ` + accountColumnList + ` FROM accounts a WHERE a.id = $1 AND a.user_id = $2`
	if err := s.db.GetContext(ctx, &a, q, accountID, userID); err != nil {
		return nil, fmt.Errorf("get account: %w", notFound(err))
	}
	return &a, nil
}

func (s *Postgres) GetAccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	var a models.Account
	q := `SELECT ` + accountColumnList + ` FROM accounts a WHERE a.id = $1`
	if err := s.db.GetContext(ctx, &a, q, accountID); err != nil {
		return nil, fmt.Errorf("get account: %w", notFound(err))
	}
	return &a, nil
}

type accountOwnerRow struct {
	models.Account
	OwnerFirstName string `db:"owner_first_name"`
	OwnerLastName  string `db:"owner_last_name"`
	OwnerEmail     string `db:"owner_email"`
}

func (s *Postgres) ListAllAccounts(ctx context.Context) ([]models.Account, error) {
	q := `SELECT ` + accountColumnList + `,
		coalesce(p.first_name, '') AS owner_first_name, coalesce(p.last_name, '') AS owner_last_name,
		coalesce(p.email, '') AS owner_email
	FROM accounts a LEFT JOIN profiles p ON p.id = a.user_id
	ORDER BY a.created_at DESC`

	var rows []accountOwnerRow
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list all accounts: %w", err)
	}
	accounts := make([]models.Account, 0, len(rows))
	for _, r := range rows {
		a := r.Account
		a.Owner = &models.AccountOwner{FirstName: r.OwnerFirstName, LastName: r.OwnerLastName, Email: r.OwnerEmail}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (s *Postgres) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	const q = `SELECT id, account_id, type, amount, coalesce(description, '') AS description, status, created_at
	FROM transactions WHERE account_id = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &txs, q, accountID); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Postgres) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	devices := []models.Device{}
	q := `SELECT ` + deviceColumnList + ` FROM user_devices WHERE user_id = $1 ORDER BY last_active DESC`
	if err := s.db.SelectContext(ctx, &devices, q, userID); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

func (s *Postgres) UpdateDevice(ctx context.Context, userID, deviceID string, fields map[string]any) (*models.Device, error) {
	if err := checkColumns(fields, deviceColumns); err != nil {
		return nil, err
	}
	set, args, err := setClause(fields, deviceColumns, 1)
	if err != nil {
		return nil, err
	}
	n := len(args)
	q := fmt.Sprintf(`UPDATE user_devices SET %s WHERE id = $%d AND user_id = $%d RETURNING `, set, n+1, n+2) + deviceColumnList

	var d models.Device
	if err := s.db.GetContext(ctx, &d, q, append(args, deviceID, userID)...); err != nil {
		return nil, fmt.Errorf("update device: %w", notFound(err))
	}
	return &d, nil
}

func (s *Postgres) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	return s.deleteOwned(ctx, "user_devices", userID, deviceID)
}

func (s *Postgres) AdjustAccountBalance(ctx context.Context, adj models.BalanceAdjustment) (*models.BalanceAdjustmentResult, error) {
	var raw []byte
	err := s.db.QueryRowxContext(ctx, `SELECT admin_update_account_balance($1, $2, $3, $4)`,
		adj.AccountID, adj.NewBalance, adj.AdminUserID, adj.Description).Scan(&raw)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, &models.ProcedureError{Message: pqErr.Message, Err: err}
		}
		return nil, fmt.Errorf("call %s: %w", procAdjustBalance, err)
	}
	var res models.BalanceAdjustmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", procAdjustBalance, err)
	}
	return &res, nil
}

func (s *Postgres) ExpireCards(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	year, month := utils.CurrentPeriod(now)
	const q = `UPDATE cards SET status = 'expired', updated_at = $1
	WHERE status NOT IN ('expired', 'cancelled')
		AND (expiry_year < $2 OR (expiry_year = $2 AND expiry_month < $3))`

	res, err := s.db.ExecContext(ctx, q, now, year, month)
	if err != nil {
		return 0, fmt.Errorf("expire cards: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire cards: %w", err)
	}
	return int(n), nil
}
