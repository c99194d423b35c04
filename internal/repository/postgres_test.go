package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgres(sqlx.NewDb(db, "postgres"))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

var cardCols = []string{
	"id", "user_id", "card_type", "card_brand", "card_name", "card_number_last4",
	"expiry_month", "expiry_year", "cardholder_name", "current_balance", "available_balance", "credit_limit",
	"daily_limit", "monthly_limit", "atm_limit", "card_color", "card_design", "is_primary",
	"is_contactless_enabled", "is_international_enabled", "is_online_enabled", "status",
	"billing_address", "created_at", "updated_at",
}

func cardRow(rows *sqlmock.Rows, id, name, status string) *sqlmock.Rows {
	return rows.AddRow(id, "u1", "virtual", "visa", name, "4242",
		11, 2030, "Jane Doe", 0.0, 0.0, nil,
		1000.0, 10000.0, 500.0, "#1e40af", "default", false,
		true, false, true, status,
		[]byte("null"), fixedNow, fixedNow)
}

func TestPostgresListCards(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows(cardCols)
	cardRow(rows, "c2", "Newer", "active")
	cardRow(rows, "c1", "Older", "pending")
	mock.ExpectQuery(regexp.QuoteMeta("FROM cards WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	cards, err := s.ListCards(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Newer", cards[0].CardName)
	assert.Equal(t, models.CardStatusActive, cards[0].Status)
	assert.Nil(t, cards[0].CreditLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListCardsEmptyIsNotNil(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM cards").WillReturnRows(sqlmock.NewRows(cardCols))

	cards, err := s.ListCards(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestPostgresGetCard(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM cards WHERE id = $1 AND user_id = $2")).
		WithArgs("c1", "u1").
		WillReturnRows(cardRow(sqlmock.NewRows(cardCols), "c1", "Travel", "blocked"))
	mock.ExpectQuery("FROM cards").
		WithArgs("c1", "u2").
		WillReturnRows(sqlmock.NewRows(cardCols))

	card, err := s.GetCard(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusBlocked, card.Status)

	_, err = s.GetCard(context.Background(), "u2", "c1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateCardSortsColumnsAndScopesOwner(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE cards SET card_name = $1, daily_limit = $2, updated_at = $3 WHERE id = $4 AND user_id = $5")).
		WithArgs("Groceries", 200.0, fixedNow, "c1", "u1").
		WillReturnRows(cardRow(sqlmock.NewRows(cardCols), "c1", "Groceries", "active"))

	card, err := s.UpdateCard(context.Background(), "u1", "c1", map[string]any{
		"daily_limit": 200.0,
		"card_name":   "Groceries",
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", card.CardName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateCardNotOwned(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("UPDATE cards SET").WillReturnRows(sqlmock.NewRows(cardCols))

	_, err := s.UpdateCard(context.Background(), "u1", "c9", map[string]any{"status": "blocked"})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPostgresUpdateCardRejectsUnknownColumn(t *testing.T) {
	s, mock := newMockStore(t)
	_, err := s.UpdateCard(context.Background(), "u1", "c1", map[string]any{"user_id": "u2"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteCard(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cards WHERE id = $1 AND user_id = $2")).
		WithArgs("c1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cards WHERE id = $1 AND user_id = $2")).
		WithArgs("c1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.DeleteCard(context.Background(), "u1", "c1"))
	err := s.DeleteCard(context.Background(), "u1", "c1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateCard(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO cards").
		WillReturnRows(cardRow(sqlmock.NewRows(cardCols), "c1", "Travel", "pending"))

	card, err := s.CreateCard(context.Background(), &models.NewCard{
		UserID: "u1", CardType: models.CardTypeVirtual, CardName: "Travel", Status: models.CardStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", card.ID)
	assert.Equal(t, models.CardStatusPending, card.Status)
}

func TestPostgresGetProfileNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetProfile(context.Background(), "u1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPostgresListAllAccountsAttachesOwner(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "account_number", "account_type", "balance", "available_balance",
		"credit_limit", "is_active", "created_at", "owner_first_name", "owner_last_name", "owner_email",
	}).AddRow("a1", "u1", "000123", "checking", "150.25", "100.00", nil, true, fixedNow, "Jane", "Doe", "jane@example.com")
	mock.ExpectQuery("FROM accounts a LEFT JOIN profiles p").WillReturnRows(rows)

	accounts, err := s.ListAllAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.NotNil(t, accounts[0].Owner)
	assert.Equal(t, "jane@example.com", accounts[0].Owner.Email)
	assert.True(t, decimal.RequireFromString("150.25").Equal(accounts[0].Balance))
	assert.False(t, accounts[0].CreditLimit.Valid)
}

func TestPostgresAdjustAccountBalance(t *testing.T) {
	s, mock := newMockStore(t)
	adj := models.BalanceAdjustment{
		AccountID:   "a1",
		NewBalance:  decimal.RequireFromString("250.00"),
		AdminUserID: "admin",
		Description: "Correction",
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT admin_update_account_balance($1, $2, $3, $4)")).
		WithArgs("a1", adj.NewBalance, "admin", "Correction").
		WillReturnRows(sqlmock.NewRows([]string{"admin_update_account_balance"}).
			AddRow([]byte(`{"account_id":"a1","previous_balance":100,"new_balance":250,"transaction_id":"t1"}`)))

	res, err := s.AdjustAccountBalance(context.Background(), adj)
	require.NoError(t, err)
	assert.Equal(t, "t1", res.TransactionID)
	assert.True(t, decimal.NewFromInt(100).Equal(res.PreviousBalance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAdjustAccountBalanceRaised(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT admin_update_account_balance").
		WillReturnError(&pq.Error{Code: "P0001", Message: "Only administrators can adjust balances"})

	_, err := s.AdjustAccountBalance(context.Background(), models.BalanceAdjustment{AccountID: "a1"})
	var perr *models.ProcedureError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Only administrators can adjust balances", perr.Message)
	assert.True(t, errors.Is(err, models.ErrProcedure))
}

func TestPostgresExpireCards(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cards SET status = 'expired'")).
		WithArgs(fixedNow, 2026, 3).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.ExpireCards(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
