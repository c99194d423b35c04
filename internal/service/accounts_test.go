package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTransactionsIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, userID, "100200300", "10")
	f.store.Transactions["t1"] = models.Transaction{ID: "t1", AccountID: accountID, Type: models.TransactionCredit, Amount: testutil.Money("10"), CreatedAt: fixedNow.Add(-2 * time.Hour)}
	f.store.Transactions["t2"] = models.Transaction{ID: "t2", AccountID: accountID, Type: models.TransactionDebit, Amount: testutil.Money("3"), CreatedAt: fixedNow.Add(-time.Hour)}
	ctx := context.Background()

	txs, err := f.svc.ListTransactions(ctx, userID, accountID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t2", txs[0].ID)

	_, err = f.svc.ListTransactions(ctx, otherID, accountID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.ListTransactions(ctx, userID, "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrNotFound)

	accounts, err := f.svc.ListAccounts(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	accounts, err = f.svc.ListAccounts(ctx, otherID)
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestStatement(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, models.Profile{ID: userID, FirstName: "Jane", LastName: "Doe"})
	f.seedAccount(t, userID, "100200300", "42.10")
	f.store.Transactions["t1"] = models.Transaction{ID: "t1", AccountID: accountID, Type: models.TransactionCredit, Amount: testutil.Money("42.10"), Status: "completed", CreatedAt: fixedNow}

	st, err := f.svc.Statement(context.Background(), userID, accountID)
	require.NoError(t, err)
	assert.Equal(t, "statement_100200300_20261015.xml", st.Filename)

	xml := string(st.XML)
	assert.Contains(t, xml, "camt.053.001.02")
	assert.Contains(t, xml, "<Nm>Jane Doe</Nm>")
	assert.Contains(t, xml, "42.10")

	_, err = f.svc.Statement(context.Background(), otherID, accountID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
