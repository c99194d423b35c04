package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a posting
type TransactionType string

const (
	TransactionDebit    TransactionType = "debit"
	TransactionCredit   TransactionType = "credit"
	TransactionTransfer TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDebit, TransactionCredit, TransactionTransfer:
		return true
	}
	return false
}

// Transaction represents a posting against an account
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	Type        TransactionType `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
