package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the product kind of a ledger account
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return true
	}
	return false
}

// Account is a ledger entry owned by a profile
type Account struct {
	ID               string              `json:"id" db:"id"`
	UserID           string              `json:"user_id" db:"user_id"`
	AccountNumber    string              `json:"account_number" db:"account_number"`
	AccountType      AccountType         `json:"account_type" db:"account_type"`
	Balance          decimal.Decimal     `json:"balance" db:"balance"`
	AvailableBalance decimal.Decimal     `json:"available_balance" db:"available_balance"`
	CreditLimit      decimal.NullDecimal `json:"credit_limit" db:"credit_limit"`
	IsActive         bool                `json:"is_active" db:"is_active"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	Owner            *AccountOwner       `json:"owner,omitempty" db:"-"`
}

// AccountOwner is the slice of the owning profile shown in admin listings
type AccountOwner struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// BalanceAdjustment is the input of the admin balance procedure
type BalanceAdjustment struct {
	AccountID   string          `json:"account_id_param"`
	NewBalance  decimal.Decimal `json:"new_balance"`
	AdminUserID string          `json:"admin_user_id"`
	Description string          `json:"transaction_description"`
}

// BalanceAdjustmentResult is what the procedure reports back
type BalanceAdjustmentResult struct {
	AccountID       string          `json:"account_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	TransactionID   string          `json:"transaction_id"`
}
