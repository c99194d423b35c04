package models

import "github.com/shopspring/decimal"

// AdminStats summarises profiles and accounts for the admin console
type AdminStats struct {
	TotalUsers    int             `json:"total_users"`
	ActiveUsers   int             `json:"active_users"`
	PendingUsers  int             `json:"pending_users"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	TotalAccounts int             `json:"total_accounts"`
}
