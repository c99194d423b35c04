package models

import (
	"encoding/json"
	"time"
)

// CardType is the kind of payment instrument
type CardType string

const (
	CardTypeVirtual  CardType = "virtual"
	CardTypePhysical CardType = "physical"
	CardTypePrepaid  CardType = "prepaid"
)

func (t CardType) Valid() bool {
	switch t {
	case CardTypeVirtual, CardTypePhysical, CardTypePrepaid:
		return true
	}
	return false
}

// CardStatus is the lifecycle state of a card
type CardStatus string

const (
	CardStatusPending   CardStatus = "pending"
	CardStatusActive    CardStatus = "active"
	CardStatusBlocked   CardStatus = "blocked"
	CardStatusExpired   CardStatus = "expired"
	CardStatusCancelled CardStatus = "cancelled"
)

func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusPending, CardStatusActive, CardStatusBlocked, CardStatusExpired, CardStatusCancelled:
		return true
	}
	return false
}

// Card represents a payment card owned by a profile
type Card struct {
	ID                     string          `json:"id" db:"id"`
	UserID                 string          `json:"user_id" db:"user_id"`
	CardType               CardType        `json:"card_type" db:"card_type"`
	CardBrand              string          `json:"card_brand" db:"card_brand"`
	CardName               string          `json:"card_name" db:"card_name"`
	CardNumberLast4        string          `json:"card_number_last4" db:"card_number_last4"`
	ExpiryMonth            int             `json:"expiry_month" db:"expiry_month"`
	ExpiryYear             int             `json:"expiry_year" db:"expiry_year"`
	CardholderName         string          `json:"cardholder_name" db:"cardholder_name"`
	CurrentBalance         float64         `json:"current_balance" db:"current_balance"`
	AvailableBalance       float64         `json:"available_balance" db:"available_balance"`
	CreditLimit            *float64        `json:"credit_limit" db:"credit_limit"`
	DailyLimit             float64         `json:"daily_limit" db:"daily_limit"`
	MonthlyLimit           float64         `json:"monthly_limit" db:"monthly_limit"`
	AtmLimit               float64         `json:"atm_limit" db:"atm_limit"`
	CardColor              string          `json:"card_color" db:"card_color"`
	CardDesign             string          `json:"card_design" db:"card_design"`
	IsPrimary              bool            `json:"is_primary" db:"is_primary"`
	IsContactlessEnabled   bool            `json:"is_contactless_enabled" db:"is_contactless_enabled"`
	IsInternationalEnabled bool            `json:"is_international_enabled" db:"is_international_enabled"`
	IsOnlineEnabled        bool            `json:"is_online_enabled" db:"is_online_enabled"`
	Status                 CardStatus      `json:"status" db:"status"`
	BillingAddress         json.RawMessage `json:"billing_address,omitempty" db:"billing_address"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
}

// NewCard is the insert payload for a card; ids and timestamps are assigned by the store
type NewCard struct {
	UserID                 string          `json:"user_id"`
	CardType               CardType        `json:"card_type"`
	CardBrand              string          `json:"card_brand"`
	CardName               string          `json:"card_name"`
	CardNumberLast4        string          `json:"card_number_last4"`
	ExpiryMonth            int             `json:"expiry_month"`
	ExpiryYear             int             `json:"expiry_year"`
	CardholderName         string          `json:"cardholder_name"`
	CurrentBalance         float64         `json:"current_balance"`
	AvailableBalance       float64         `json:"available_balance"`
	CreditLimit            *float64        `json:"credit_limit"`
	DailyLimit             float64         `json:"daily_limit"`
	MonthlyLimit           float64         `json:"monthly_limit"`
	AtmLimit               float64         `json:"atm_limit"`
	CardColor              string          `json:"card_color"`
	CardDesign             string          `json:"card_design"`
	IsPrimary              bool            `json:"is_primary"`
	IsContactlessEnabled   bool            `json:"is_contactless_enabled"`
	IsInternationalEnabled bool            `json:"is_international_enabled"`
	IsOnlineEnabled        bool            `json:"is_online_enabled"`
	Status                 CardStatus      `json:"status"`
	BillingAddress         json.RawMessage `json:"billing_address,omitempty"`
}
