package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/utils"
)

// Card defaults applied when the request leaves a value empty or zero
const (
	DefaultCardBrand    = "visa"
	DefaultDailyLimit   = 1000
	DefaultMonthlyLimit = 10000
	DefaultAtmLimit     = 500
	DefaultCardColor    = "#1e40af"
	DefaultCardDesign   = "default"
)

// CardRequest is the body of a card creation request. Zero values count as absent.
type CardRequest struct {
	CardType               string          `json:"card_type"`
	CardBrand              string          `json:"card_brand"`
	CardName               string          `json:"card_name"`
	CardNumberLast4        string          `json:"card_number_last4"`
	ExpiryMonth            float64         `json:"expiry_month"`
	ExpiryYear             float64         `json:"expiry_year"`
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
	IsContactlessEnabled   *bool           `json:"is_contactless_enabled"`
	IsInternationalEnabled bool            `json:"is_international_enabled"`
	IsOnlineEnabled        *bool           `json:"is_online_enabled"`
	BillingAddress         json.RawMessage `json:"billing_address"`
}

// ValidateNewCard checks required fields, card type, last4 and expiry, in that order.
func ValidateNewCard(req CardRequest, now time.Time) error {
	var missing []string
	if req.CardType == "" {
		missing = append(missing, "card_type")
	}
	if req.CardName == "" {
		missing = append(missing, "card_name")
	}
	if req.CardNumberLast4 == "" {
		missing = append(missing, "card_number_last4")
	}
	if req.ExpiryMonth == 0 {
		missing = append(missing, "expiry_month")
	}
	if req.ExpiryYear == 0 {
		missing = append(missing, "expiry_year")
	}
	if req.CardholderName == "" {
		missing = append(missing, "cardholder_name")
	}
	if len(missing) > 0 {
		return models.Invalid("Missing required fields: " + strings.Join(missing, ", "))
	}

	if !models.CardType(req.CardType).Valid() {
		return models.Invalid("Invalid card type")
	}
	if !utils.IsLast4(req.CardNumberLast4) {
		return models.Invalid("card_number_last4 must be 4 digits")
	}
	if !isInteger(req.ExpiryMonth) || req.ExpiryMonth < 1 || req.ExpiryMonth > 12 {
		return models.Invalid("expiry_month must be between 1 and 12")
	}
	if !isInteger(req.ExpiryYear) || int(req.ExpiryYear) < now.Year() {
		return models.Invalid("expiry_year must be current year or later")
	}
	if utils.ExpiryPassed(int(req.ExpiryMonth), int(req.ExpiryYear), now) {
		return models.Invalid("Card expiry date is in the past")
	}
	return nil
}

// NewCard merges the request over the documented defaults. Status is always pending.
func (req CardRequest) NewCard(userID string) *models.NewCard {
	return &models.NewCard{
		UserID:                 userID,
		CardType:               models.CardType(req.CardType),
		CardBrand:              orString(req.CardBrand, DefaultCardBrand),
		CardName:               req.CardName,
		CardNumberLast4:        req.CardNumberLast4,
		ExpiryMonth:            int(req.ExpiryMonth),
		ExpiryYear:             int(req.ExpiryYear),
		CardholderName:         req.CardholderName,
		CurrentBalance:         req.CurrentBalance,
		AvailableBalance:       req.AvailableBalance,
		CreditLimit:            req.CreditLimit,
		DailyLimit:             orFloat(req.DailyLimit, DefaultDailyLimit),
		MonthlyLimit:           orFloat(req.MonthlyLimit, DefaultMonthlyLimit),
		AtmLimit:               orFloat(req.AtmLimit, DefaultAtmLimit),
		CardColor:              orString(req.CardColor, DefaultCardColor),
		CardDesign:             orString(req.CardDesign, DefaultCardDesign),
		IsPrimary:              req.IsPrimary,
		IsContactlessEnabled:   req.IsContactlessEnabled == nil || *req.IsContactlessEnabled,
		IsInternationalEnabled: req.IsInternationalEnabled,
		IsOnlineEnabled:        req.IsOnlineEnabled == nil || *req.IsOnlineEnabled,
		Status:                 models.CardStatusPending,
		BillingAddress:         req.BillingAddress,
	}
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindLimit
	kindFlag
	kindCardStatus
)

var cardUpdateFields = map[string]fieldKind{
	"card_name":                kindText,
	"daily_limit":              kindLimit,
	"monthly_limit":            kindLimit,
	"atm_limit":                kindLimit,
	"status":                   kindCardStatus,
	"is_contactless_enabled":   kindFlag,
	"is_international_enabled": kindFlag,
	"is_online_enabled":        kindFlag,
}

// FilterCardUpdate drops keys outside the allow-list and type-checks the rest
func FilterCardUpdate(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		kind, ok := cardUpdateFields[key]
		if !ok {
			continue
		}
		switch kind {
		case kindText:
			s, ok := value.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, models.Invalid(fmt.Sprintf("%s must be a non-empty string", key))
			}
			out[key] = s
		case kindLimit:
			f, ok := value.(float64)
			if !ok || f < 0 || math.IsNaN(f) {
				return nil, models.Invalid(fmt.Sprintf("%s must be a non-negative number", key))
			}
			out[key] = f
		case kindFlag:
			b, ok := value.(bool)
			if !ok {
				return nil, models.Invalid(fmt.Sprintf("%s must be a boolean", key))
			}
			out[key] = b
		case kindCardStatus:
			s, ok := value.(string)
			if !ok || !models.CardStatus(s).Valid() {
				return nil, models.Invalid("Invalid status")
			}
			out[key] = s
		}
	}
	if len(out) == 0 {
		return nil, models.Invalid("No valid fields to update")
	}
	return out, nil
}

// ValidateLockStatus accepts only the two user-toggleable states
func ValidateLockStatus(status string) error {
	switch models.CardStatus(status) {
	case models.CardStatusActive, models.CardStatusBlocked:
		return nil
	}
	return models.Invalid("Invalid status")
}

func isInteger(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
