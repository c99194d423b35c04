package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultAdjustmentDescription labels balance adjustments sent without one
const DefaultAdjustmentDescription = "Admin balance adjustment"

// RequireAdmin checks the caller's profile row. The flag is never taken from the client.
func (s *Service) RequireAdmin(ctx context.Context, userID string) error {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("failed to load caller profile: %w", err)
	}
	if !p.IsAdmin {
		return models.ErrForbidden
	}
	return nil
}

// AdminListProfiles returns every profile, newest first, narrowed by a
// case-insensitive match on first name, last name or email.
func (s *Service) AdminListProfiles(ctx context.Context, adminID, query string) ([]models.Profile, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if q == "" || containsAny(q, p.FirstName, p.LastName, p.Email) {
			out = append(out, p.Redacted())
		}
	}
	return out, nil
}

// AdminListAccounts returns every account with its owner, narrowed by owner
// name, owner email or account number.
func (s *Service) AdminListAccounts(ctx context.Context, adminID, query string) ([]models.Account, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return accounts, nil
	}
	out := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		fields := []string{a.AccountNumber}
		if a.Owner != nil {
			fields = append(fields, a.Owner.FirstName, a.Owner.LastName, a.Owner.Email)
		}
		if containsAny(q, fields...) {
			out = append(out, a)
		}
	}
	return out, nil
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// AdminStats summarises users and balances
func (s *Service) AdminStats(ctx context.Context, adminID string) (*models.AdminStats, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.AdminStats{
		TotalUsers:    len(profiles),
		TotalAccounts: len(accounts),
		TotalBalance:  decimal.Zero,
	}
	for _, p := range profiles {
		switch p.AccountStatus {
		case models.AccountStatusActive:
			stats.ActiveUsers++
		case models.AccountStatusPending:
			stats.PendingUsers++
		}
	}
	for _, a := range accounts {
		stats.TotalBalance = stats.TotalBalance.Add(a.Balance)
	}
	return stats, nil
}

// AdminSetProfileStatus changes a profile's access state and notifies its owner
func (s *Service) AdminSetProfileStatus(ctx context.Context, adminID, profileID, status string) (*models.Profile, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if !models.AccountStatus(status).Valid() {
		return nil, models.Invalid("Invalid account status")
	}
	if err := validID(profileID); err != nil {
		return nil, err
	}

	p, err := s.store.UpdateProfile(ctx, profileID, map[string]any{"account_status": status})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"admin_id": adminID, "user_id": profileID, "status": status}).Info("Account status changed")
	if err := s.notifier.SendAccountStatusChange(p.Email, p.FullName(), status); err != nil {
		s.log.WithError(err).WithField("user_id", profileID).Warn("Status notification not sent")
	}
	redacted := p.Redacted()
	return &redacted, nil
}

// AdminUpdateProfile edits any allow-listed field. A new SSN replaces the
// sealed value and its last four digits.
func (s *Service) AdminUpdateProfile(ctx context.Context, adminID, profileID string, fields map[string]any) (*models.Profile, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if err := validID(profileID); err != nil {
		return nil, err
	}
	update, err := validation.FilterProfileUpdate(fields, validation.AdminProfileFields)
	if err != nil {
		return nil, err
	}

	if ssn, ok := update["ssn"].(string); ok {
		delete(update, "ssn")
		sealed, err := s.sealer.Seal(ssn)
		if err != nil {
			return nil, fmt.Errorf("failed to seal SSN: %w", err)
		}
		update["ssn_encrypted"] = sealed
		update["ssn_last4"] = validation.SSNLast4(ssn)
	}

	p, err := s.store.UpdateProfile(ctx, profileID, update)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "user_id": profileID}).Info("Profile updated by admin")
	redacted := p.Redacted()
	return &redacted, nil
}

// AdminVerifySSN compares a number read out by the customer with the sealed
// value. The stored number itself never leaves the service.
func (s *Service) AdminVerifySSN(ctx context.Context, adminID, profileID, ssn string) (bool, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return false, err
	}
	if err := validID(profileID); err != nil {
		return false, err
	}
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return false, err
	}
	if p.SSNEncrypted == "" {
		return false, &models.ConflictError{Message: "No SSN on file for this profile"}
	}

	stored, err := s.sealer.Open(p.SSNEncrypted)
	if err != nil {
		s.log.WithError(err).WithField("user_id", profileID).Error("Sealed SSN could not be opened")
		return false, fmt.Errorf("failed to open sealed SSN: %w", err)
	}
	match := validation.SSNDigits(stored) == validation.SSNDigits(ssn)
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "user_id": profileID, "match": match}).Info("SSN verification")
	return match, nil
}

// AdjustBalance sets an account to an absolute balance through the ledger
// procedure. It is called exactly once per request; procedure errors come back
// as *models.ProcedureError with the platform's message.
func (s *Service) AdjustBalance(ctx context.Context, adminID, accountID string, newBalance decimal.Decimal, description string) (*models.BalanceAdjustmentResult, error) {
	if err := s.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if err := validID(accountID); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = DefaultAdjustmentDescription
	}

	res, err := s.store.AdjustAccountBalance(ctx, models.BalanceAdjustment{
		AccountID:   accountID,
		NewBalance:  newBalance,
		AdminUserID: adminID,
		Description: description,
	})
	if err != nil {
		s.countAdjustment("error")
		s.log.WithError(err).WithFields(logrus.Fields{"admin_id": adminID, "account_id": accountID}).Error("Balance adjustment failed")
		return nil, err
	}
	s.countAdjustment("ok")
	s.log.WithFields(logrus.Fields{
		"admin_id":         adminID,
		"account_id":       accountID,
		"previous_balance": res.PreviousBalance.String(),
		"new_balance":      res.NewBalance.String(),
		"transaction_id":   res.TransactionID,
	}).Info("Balance adjusted")

	s.notifyAdjustment(ctx, accountID, res.NewBalance, description)
	return res, nil
}

func (s *Service) notifyAdjustment(ctx context.Context, accountID string, newBalance decimal.Decimal, description string) {
	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		s.log.WithError(err).WithField("account_id", accountID).Warn("Adjustment notification skipped")
		return
	}
	owner, err := s.store.GetProfile(ctx, account.UserID)
	if err != nil {
		s.log.WithError(err).WithField("account_id", accountID).Warn("Adjustment notification skipped")
		return
	}
	if err := s.notifier.SendBalanceAdjustment(owner.Email, owner.FullName(), account.AccountNumber, newBalance, description); err != nil {
		s.log.WithError(err).WithField("account_id", accountID).Warn("Adjustment notification not sent")
	}
}

func (s *Service) countAdjustment(result string) {
	if s.metrics != nil {
		s.metrics.BalanceAdjustments.WithLabelValues(result).Inc()
	}
}
