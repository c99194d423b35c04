// Package testutil holds an in-memory Store for service and handler tests.
package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/repository"
	"github.com/Dan9191/bank-portal/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is a repository.Store backed by maps. Errors set in Fail are returned
// by the method of the same name instead of touching the data.
type Store struct {
	mu           sync.Mutex
	Cards        map[string]models.Card
	Profiles     map[string]models.Profile
	Accounts     map[string]models.Account
	Transactions map[string]models.Transaction
	Devices      map[string]models.Device
	Fail         map[string]error
	Calls        map[string]int
	Now          func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		Cards:        map[string]models.Card{},
		Profiles:     map[string]models.Profile{},
		Accounts:     map[string]models.Account{},
		Transactions: map[string]models.Transaction{},
		Devices:      map[string]models.Device{},
		Fail:         map[string]error{},
		Calls:        map[string]int{},
		Now:          time.Now,
	}
}

func (s *Store) enter(method string) error {
	s.mu.Lock()
	s.Calls[method]++
	return s.Fail[method]
}

// CallCount reports how often method was invoked
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[method]
}

func (s *Store) ListCards(_ context.Context, userID string) ([]models.Card, error) {
	defer s.mu.Unlock()
	if err := s.enter("ListCards"); err != nil {
		return nil, err
	}
	out := []models.Card{}
	for _, c := range s.Cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateCard(_ context.Context, nc *models.NewCard) (*models.Card, error) {
	defer s.mu.Unlock()
	if err := s.enter("CreateCard"); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(nc)
	if err != nil {
		return nil, err
	}
	var c models.Card
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	s.Cards[c.ID] = c
	return &c, nil
}

func (s *Store) GetCard(_ context.Context, userID, cardID string) (*models.Card, error) {
	defer s.mu.Unlock()
	if err := s.enter("GetCard"); err != nil {
		return nil, err
	}
	c, ok := s.Cards[cardID]
	if !ok || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCard(_ context.Context, userID, cardID string, fields map[string]any) (*models.Card, error) {
	defer s.mu.Unlock()
	if err := s.enter("UpdateCard"); err != nil {
		return nil, err
	}
	c, ok := s.Cards[cardID]
	if !ok || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	if err := merge(&c, fields); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.Now().UTC()
	s.Cards[cardID] = c
	return &c, nil
}

func (s *Store) DeleteCard(_ context.Context, userID, cardID string) error {
	defer s.mu.Unlock()
	if err := s.enter("DeleteCard"); err != nil {
		return err
	}
	c, ok := s.Cards[cardID]
	if !ok || c.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.Cards, cardID)
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	defer s.mu.Unlock()
	if err := s.enter("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := s.Profiles[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListProfiles(_ context.Context) ([]models.Profile, error) {
	defer s.mu.Unlock()
	if err := s.enter("ListProfiles"); err != nil {
		return nil, err
	}
	out := []models.Profile{}
	for _, p := range s.Profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpsertProfile(_ context.Context, rec *models.ProfileRecord) (*models.Profile, error) {
	defer s.mu.Unlock()
	if err := s.enter("UpsertProfile"); err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	p := s.Profiles[rec.ID]
	if p.ID == "" {
		p.CreatedAt = now
	}
	p.ID = rec.ID
	p.Email = rec.Email
	p.FirstName, p.LastName = rec.FirstName, rec.LastName
	p.Phone = rec.Phone
	p.DateOfBirth = rec.DateOfBirth
	p.SSNLast4, p.SSNEncrypted = rec.SSNLast4, rec.SSNEncrypted
	p.AddressLine1, p.AddressLine2 = rec.AddressLine1, rec.AddressLine2
	p.City, p.State, p.ZipCode, p.Country = rec.City, rec.State, rec.ZipCode, rec.Country
	p.AccountStatus = rec.AccountStatus
	p.IsAdmin = rec.IsAdmin
	p.PinHash = rec.PinHash
	p.UpdatedAt = now
	s.Profiles[rec.ID] = p
	return &p, nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, fields map[string]any) (*models.Profile, error) {
	defer s.mu.Unlock()
	if err := s.enter("UpdateProfile"); err != nil {
		return nil, err
	}
	p, ok := s.Profiles[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := merge(&p, fields); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.Now().UTC()
	s.Profiles[userID] = p
	return &p, nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]models.Account, error) {
	defer s.mu.Unlock()
	if err := s.enter("ListAccounts"); err != nil {
		return nil, err
	}
	out := []models.Account{}
	for _, a := range s.Accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, userID, accountID string) (*models.Account, error) {
	defer s.mu.Unlock()
	if err := s.enter("GetAccount"); err != nil {
		return nil, err
	}
	a, ok := s.Accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetAccountByID(_ context.Context, accountID string) (*models.Account, error) {
	defer s.mu.Unlock()
	if err := s.enter("GetAccountByID"); err != nil {
		return nil, err
	}
	a, ok := s.Accounts[accountID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAllAccounts(_ context.Context) ([]models.Account, error) {
	defer s.mu.Unlock()
	if err := s.enter("ListAllAccounts"); err != nil {
		return nil, err
	}
	out := []models.Account{}
	for _, a := range s.Accounts {
		if p, ok := s.Profiles[a.UserID]; ok {
			a.Owner = &models.AccountOwner{FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID string) ([]models.Transaction, error) {
	defer s.mu.Unlock()
	if err := s.enter("ListTransactions"); err != nil {
		return nil, err
	}
	out := []models.Transaction{}
	for _, t := range s.Transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListDevices(_ context.Context, userID string) ([]models.Device, error) {
	defer s.mu.Unlock()
	if err := s.enter("ListDevices"); err != nil {
		return nil, err
	}
	out := []models.Device{}
	for _, d := range s.Devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

func (s *Store) UpdateDevice(_ context.Context, userID, deviceID string, fields map[string]any) (*models.Device, error) {
	defer s.mu.Unlock()
	if err := s.enter("UpdateDevice"); err != nil {
		return nil, err
	}
	d, ok := s.Devices[deviceID]
	if !ok || d.UserID != userID {
		return nil, models.ErrNotFound
	}
	if err := merge(&d, fields); err != nil {
		return nil, err
	}
	s.Devices[deviceID] = d
	return &d, nil
}

func (s *Store) DeleteDevice(_ context.Context, userID, deviceID string) error {
	defer s.mu.Unlock()
	if err := s.enter("DeleteDevice"); err != nil {
		return err
	}
	d, ok := s.Devices[deviceID]
	if !ok || d.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.Devices, deviceID)
	return nil
}

// AdjustAccountBalance mirrors the ledger procedure: it sets the balance,
// shifts the available balance by the same delta and records an audit row.
func (s *Store) AdjustAccountBalance(_ context.Context, adj models.BalanceAdjustment) (*models.BalanceAdjustmentResult, error) {
	defer s.mu.Unlock()
	if err := s.enter("AdjustAccountBalance"); err != nil {
		return nil, err
	}
	a, ok := s.Accounts[adj.AccountID]
	if !ok {
		return nil, &models.ProcedureError{Message: "Account not found", Err: models.ErrNotFound}
	}
	if p, ok := s.Profiles[adj.AdminUserID]; !ok || !p.IsAdmin {
		return nil, &models.ProcedureError{Message: "Only administrators can adjust balances", Err: models.ErrForbidden}
	}

	prev := a.Balance
	delta := adj.NewBalance.Sub(prev)
	a.Balance = adj.NewBalance
	a.AvailableBalance = a.AvailableBalance.Add(delta)
	s.Accounts[a.ID] = a

	txType := models.TransactionCredit
	if delta.IsNegative() {
		txType = models.TransactionDebit
	}
	tx := models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   a.ID,
		Type:        txType,
		Amount:      delta.Abs(),
		Description: adj.Description,
		Status:      "completed",
		CreatedAt:   s.Now().UTC(),
	}
	s.Transactions[tx.ID] = tx

	return &models.BalanceAdjustmentResult{
		AccountID:       a.ID,
		PreviousBalance: prev,
		NewBalance:      adj.NewBalance,
		TransactionID:   tx.ID,
	}, nil
}

func (s *Store) ExpireCards(_ context.Context, now time.Time) (int, error) {
	defer s.mu.Unlock()
	if err := s.enter("ExpireCards"); err != nil {
		return 0, err
	}
	n := 0
	for id, c := range s.Cards {
		if c.Status == models.CardStatusExpired || c.Status == models.CardStatusCancelled {
			continue
		}
		if utils.ExpiryPassed(c.ExpiryMonth, c.ExpiryYear, now) {
			c.Status = models.CardStatusExpired
			s.Cards[id] = c
			n++
		}
	}
	return n, nil
}

// merge applies a column->value patch through the row's JSON tags, the way
// the data API would.
func merge(dst any, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Money is shorthand for decimal literals in tests
func Money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
