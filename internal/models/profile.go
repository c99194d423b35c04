package models

import "time"

// AccountStatus gates what a profile may do in the portal
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusLocked    AccountStatus = "locked"
	AccountStatusSuspended AccountStatus = "suspended"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusPending, AccountStatusActive, AccountStatusLocked, AccountStatusSuspended:
		return true
	}
	return false
}

// Profile is the application-level user record. Its id is shared with the auth identity.
type Profile struct {
	ID               string        `json:"id" db:"id"`
	Email            string        `json:"email" db:"email"`
	FirstName        string        `json:"first_name" db:"first_name"`
	LastName         string        `json:"last_name" db:"last_name"`
	Phone            string        `json:"phone" db:"phone"`
	DateOfBirth      string        `json:"date_of_birth,omitempty" db:"date_of_birth"`
	SSNLast4         string        `json:"ssn_last4,omitempty" db:"ssn_last4"`
	SSNEncrypted     string        `json:"ssn_encrypted,omitempty" db:"ssn_encrypted"`
	AddressLine1     string        `json:"address_line1" db:"address_line1"`
	AddressLine2     string        `json:"address_line2" db:"address_line2"`
	City             string        `json:"city" db:"city"`
	State            string        `json:"state" db:"state"`
	ZipCode          string        `json:"zip_code" db:"zip_code"`
	Country          string        `json:"country" db:"country"`
	AccountStatus    AccountStatus `json:"account_status" db:"account_status"`
	IsAdmin          bool          `json:"is_admin" db:"is_admin"`
	PinHash          string        `json:"pin_hash,omitempty" db:"pin_hash"`
	SelfieURL        string        `json:"selfie_url,omitempty" db:"selfie_url"`
	IsVerified       bool          `json:"is_verified" db:"is_verified"`
	VerificationDate *time.Time    `json:"verification_date,omitempty" db:"verification_date"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// Redacted returns a copy safe to serialize to clients: credential digests and
// sealed identifiers are cleared.
func (p Profile) Redacted() Profile {
	p.PinHash = ""
	p.SSNEncrypted = ""
	return p
}

// FullName joins first and last name
func (p Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Registered reports whether the final registration step has been completed
func (p Profile) Registered() bool {
	return p.PinHash != ""
}
