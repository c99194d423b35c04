package models

// ProfileRecord is the write model for the final registration step. The store
// upserts it on id, so a draft row left by an earlier sign-up is completed in place.
type ProfileRecord struct {
	ID            string        `json:"id" db:"id"`
	Email         string        `json:"email" db:"email"`
	FirstName     string        `json:"first_name" db:"first_name"`
	LastName      string        `json:"last_name" db:"last_name"`
	Phone         string        `json:"phone" db:"phone"`
	DateOfBirth   string        `json:"date_of_birth" db:"date_of_birth"`
	SSNLast4      string        `json:"ssn_last4" db:"ssn_last4"`
	SSNEncrypted  string        `json:"ssn_encrypted" db:"ssn_encrypted"`
	AddressLine1  string        `json:"address_line1" db:"address_line1"`
	AddressLine2  string        `json:"address_line2" db:"address_line2"`
	City          string        `json:"city" db:"city"`
	State         string        `json:"state" db:"state"`
	ZipCode       string        `json:"zip_code" db:"zip_code"`
	Country       string        `json:"country" db:"country"`
	AccountStatus AccountStatus `json:"account_status" db:"account_status"`
	IsAdmin       bool          `json:"is_admin" db:"is_admin"`
	PinHash       string        `json:"pin_hash" db:"pin_hash"`
}
