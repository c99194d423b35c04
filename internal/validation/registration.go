// Package validation holds the field rules shared by the registration, profile and card flows.
package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
)

// MinimumAge is the youngest age allowed to open a profile
const MinimumAge = 18

// DateLayout is the wire format for dates of birth
const DateLayout = "2006-01-02"

var (
	emailPattern   = regexp.MustCompile(`\S+@\S+\.\S+`)
	ssnPattern     = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	zipPattern     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	pinPattern     = regexp.MustCompile(`^\d{4}$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	nonDigit       = regexp.MustCompile(`\D`)
)

// FieldErrors maps a field name to its first failing rule
type FieldErrors map[string]string

// Err converts non-empty field errors into a *models.ValidationError
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &models.ValidationError{Fields: f}
}

func (f FieldErrors) merge(other FieldErrors) {
	for k, v := range other {
		if _, ok := f[k]; !ok {
			f[k] = v
		}
	}
}

// Step is a stage of the registration flow
type Step int

const (
	StepIdentity Step = iota + 1
	StepAddress
	StepSecurity
)

// Registration is everything collected by the multi-step registration flow
type Registration struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	SSN            string `json:"ssn"`
	Phone          string `json:"phone"`
	Address1       string `json:"address_line1"`
	Address2       string `json:"address_line2"`
	City           string `json:"city"`
	State          string `json:"state"`
	ZipCode        string `json:"zip_code"`
	Country        string `json:"country"`
	PIN            string `json:"pin"`
	ConfirmPIN     string `json:"confirm_pin"`
	AgreeToTerms   bool   `json:"agree_to_terms"`
	AgreeToPrivacy bool   `json:"agree_to_privacy"`
}

// ValidateStep checks the fields that belong to one step
func (r Registration) ValidateStep(step Step, now time.Time) FieldErrors {
	switch step {
	case StepIdentity:
		errs := ValidateIdentity(r.FirstName, r.LastName, r.DateOfBirth, r.SSN, now)
		errs.merge(ValidateContact(r.Phone))
		return errs
	case StepAddress:
		return ValidateAddress(r.Address1, r.City, r.State, r.ZipCode, r.Country)
	case StepSecurity:
		return ValidatePIN(r.PIN, r.ConfirmPIN, r.AgreeToTerms, r.AgreeToPrivacy)
	}
	return FieldErrors{"step": "unknown registration step"}
}

// Validate checks every step
func (r Registration) Validate(now time.Time) FieldErrors {
	errs := FieldErrors{}
	for _, s := range []Step{StepIdentity, StepAddress, StepSecurity} {
		errs.merge(r.ValidateStep(s, now))
	}
	return errs
}

// ValidateCredentials checks sign-up email and password rules
func ValidateCredentials(email, password, confirm string) FieldErrors {
	errs := FieldErrors{}
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Invalid email format"
	}

	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < 8:
		errs["password"] = "Password must be at least 8 characters"
	case !upperPattern.MatchString(password):
		errs["password"] = "Password must contain an uppercase letter"
	case !lowerPattern.MatchString(password):
		errs["password"] = "Password must contain a lowercase letter"
	case !digitPattern.MatchString(password):
		errs["password"] = "Password must contain a number"
	case !specialPattern.MatchString(password):
		errs["password"] = "Password must contain a special character"
	}

	switch {
	case confirm == "":
		errs["confirm_password"] = "Confirm password is required"
	case password != confirm:
		errs["confirm_password"] = "Passwords do not match"
	}
	return errs
}

// ValidateIdentity checks names, date of birth and government id
func ValidateIdentity(firstName, lastName, dob, ssn string, now time.Time) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(firstName) == "" {
		errs["first_name"] = "First name is required"
	}
	if strings.TrimSpace(lastName) == "" {
		errs["last_name"] = "Last name is required"
	}

	if dob == "" {
		errs["date_of_birth"] = "Date of birth is required"
	} else if born, err := time.Parse(DateLayout, dob); err != nil {
		errs["date_of_birth"] = "Date of birth must be in format YYYY-MM-DD"
	} else if Age(born, now) < MinimumAge {
		errs["date_of_birth"] = "You must be at least 18 years old"
	}

	switch {
	case ssn == "":
		errs["ssn"] = "SSN is required"
	case !ssnPattern.MatchString(ssn):
		errs["ssn"] = "SSN must be in format 123-45-6789"
	}
	return errs
}

// ValidateAddress checks the postal address
func ValidateAddress(address1, city, state, zip, country string) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(address1) == "" {
		errs["address_line1"] = "Address is required"
	}
	if strings.TrimSpace(city) == "" {
		errs["city"] = "City is required"
	}
	if strings.TrimSpace(state) == "" {
		errs["state"] = "State is required"
	}
	switch {
	case zip == "":
		errs["zip_code"] = "ZIP code is required"
	case !ValidZip(zip):
		errs["zip_code"] = "ZIP code must be in format 12345 or 12345-6789"
	}
	if strings.TrimSpace(country) == "" {
		errs["country"] = "Country is required"
	}
	return errs
}

// ValidateContact checks the phone number
func ValidateContact(phone string) FieldErrors {
	errs := FieldErrors{}
	switch {
	case phone == "":
		errs["phone"] = "Phone number is required"
	case !ValidPhone(phone):
		errs["phone"] = "Phone number must be at least 10 digits"
	}
	return errs
}

// ValidatePIN checks the secondary credential and consent flags
func ValidatePIN(pin, confirm string, terms, privacy bool) FieldErrors {
	errs := FieldErrors{}
	switch {
	case !IsPIN(pin):
		errs["pin"] = "PIN must be exactly 4 digits"
	case pin != confirm:
		errs["confirm_pin"] = "PINs do not match"
	}
	if !terms {
		errs["agree_to_terms"] = "You must agree to the terms"
	}
	if !privacy {
		errs["agree_to_privacy"] = "You must agree to the privacy policy"
	}
	return errs
}

// Age returns completed years between born and now
func Age(born, now time.Time) int {
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age
}

// IsPIN reports whether pin is exactly four digits
func IsPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// ValidZip accepts 12345 and 12345-6789
func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}

// ValidPhone requires at least ten digits once formatting is stripped
func ValidPhone(phone string) bool {
	return len(nonDigit.ReplaceAllString(phone, "")) >= 10
}

// ValidEmail applies the loose something@something.tld rule
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// SSNLast4 returns the trailing four digits of a formatted SSN
func SSNLast4(ssn string) string {
	digits := nonDigit.ReplaceAllString(ssn, "")
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

// SSNDigits strips formatting from an SSN
func SSNDigits(ssn string) string {
	return nonDigit.ReplaceAllString(ssn, "")
}
