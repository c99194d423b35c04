package validation

import (
	"fmt"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
)

// SelfServiceProfileFields may be edited by the profile's owner
var SelfServiceProfileFields = []string{
	"first_name", "last_name", "phone",
	"address_line1", "address_line2", "city", "state", "zip_code",
}

// AdminProfileFields may be edited from the admin console
var AdminProfileFields = []string{
	"first_name", "last_name", "email", "phone", "date_of_birth",
	"address_line1", "address_line2", "city", "state", "zip_code", "country",
	"is_admin", "ssn",
}

// FilterProfileUpdate keeps allow-listed keys and validates their shape.
// Empty strings are allowed for optional text fields and clear them.
func FilterProfileUpdate(raw map[string]any, allowed []string) (map[string]any, error) {
	allow := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allow[k] = struct{}{}
	}

	out := make(map[string]any, len(raw))
	for key, value := range raw {
		if _, ok := allow[key]; !ok {
			continue
		}
		if key == "is_admin" {
			b, ok := value.(bool)
			if !ok {
				return nil, models.Invalid("is_admin must be a boolean")
			}
			out[key] = b
			continue
		}

		s, ok := value.(string)
		if !ok {
			return nil, models.Invalid(fmt.Sprintf("%s must be a string", key))
		}
		if err := checkProfileField(key, s); err != nil {
			return nil, err
		}
		out[key] = s
	}
	if len(out) == 0 {
		return nil, models.Invalid("No valid fields to update")
	}
	return out, nil
}

func checkProfileField(key, value string) error {
	switch key {
	case "first_name", "last_name":
		if value == "" {
			return models.Invalid(fmt.Sprintf("%s is required", key))
		}
	case "email":
		if !ValidEmail(value) {
			return models.Invalid("Invalid email format")
		}
	case "phone":
		if !ValidPhone(value) {
			return models.Invalid("Phone number must be at least 10 digits")
		}
	case "zip_code":
		if !ValidZip(value) {
			return models.Invalid("ZIP code must be in format 12345 or 12345-6789")
		}
	case "date_of_birth":
		if _, err := time.Parse(DateLayout, value); err != nil {
			return models.Invalid("Date of birth must be in format YYYY-MM-DD")
		}
	case "ssn":
		if !ssnPattern.MatchString(value) {
			return models.Invalid("SSN must be in format 123-45-6789")
		}
	}
	return nil
}
