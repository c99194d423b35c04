package utils

import (
	"regexp"
	"time"
)

var last4Pattern = regexp.MustCompile(`^\d{4}$`)

// IsLast4 reports whether s is exactly four ASCII digits
func IsLast4(s string) bool {
	return last4Pattern.MatchString(s)
}

// ExpiryPassed reports whether a card valid through month/year has lapsed at now.
// A card is usable through the last day of its expiry month.
func ExpiryPassed(month, year int, now time.Time) bool {
	y, m := CurrentPeriod(now)
	return year < y || (year == y && month < m)
}

// CurrentPeriod returns the year and month of now in UTC
func CurrentPeriod(now time.Time) (int, int) {
	now = now.UTC()
	return now.Year(), int(now.Month())
}
