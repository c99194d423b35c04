package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// CodeNoRows is the PostgREST code for a single-object request that matched nothing.
const CodeNoRows = "PGRST116"

// Error is a failure reported by the platform.
type Error struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error %d: %s", e.Status, e.Message)
}

// parseError reads the error envelopes used by the data, auth and storage APIs.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		e.Code = firstString(res, "code", "error_code")
		e.Message = firstString(res, "message", "msg", "error_description", "error")
		e.Details = res.Get("details").String()
		e.Hint = res.Get("hint").String()
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := res.Get(p)
		if v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
		if v.Exists() && v.Type == gjson.Number {
			return v.Raw
		}
	}
	return ""
}

// IsNoRows reports whether err is the platform's "no rows for single object" error.
func IsNoRows(err error) bool {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == CodeNoRows || (gerr.Status == http.StatusNotAcceptable && strings.Contains(gerr.Details, "0 rows"))
}

// Friendly maps known upstream failures to messages that can be shown to end users.
// It matches on the platform's wording, so it must be kept in step with it.
func Friendly(err error, fallback string) string {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return fallback
	}
	msg := strings.ToLower(gerr.Message)
	switch {
	case strings.Contains(msg, "already registered"), gerr.Code == "user_already_exists":
		return "This email is already registered"
	case strings.Contains(msg, "row-level security"):
		return "Database security configuration error. Please contact support."
	case strings.Contains(msg, "invalid login credentials"):
		return "Invalid email or password"
	case strings.Contains(msg, "email not confirmed"):
		return "Please confirm your email before signing in"
	}
	return fallback
}

// IsDuplicateUser reports whether err is the auth API rejecting an existing email.
func IsDuplicateUser(err error) bool {
	return Friendly(err, "") == "This email is already registered"
}
