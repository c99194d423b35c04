package models

import "time"

// Device is a browser or app that has signed in to a profile
type Device struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	DeviceType string    `json:"device_type" db:"device_type"`
	Trusted    bool      `json:"trusted" db:"trusted"`
	LastActive time.Time `json:"last_active" db:"last_active"`
	Location   string    `json:"location" db:"location"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	Browser    string    `json:"browser" db:"browser"`
	OS         string    `json:"os" db:"os"`
}
