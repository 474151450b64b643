package domain

import "time"

// Preferences are per-user display settings.
type Preferences struct {
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
}

// DefaultPreferences are assigned at signup.
var DefaultPreferences = Preferences{Currency: "USD", Locale: "en-US"}

// User is an account holder. PasswordHash never leaves the service.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	PasswordHash string      `json:"-"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
