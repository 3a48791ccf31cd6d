package model

import "time"

// Session binds a browser cookie to the backend bearer token obtained at login.
// BearerToken is plaintext only in memory; the store keeps it encrypted.
type Session struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	BearerToken string    `json:"-"`
	UserName    string    `json:"user_name"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is the identity the backend returns at login.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
