// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a provider account that has authorized the app. RefreshToken holds
// ciphertext produced by cryptox; nothing but the cipher reads it.
type User struct {
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}
