package models

import "time"

// User represents a caregiver account that owns activities
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Name          string
	OAuthProvider string
	OAuthSubject  string
	ChildPINHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasChildPIN reports whether child mode is protected by a PIN
func (u *User) HasChildPIN() bool {
	return u.ChildPINHash != ""
}
