package model

import "time"

// AdminUser is a console operator account, entirely separate from the
// user-facing OAuth identities. Passwords are stored as bcrypt hashes.
//
// PasswordHash is tagged json:"-" so it can never leak through an API
// response, whatever a handler serializes.
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
