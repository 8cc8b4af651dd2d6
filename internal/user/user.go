package user

import (
	"context"
	"time"
)

// User is the identity record for anyone who has logged in through the
// external identity provider. The stored token id and expiry define the
// single currently valid access token for the user; issuing a new token
// replaces them and thereby revokes every earlier token.
type User struct {
	AccessTokenExp int64     `json:"access_token_exp"`
	AccessTokenJTI string    `json:"access_token_jti"`
	Email          string    `json:"email"`
	LastLogin      time.Time `json:"last_login"`
	Name           string    `json:"name"`
	Registration   time.Time `json:"registration_date"`
}

// Repository is the persistence surface for user records.
type Repository interface {
	// Save upserts the record; login replaces the active token in place.
	Save(ctx context.Context, u *User) error
	// GetByEmail returns nil without error when no record exists.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Login is the outcome of a login-or-create operation.
type Login struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}
