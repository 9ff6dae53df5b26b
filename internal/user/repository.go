package user

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no user matches the lookup key.
var ErrNotFound = errors.New("user not found")

// ErrLoginTaken is returned when the reconciler's insert loses the race
// to a concurrent login by the same external identity. Same accepted
// update-then-insert limitation as the crate reconciler.
var ErrLoginTaken = errors.New("user login is already taken")

// Repository provides access to the users table.
type Repository interface {
	FindByLogin(ctx context.Context, login string) (*User, error)

	// FindByTokenPrefix returns all users whose stored API token prefix
	// matches; the auth service bcrypt-compares each candidate.
	FindByTokenPrefix(ctx context.Context, prefix string) ([]User, error)

	// FindOrInsert updates the row matching GhLogin with the candidate's
	// mutable fields (access token, profile, API token), or inserts a new
	// row when none exists.
	FindOrInsert(ctx context.Context, nu NewUser) (*User, error)

	// SetAPIToken replaces a user's API token prefix and hash.
	SetAPIToken(ctx context.Context, id int64, prefix, hash string) error
}
