package crate

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no crate matches the canonical name.
var ErrNotFound = errors.New("crate not found")

// ErrNameTaken is returned when the reconciler's insert loses the race to
// a concurrent publisher of the same new name. The update-then-insert
// ordering closes most of the window but is deliberately not race-free;
// the loser surfaces this conflict instead of retrying.
var ErrNameTaken = errors.New("crate name is already taken")

// ErrReservedName is returned for names on the reserved list.
var ErrReservedName = errors.New("cannot publish a crate with a reserved name")

// Repository provides access to the crates table.
type Repository interface {
	// FindByName resolves a crate by canonical name.
	FindByName(ctx context.Context, name string) (*Crate, error)

	// FindOrInsert updates the existing row matching the canonical name
	// with the candidate's mutable fields, or inserts a new row (plus the
	// initial owner record) when none exists. Callers composing this into
	// the publish pipeline run it on a transaction-scoped repository.
	FindOrInsert(ctx context.Context, nc NewCrate) (*Crate, error)

	// SetMaxVersion rewrites the recorded highest version and touches
	// updated_at; callers issue it on every publish.
	SetMaxVersion(ctx context.Context, id int64, maxVersion string) error

	// Follow records that the user follows the crate. Following an
	// already-followed crate is a no-op.
	Follow(ctx context.Context, crateID, userID int64) error

	// Unfollow removes the follow row if present.
	Unfollow(ctx context.Context, crateID, userID int64) error

	// IsFollowing reports whether the user follows the crate.
	IsFollowing(ctx context.Context, crateID, userID int64) (bool, error)
}
