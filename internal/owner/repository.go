package owner

import (
	"context"
	"errors"
)

// ErrOwnerNotFound is returned when no user or team matches the login.
var ErrOwnerNotFound = errors.New("owner not found")

// ErrTeamNotFound is returned when the identity provider has no such team.
var ErrTeamNotFound = errors.New("team not found")

// Repository provides access to crate_owners and teams.
type Repository interface {
	// Owners returns the current (non-deleted) owner set for a crate.
	Owners(ctx context.Context, crateID int64) ([]Owner, error)

	// FindByLogin resolves a login to an existing user or team owner
	// identity. Team logins use the namespaced github:org:team syntax.
	FindByLogin(ctx context.Context, login string) (Owner, error)

	// Add records o as an owner of the crate, created by userID. A
	// soft-deleted row for the same (crate, owner) pair is revived via
	// update; a fresh row is inserted only when none exists.
	Add(ctx context.Context, crateID int64, o Owner, userID int64) error

	// Remove soft-deletes the owner row, retaining it for audit.
	Remove(ctx context.Context, crateID int64, o Owner) error

	// CreateTeam inserts or refreshes a team identity row synced from the
	// identity provider.
	CreateTeam(ctx context.Context, login string, info TeamInfo) (*Team, error)
}
